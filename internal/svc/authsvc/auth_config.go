package authsvc

import "time"

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	Hash HashConfig `envPrefix:"HASH_"`

	// SessionDuration is the lifetime of a session
	SessionDuration time.Duration `env:"SESSION_DURATION" default:"168h"`

	// SessionSliding extends a session to a full SessionDuration whenever it is used
	SessionSliding bool `env:"SESSION_SLIDING" default:"false"`

	// PurgeInterval is the period of the expired session janitor; zero disables it
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" default:"1h"`

	// MaxUsernameLength bounds usernames in bytes
	MaxUsernameLength int `env:"MAX_USERNAME_LENGTH" default:"64"`
}

// HashConfig holds the Argon2id parameters used to derive password hashes.
type HashConfig struct {
	Time      uint32 `env:"TIME" default:"1"`
	MemoryKiB uint32 `env:"MEMORY_KIB" default:"65536"`
	Threads   uint8  `env:"THREADS" default:"4"`
	KeyLength uint32 `env:"KEY_LENGTH" default:"32"`
	SaltSize  int    `env:"SALT_SIZE" default:"16"`
}

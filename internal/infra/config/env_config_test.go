package config_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	. "github.com/mkrupp/webgallery/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue string        `env:"STRING_VALUE" default:"default"`
	IntValue    int           `env:"INT_VALUE" default:"42"`
	UintValue   uint32        `env:"UINT_VALUE" default:"7"`
	BoolValue   bool          `env:"BOOL_VALUE" default:"true"`
	Timeout     time.Duration `env:"TIMEOUT" default:"5s"`
	Level       slog.Level    `env:"LEVEL" default:"info"`
	NoEnvTag    string
	Nested      testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

func lookupFrom(vars map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]

		return v, ok
	}
}

func defaults() testConfig {
	return testConfig{
		StringValue: "default",
		IntValue:    42,
		UintValue:   7,
		BoolValue:   true,
		Timeout:     5 * time.Second,
		Level:       slog.LevelInfo,
		Nested:      testNestedConfig{NestedString: "nested-default"},
	}
}

func TestParseLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
		vars      map[string]string
		want      func(*testConfig)
		wantErr   error
	}{
		{
			name: "uses default values when vars not set",
			vars: map[string]string{},
			want: func(*testConfig) {},
		},
		{
			name: "reads variables",
			vars: map[string]string{
				"STRING_VALUE":   "env-value",
				"INT_VALUE":      "123",
				"UINT_VALUE":     "3",
				"BOOL_VALUE":     "false",
				"TIMEOUT":        "1m30s",
				"LEVEL":          "debug",
				"NESTED_STRING":  "env-nested",
				"UNRELATED_NAME": "ignored",
			},
			want: func(c *testConfig) {
				c.StringValue = "env-value"
				c.IntValue = 123
				c.UintValue = 3
				c.BoolValue = false
				c.Timeout = 90 * time.Second
				c.Level = slog.LevelDebug
				c.Nested.NestedString = "env-nested"
			},
		},
		{
			name:      "prefers the longest namespace",
			namespace: "APP_API",
			vars: map[string]string{
				"APP_API_STRING_VALUE": "most-specific",
				"APP_STRING_VALUE":     "less-specific",
				"STRING_VALUE":         "bare",
				"APP_INT_VALUE":        "9",
				"NESTED_STRING":        "bare-nested",
			},
			want: func(c *testConfig) {
				c.StringValue = "most-specific"
				c.IntValue = 9
				c.Nested.NestedString = "bare-nested"
			},
		},
		{
			name:    "fails on invalid int value",
			vars:    map[string]string{"INT_VALUE": "not-a-number"},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "fails on negative unsigned value",
			vars:    map[string]string{"UINT_VALUE": "-1"},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "fails on invalid bool value",
			vars:    map[string]string{"BOOL_VALUE": "not-a-bool"},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "fails on invalid duration",
			vars:    map[string]string{"TIMEOUT": "soon"},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "fails on invalid text value",
			vars:    map[string]string{"LEVEL": "loud"},
			wantErr: ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var cfg testConfig

			err := ParseLookup(context.Background(), &cfg, tt.namespace, lookupFrom(tt.vars))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseLookup() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseLookup() error = %v", err)
			}

			want := defaults()
			tt.want(&want)

			if cfg.Namespace() != tt.namespace {
				t.Errorf("Namespace() = %q, want %q", cfg.Namespace(), tt.namespace)
			}

			cfg.EnvConfig = EnvConfig{}
			if cfg != want {
				t.Errorf("ParseLookup() = %+v, want %+v", cfg, want)
			}
		})
	}
}

func TestParseRequiredVariable(t *testing.T) {
	t.Parallel()

	cfg := struct {
		EnvConfig

		Required string `env:"REQUIRED"`
	}{}

	err := ParseLookup(context.Background(), &cfg, "", lookupFrom(nil))
	if !errors.Is(err, ErrVarNotSet) {
		t.Errorf("expected %v, got %v", ErrVarNotSet, err)
	}
}

func TestParseUnsupportedType(t *testing.T) {
	t.Parallel()

	cfg := struct {
		EnvConfig

		Values []string `env:"VALUES" default:"a,b"`
	}{}

	err := ParseLookup(context.Background(), &cfg, "", lookupFrom(nil))
	if !errors.Is(err, ErrUnsupportedVarType) {
		t.Errorf("expected %v, got %v", ErrUnsupportedVarType, err)
	}
}

//nolint:paralleltest
func TestParseReadsProcessEnvironment(t *testing.T) {
	t.Setenv("CFGTEST_STRING_VALUE", "from-env")

	var cfg testConfig
	if err := Parse(context.Background(), &cfg, "CFGTEST"); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.StringValue != "from-env" {
		t.Errorf("StringValue = %q, want %q", cfg.StringValue, "from-env")
	}
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  any
	}{
		{name: "non-pointer config", cfg: testConfig{}},
		{name: "non-struct pointer", cfg: new(string)},
		{
			name: "missing EnvConfig embedding",
			cfg: &struct {
				Value string `env:"VALUE"`
			}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Parse(context.Background(), tt.cfg, "")
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected error %v, got %v", ErrInvalidConfig, err)
			}
		})
	}
}

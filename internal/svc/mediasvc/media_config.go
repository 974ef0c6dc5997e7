package mediasvc

// MediaConfig holds configuration parameters for the media service.
type MediaConfig struct {
	// MaxSize is the maximum allowed file size for uploaded images in bytes.
	// Default is 20MB.
	MaxSize int64 `env:"MAX_SIZE" default:"20971520"`

	// MaxWidth bounds the width of resized variants in pixels.
	MaxWidth int `env:"MAX_WIDTH" default:"4096"`

	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`
}

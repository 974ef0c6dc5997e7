package imagesvc

// HTTPTransportConfig contains configuration parameters for the image HTTP endpoints.
type HTTPTransportConfig struct {
	// MultipartFileName is the form field name for file uploads.
	// Default is "image".
	MultipartFileName string `env:"MULTIPART_FILE_NAME" default:"image"`

	// URLWidthParam is the URL parameter for specifying image resize width.
	// Default is "width".
	URLWidthParam string `env:"URL_WIDTH_PARAM" default:"width"`

	// URLFileDownloadParam is the URL parameter for triggering downloads.
	// Default is "download".
	URLFileDownloadParam string `env:"URL_FILE_DOWNLOAD_PARAM" default:"download"`

	// MultipartFormMaxMemory is the maximum allowed memory for multipart form uploads.
	// Default is 10MB.
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_SIZE" default:"10485760"`
}

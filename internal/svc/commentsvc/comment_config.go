package commentsvc

// CommentConfig holds configuration parameters for the comment service.
type CommentConfig struct {
	// PageSize is the number of comments per page
	PageSize int `env:"PAGE_SIZE" default:"10"`

	// MaxContentLength bounds comment content in bytes
	MaxContentLength int `env:"MAX_CONTENT_LENGTH" default:"4096"`

	// AnonymousAuthor names comments posted without an author while enforcement is off
	AnonymousAuthor string `env:"ANONYMOUS_AUTHOR" default:"anonymous"`
}

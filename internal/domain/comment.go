package domain

import (
	"fmt"
	"time"
)

var (
	ErrCommentNotFound = fmt.Errorf("%w: comment not found", ErrNotFound)
	ErrNoContent       = fmt.Errorf("%w: no content", ErrValidation)
)

// Comment is a note left on an image. ImageID is not checked for existence at write time.
type Comment struct {
	ID        string    `json:"id"`
	ImageID   string    `json:"imageId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

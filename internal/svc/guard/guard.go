// Package guard decides whether an identity may act on a resource owned by an author.
package guard

import (
	"fmt"

	"github.com/mkrupp/webgallery/internal/domain"
)

// Action is an operation a requester attempts on a resource.
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

var (
	// ErrAnonymous is returned when an action requires a signed in requester.
	ErrAnonymous = fmt.Errorf("%w: authentication required", domain.ErrUnauthorized)
	// ErrNotOwner is returned when a requester deletes a resource authored by someone else.
	ErrNotOwner = fmt.Errorf("%w: not the owner", domain.ErrUnauthorized)
)

// Config toggles access enforcement.
type Config struct {
	// EnforceAuth requires a session for every gallery operation and restricts deletes to owners
	EnforceAuth bool `env:"ENFORCE_AUTH" default:"true"`
}

// Guard applies the ownership rule. With enforcement disabled every action is allowed.
type Guard struct {
	enforce bool
}

// New creates a new Guard.
func New(cfg Config) *Guard {
	return &Guard{enforce: cfg.EnforceAuth}
}

// Enforced reports whether the guard requires authenticated requesters.
func (g *Guard) Enforced() bool {
	return g.enforce
}

// Authorize returns nil if identity may perform action on a resource authored by author.
// An empty identity is anonymous.
func (g *Guard) Authorize(identity, author string, action Action) error {
	if !g.enforce {
		return nil
	}

	if identity == "" {
		return fmt.Errorf("%w: %s", ErrAnonymous, action)
	}

	if action == ActionDelete && identity != author {
		return fmt.Errorf("%w: %s", ErrNotOwner, action)
	}

	return nil
}

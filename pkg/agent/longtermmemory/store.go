package longtermmemory

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("longtermmemory: fact not found")
	ErrAlreadyExists = errors.New("longtermmemory: fact already exists")
)

// Store is the read/write interface for persisted facts. Writes never
// overwrite: a second Write with the same ID returns ErrAlreadyExists.
type Store interface {
	Write(ctx context.Context, f *Fact) error
	Read(ctx context.Context, id string) (*Fact, error)
	List(ctx context.Context) ([]*Fact, error)
	Delete(ctx context.Context, id string) error
}

// Package dispatch routes decoded packets to per-tag handlers.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/luciancaetano/netsync"
	"github.com/luciancaetano/netsync/internal/protocol"
)

// Dispatch errors.
var (
	ErrUnknownTag       = errors.New(netsync.ErrUnknownTag)
	ErrDuplicateHandler = errors.New(netsync.ErrDuplicateHandler)
	ErrMissingHandler   = errors.New(netsync.ErrMissingHandler)
)

// UnknownTagError reports a packet whose tag has no handler.
type UnknownTagError struct {
	Direction netsync.Direction
	Tag       netsync.Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("%s: %s tag %d", netsync.ErrUnknownTag, e.Direction, e.Tag)
}

func (e *UnknownTagError) Is(target error) bool {
	return target == ErrUnknownTag
}

// Handler decodes the fields of one packet type, in the order the sender
// wrote them, and applies its effect. The reader is positioned right after
// the tag.
type Handler func(ctx context.Context, r *protocol.Reader) error

type key struct {
	direction netsync.Direction
	tag       netsync.Tag
}

// Table maps (direction, tag) to a handler. Handlers are registered once at
// startup; the table is not safe for concurrent registration.
type Table struct {
	handlers map[key]Handler
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{handlers: make(map[key]Handler)}
}

// Register adds the handler for a declared tag. Registering the same tag
// twice, or a tag the direction does not declare, fails.
func (t *Table) Register(d netsync.Direction, tag netsync.Tag, h Handler) error {
	if !netsync.IsDeclared(d, tag) {
		return &UnknownTagError{Direction: d, Tag: tag}
	}
	k := key{d, tag}
	if _, ok := t.handlers[k]; ok {
		return fmt.Errorf("%w: %s %s", ErrDuplicateHandler, d, netsync.TagName(d, tag))
	}
	t.handlers[k] = h
	return nil
}

// Validate checks that every tag declared for the direction has a handler.
func (t *Table) Validate(d netsync.Direction) error {
	var missing []error
	for _, tag := range netsync.Tags(d) {
		if _, ok := t.handlers[key{d, tag}]; !ok {
			missing = append(missing, fmt.Errorf("%w: %s %s", ErrMissingHandler, d, netsync.TagName(d, tag)))
		}
	}
	return errors.Join(missing...)
}

// Handles reports whether a handler is registered for the tag.
func (t *Table) Handles(d netsync.Direction, tag netsync.Tag) bool {
	_, ok := t.handlers[key{d, tag}]
	return ok
}

// Dispatch peeks the tag, looks up its handler, consumes the tag and runs
// the handler. The returned tag is valid whenever it could be decoded.
//
// An unknown tag returns *UnknownTagError with the reader untouched; the
// caller should drop the packet and keep the connection.
func (t *Table) Dispatch(ctx context.Context, d netsync.Direction, r *protocol.Reader) (netsync.Tag, error) {
	tag, err := r.PeekTag()
	if err != nil {
		return 0, err
	}

	h, ok := t.handlers[key{d, tag}]
	if !ok {
		return tag, &UnknownTagError{Direction: d, Tag: tag}
	}

	if _, err := r.ReadTag(); err != nil {
		return tag, err
	}
	return tag, h(ctx, r)
}

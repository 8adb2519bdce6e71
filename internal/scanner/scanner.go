// Package scanner turns barcode callbacks into a one-shot value a caller can
// wait on.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/moraes/isbn"
)

var (
	// ErrSessionClosed is returned by Await when the scanner was dismissed
	// before a code arrived.
	ErrSessionClosed = errors.New("scan session closed")

	ErrInvalidISBN = errors.New("invalid ISBN")
)

// Scan is a single barcode read.
type Scan struct {
	Code   string
	Format string
}

// Session accepts at most one scan. Deliver may be called from any
// goroutine, including after Close, without panicking.
type Session struct {
	mu        sync.Mutex
	events    chan Scan
	delivered bool
	closed    bool
}

func NewSession() *Session {
	return &Session{events: make(chan Scan, 1)}
}

// Deliver hands a scan to the session. It reports false when a scan was
// already delivered or the session is closed.
func (s *Session) Deliver(scan Scan) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.delivered {
		return false
	}
	s.delivered = true
	s.events <- scan
	close(s.events)
	s.closed = true
	return true
}

// Events yields at most one scan and is closed afterwards or on Close.
func (s *Session) Events() <-chan Scan {
	return s.events
}

// Close dismisses the scanner. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Await blocks until a scan arrives, the session is closed, or ctx is done.
func (s *Session) Await(ctx context.Context) (Scan, error) {
	select {
	case scan, ok := <-s.events:
		if !ok {
			return Scan{}, ErrSessionClosed
		}
		return scan, nil
	case <-ctx.Done():
		return Scan{}, ctx.Err()
	}
}

// NormalizeISBN strips separators, validates the checksum and returns the
// ISBN-13 form.
func NormalizeISBN(code string) (string, error) {
	cleaned := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(code)))
	if !isbn.Validate(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidISBN, code)
	}
	if len(cleaned) == 13 {
		return cleaned, nil
	}
	converted, err := isbn.To13(cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidISBN, err)
	}
	return converted, nil
}

// Finder resolves an ISBN to catalogue metadata.
type Finder interface {
	SearchByISBN(ctx context.Context, isbn string) (*entities.BookInput, error)
}

// FinderFunc adapts a function to Finder.
type FinderFunc func(ctx context.Context, isbn string) (*entities.BookInput, error)

func (f FinderFunc) SearchByISBN(ctx context.Context, isbn string) (*entities.BookInput, error) {
	return f(ctx, isbn)
}

// Lookup waits for a scan and resolves it into a draft book. When the
// catalogue has no match, the draft carries only the ISBN so the user can
// fill in the rest.
func Lookup(ctx context.Context, session *Session, finder Finder) (*entities.BookInput, error) {
	scan, err := session.Await(ctx)
	if err != nil {
		return nil, err
	}

	code, err := NormalizeISBN(scan.Code)
	if err != nil {
		return nil, err
	}

	draft, err := finder.SearchByISBN(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &entities.BookInput{ISBN: code, ReadingStatus: entities.ReadingStatusNotRead}, nil
	}
	if draft.ISBN == "" {
		draft.ISBN = code
	}
	return draft, nil
}

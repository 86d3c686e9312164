// Package guestbook validates and appends signed name+message entries.
package guestbook

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/letrongvang/go-profile-card/store"
)

// MinNameLength is the minimum trimmed name length for a submission.
const MinNameLength = 2

var (
	// ErrNameTooShort means the submission was not attempted at all. The UI
	// is expected to prevent the action rather than show a server error.
	ErrNameTooShort = errors.New("name must be at least 2 characters")
	// ErrUnavailable means no backing store was configured.
	ErrUnavailable = errors.New("guestbook backend is not configured")
)

const version = "1.0.0"

// ClientContext describes the submitting client, used for abuse triage
// only. It fills the role the browser user agent played.
func ClientContext() string {
	return fmt.Sprintf("go-profile-card/%s (%s/%s; %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// Service appends immutable guestbook entries. No rate limiting and no
// duplicate detection; a visitor may sign more than once across sessions.
type Service struct {
	store         store.Store
	log           *zap.Logger
	clientContext string
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{
		store:         st,
		log:           log,
		clientContext: ClientContext(),
	}
}

// Submit trims and validates the input, then appends exactly one complete
// entry or none. A too-short name performs no write. Store failures come
// back as a single human-readable error; the caller keeps its input intact
// so the visitor can retry.
func (s *Service) Submit(ctx context.Context, name, message string) error {
	name = strings.TrimSpace(name)
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(name) < MinNameLength {
		return ErrNameTooShort
	}
	if s.store == nil {
		return ErrUnavailable
	}

	entry, err := s.store.AppendEntry(ctx, store.Entry{
		Name:          name,
		Message:       message,
		ClientContext: s.clientContext,
	})
	if err != nil {
		s.log.Warn("guestbook append failed", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	s.log.Info("guestbook signed",
		zap.String("id", entry.ID),
		zap.String("name", entry.Name),
	)
	return nil
}

// List returns the newest entries, most recent first.
func (s *Service) List(ctx context.Context, limit int) ([]store.Entry, error) {
	if s.store == nil {
		return nil, ErrUnavailable
	}
	return s.store.ListEntries(ctx, limit)
}

// Package draft keeps the unsaved CV draft and the template preference in
// local storage. Draft writes are debounced: a burst of edits produces one
// write of the final state.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/cv-builder/internal/sections"
	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/rs/zerolog"
)

// DefaultDelay is the debounce window for draft writes.
const DefaultDelay = time.Second

// ErrNoDraft is returned by Load when no draft is stored.
var ErrNoDraft = errors.New("no saved draft")

// ErrClosed is returned by operations on a closed Autosaver.
var ErrClosed = errors.New("autosaver is closed")

// Event reports a completed or failed autosave write.
type Event struct {
	Sections int
	SavedAt  time.Time
	Err      error
}

// Autosaver debounces draft writes to a KV store.
type Autosaver struct {
	kv    storage.KV
	delay time.Duration
	log   zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending []types.Section
	closed  bool
	// writeMu serializes writes so a flush and a timer firing never interleave.
	writeMu sync.Mutex
	onSave  func(Event)
}

// Option configures an Autosaver.
type Option func(*Autosaver)

// WithDelay sets the debounce window.
func WithDelay(d time.Duration) Option {
	return func(a *Autosaver) {
		if d > 0 {
			a.delay = d
		}
	}
}

// WithOnSave registers a callback run after every write attempt.
func WithOnSave(fn func(Event)) Option {
	return func(a *Autosaver) { a.onSave = fn }
}

// New returns an Autosaver writing to kv.
func New(kv storage.KV, log zerolog.Logger, opts ...Option) *Autosaver {
	a := &Autosaver{
		kv:    kv,
		delay: DefaultDelay,
		log:   log.With().Str("component", "autosave").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schedule records s as the latest draft. The write happens once no further
// Schedule call arrives within the debounce window; earlier pending states are dropped.
func (a *Autosaver) Schedule(s []types.Section) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = sections.Clone(s)
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Cancel drops the pending write, if any, and waits for a write in progress.
func (a *Autosaver) Cancel() {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
}

func (a *Autosaver) fire() {
	if err := a.Flush(context.Background()); err != nil {
		a.log.Warn().Err(err).Msg("autosave failed")
	}
}

// Flush writes the pending draft now. It is a no-op when nothing is pending.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	if pending == nil {
		return nil
	}

	err := Save(ctx, a.kv, pending)
	if err == nil {
		a.log.Debug().Int("sections", len(pending)).Msg("draft saved locally")
	}
	if a.onSave != nil {
		a.onSave(Event{Sections: len(pending), SavedAt: time.Now(), Err: err})
	}
	return err
}

// Close flushes the pending draft and stops accepting new ones.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	return a.Flush(ctx)
}

// Save writes a draft immediately.
func Save(ctx context.Context, kv storage.KV, s []types.Section) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := kv.Set(ctx, storage.KeyDraft, string(data)); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load returns the stored draft. A draft that breaks the document invariants
// is reported as an error rather than returned.
func Load(ctx context.Context, kv storage.KV) ([]types.Section, error) {
	raw, err := kv.Get(ctx, storage.KeyDraft)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var s []types.Section
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to parse draft: %w", err)
	}
	if err := sections.CheckInvariants(s); err != nil {
		return nil, fmt.Errorf("stored draft is invalid: %w", err)
	}
	return sections.Sorted(s), nil
}

// Clear removes the stored draft.
func Clear(ctx context.Context, kv storage.KV) error {
	if err := kv.Delete(ctx, storage.KeyDraft); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// LoadTemplate returns the stored template preference, or the default template.
func LoadTemplate(ctx context.Context, kv storage.KV) (string, error) {
	id, err := storage.GetOr(ctx, kv, storage.KeyTemplate, types.DefaultTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to read template preference: %w", err)
	}
	if !types.IsTemplate(id) {
		return types.DefaultTemplate, nil
	}
	return id, nil
}

// SaveTemplate stores the template preference.
func SaveTemplate(ctx context.Context, kv storage.KV, id string) error {
	if !types.IsTemplate(id) {
		return fmt.Errorf("unknown template %q", id)
	}
	if err := kv.Set(ctx, storage.KeyTemplate, id); err != nil {
		return fmt.Errorf("failed to save template preference: %w", err)
	}
	return nil
}

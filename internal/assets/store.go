// Package assets is the draft asset store: an in-memory staging area for the
// files a user selected in the wizard. Nothing here touches the network; files
// stay in memory until the submission pipeline uploads them.
package assets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/validation"
)

// ErrNotFound is returned when a slot or screenshot index holds nothing.
var ErrNotFound = errors.New("asset not found")

// Direction moves a screenshot within the sequence.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// File is a user selected file before validation.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var slotKinds = map[model.Slot]validation.AssetKind{
	model.SlotLogo:          validation.KindLogo,
	model.SlotBanner:        validation.KindBanner,
	model.SlotBuild:         validation.KindBuild,
	model.SlotPrivacyPolicy: validation.KindPrivacyPolicy,
	model.SlotScreenshot:    validation.KindScreenshot,
}

// KindOf returns the validation kind applied to slot.
func KindOf(slot model.Slot) (validation.AssetKind, bool) {
	k, ok := slotKinds[slot]
	return k, ok
}

// Store holds at most one asset per singleton slot plus an ordered screenshot
// sequence of up to model.MaxScreenshots entries.
type Store struct {
	mu          sync.RWMutex
	slots       map[model.Slot]*model.StagedAsset
	screenshots []*model.StagedAsset
	previewer   Previewer
	now         func() time.Time
	onChange    func(model.Slot)
}

// Option customises a Store.
type Option func(*Store)

// WithPreviewer replaces the default preview generation.
func WithPreviewer(p Previewer) Option {
	return func(s *Store) { s.previewer = p }
}

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// OnChange registers fn to be called with the affected slot after each
// successful Stage, StageMany, Reorder, Remove and RemoveScreenshot. fn runs
// without the store lock held. Clear does not notify.
func (s *Store) OnChange(fn func(model.Slot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *Store) changed(slot model.Slot) {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn(slot)
	}
}

// NewStore constructs an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		slots:     make(map[model.Slot]*model.StagedAsset),
		previewer: DefaultPreviewer{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stage validates f against the limits of slot, computes its preview and
// stores it, replacing any previous asset in the slot. On failure the slot is
// left untouched.
func (s *Store) Stage(ctx context.Context, slot model.Slot, f File) (*model.StagedAsset, error) {
	if slot == model.SlotScreenshot {
		return nil, fmt.Errorf("stage: screenshots are staged as a batch")
	}
	asset, err := s.prepare(ctx, slot, f)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.slots[slot] = asset
	s.mu.Unlock()
	s.changed(slot)
	return asset, nil
}

// StageMany adds a batch of screenshots. The batch is rejected as a whole when
// it would exceed the ceiling or when any single file fails validation.
func (s *Store) StageMany(ctx context.Context, files []File) ([]*model.StagedAsset, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if s.ScreenshotCount()+len(files) > model.MaxScreenshots {
		return nil, ceilingError()
	}
	kind := validation.KindScreenshot
	for _, f := range files {
		if err := validation.CheckFile(kind, f.Name, contentTypeOf(f), int64(len(f.Data))); err != nil {
			return nil, err
		}
	}
	staged := make([]*model.StagedAsset, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			asset, err := s.prepare(gctx, model.SlotScreenshot, f)
			if err != nil {
				return err
			}
			staged[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	// A concurrent batch may have landed while previews were generated.
	if len(s.screenshots)+len(staged) > model.MaxScreenshots {
		s.mu.Unlock()
		return nil, ceilingError()
	}
	s.screenshots = append(s.screenshots, staged...)
	s.mu.Unlock()
	s.changed(model.SlotScreenshot)
	return staged, nil
}

func ceilingError() error {
	return apperr.Validation(string(validation.KindScreenshot), fmt.Sprintf("Maximum %d screenshots allowed", model.MaxScreenshots))
}

func (s *Store) prepare(ctx context.Context, slot model.Slot, f File) (*model.StagedAsset, error) {
	kind, ok := slotKinds[slot]
	if !ok {
		return nil, apperr.Validation(string(slot), fmt.Sprintf("Unknown asset slot %q", slot))
	}
	contentType := contentTypeOf(f)
	if err := validation.CheckFile(kind, f.Name, contentType, int64(len(f.Data))); err != nil {
		return nil, err
	}
	asset := &model.StagedAsset{
		ID:          uuid.NewString(),
		Slot:        slot,
		Name:        f.Name,
		Size:        int64(len(f.Data)),
		ContentType: contentType,
		StagedAt:    s.now().UTC(),
		Data:        append([]byte(nil), f.Data...),
	}
	if err := s.previewer.Preview(ctx, asset); err != nil {
		return nil, fmt.Errorf("preview %s: %w", f.Name, err)
	}
	return asset, nil
}

// contentTypeOf trusts the declared type and sniffs the bytes only when the
// client sent none.
func contentTypeOf(f File) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return mimetype.Detect(f.Data).String()
}

// Get returns the asset staged in slot.
func (s *Store) Get(slot model.Slot) (*model.StagedAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.slots[slot]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// Find looks an asset up by id across slots and screenshots.
func (s *Store) Find(id string) (*model.StagedAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.slots {
		if a.ID == id {
			return a, nil
		}
	}
	for _, a := range s.screenshots {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

// Screenshots returns a copy of the current sequence.
func (s *Store) Screenshots() []*model.StagedAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*model.StagedAsset{}, s.screenshots...)
}

// ScreenshotCount returns the length of the sequence.
func (s *Store) ScreenshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.screenshots)
}

// Reorder swaps the screenshot at index with its neighbour in direction. It
// is a no-op at either boundary or for an out of range index.
func (s *Store) Reorder(index int, dir Direction) {
	if s.swap(index, dir) {
		s.changed(model.SlotScreenshot)
	}
}

func (s *Store) swap(index int, dir Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.screenshots) {
		return false
	}
	other := index - 1
	if dir == Down {
		other = index + 1
	} else if dir != Up {
		return false
	}
	if other < 0 || other >= len(s.screenshots) {
		return false
	}
	s.screenshots[index], s.screenshots[other] = s.screenshots[other], s.screenshots[index]
	return true
}

// Remove clears a singleton slot.
func (s *Store) Remove(slot model.Slot) error {
	s.mu.Lock()
	if _, ok := s.slots[slot]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.slots, slot)
	s.mu.Unlock()
	s.changed(slot)
	return nil
}

// RemoveScreenshot drops one screenshot, keeping the order of the rest.
func (s *Store) RemoveScreenshot(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.screenshots) {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.screenshots = append(s.screenshots[:index:index], s.screenshots[index+1:]...)
	s.mu.Unlock()
	s.changed(model.SlotScreenshot)
	return nil
}

// Clear discards everything, used after a successful submission.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[model.Slot]*model.StagedAsset)
	s.screenshots = nil
}

// Package steps implements the seven wizard step forms. A form holds the
// user's in-progress input for one step, validates it on submit and, when
// valid, posts a tagged Completion to the Dispatch function owned by the
// wizard controller. Forms never write to the draft directly.
//
// Forms are not safe for concurrent use; the owning session serialises access.
package steps

import (
	"context"
	"strings"

	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/validation"
)

// ID identifies a wizard step by position.
type ID int

const (
	Metadata ID = iota
	Media
	Build
	Privacy
	TestAccess
	Preview
	Final
)

// Count is the number of wizard steps.
const Count = int(Final) + 1

var slugs = [Count]string{"metadata", "media", "build", "privacy", "test-access", "preview", "final"}

var titles = [Count]string{"App Info", "Media", "App Build", "Privacy & Terms", "Beta Testing", "Preview", "Submit"}

// All returns every step in wizard order.
func All() []ID {
	out := make([]ID, Count)
	for i := range out {
		out[i] = ID(i)
	}
	return out
}

// Valid reports whether id is a known step.
func (id ID) Valid() bool { return id >= 0 && int(id) < Count }

// String returns the URL slug of the step.
func (id ID) String() string {
	if !id.Valid() {
		return "unknown"
	}
	return slugs[id]
}

// Title is the label shown in the step list.
func (id ID) Title() string {
	if !id.Valid() {
		return ""
	}
	return titles[id]
}

// Parse resolves a slug to its step.
func Parse(slug string) (ID, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for i, s := range slugs {
		if s == slug {
			return ID(i), true
		}
	}
	return 0, false
}

// Completion is the message a form posts when its step is completed. Apply
// overwrites only the fields the step owns.
type Completion interface {
	Step() ID
	Apply(d *model.DraftRecord)
}

// Edit is a Completion posted while the step is still being filled in. The
// controller applies it without completing or leaving the step.
type Edit interface {
	Completion
	edit()
}

// Dispatch delivers a Completion to the wizard controller.
type Dispatch func(Completion) error

// Form is the capability set every step shares.
type Form interface {
	Step() ID
	// Load prefills the form from the aggregated draft when the step is entered.
	Load(d model.DraftRecord)
	// View renders the current form state for a client.
	View(ctx context.Context) (any, error)
	// Submit validates the input and dispatches the step's Completion.
	Submit(ctx context.Context) error
}

// CategoryLister is the read-only category source used for display.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// UploadMode chooses how an optional or alternative file is provided.
type UploadMode string

const (
	ModeNone UploadMode = "none"
	ModeFile UploadMode = "file"
	ModeURL  UploadMode = "url"
)

// AssetView is the client rendering of a staged asset.
type AssetView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SizeLabel   string `json:"sizeLabel"`
	ContentType string `json:"contentType"`
	Excerpt     string `json:"excerpt,omitempty"`
	Pages       int    `json:"pages,omitempty"`
}

// ViewOf renders a, returning nil for a nil asset.
func ViewOf(a *model.StagedAsset) *AssetView {
	if a == nil {
		return nil
	}
	return &AssetView{
		ID:          a.ID,
		Name:        a.Name,
		Size:        a.Size,
		SizeLabel:   validation.FormatSize(a.Size),
		ContentType: a.ContentType,
		Excerpt:     a.Excerpt,
		Pages:       a.Pages,
	}
}

// ViewsOf renders a sequence of assets, keeping order.
func ViewsOf(list []*model.StagedAsset) []AssetView {
	out := make([]AssetView, 0, len(list))
	for _, a := range list {
		if v := ViewOf(a); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

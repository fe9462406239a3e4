package steps

import (
	"context"

	"github.com/dharsanguruparan/witverse/internal/model"
)

// Projection is the read-only view of everything collected so far.
type Projection struct {
	Name             string            `json:"name"`
	ShortDescription string            `json:"shortDescription"`
	FullDescription  string            `json:"fullDescription"`
	CategoryID       string            `json:"category"`
	CategoryName     string            `json:"categoryName"`
	Tags             []string          `json:"tags"`
	Version          string            `json:"version"`
	Logo             *AssetView        `json:"appLogo"`
	Screenshots      []AssetView       `json:"screenshots"`
	Banner           *AssetView        `json:"appBanner"`
	PromoVideoURL    string            `json:"promoVideoUrl,omitempty"`
	AppFile          *AssetView        `json:"appFile"`
	WebAppURL        string            `json:"webAppUrl,omitempty"`
	ReleaseNotes     string            `json:"releaseNotes,omitempty"`
	PrivacyPolicy    *AssetView        `json:"privacyPolicyFile"`
	PrivacyPolicyURL string            `json:"privacyPolicyUrl,omitempty"`
	ReleaseType      model.ReleaseType `json:"releaseType"`
	TestEmails       []string          `json:"testEmails"`
	CollectFeedback  bool              `json:"collectFeedback"`
	FeedbackPrompt   string            `json:"feedbackPrompt,omitempty"`
}

// Project renders d, resolving the category name from categories.
func Project(d model.DraftRecord, categories []model.Category) Projection {
	p := Projection{
		Name:             d.Metadata.Name,
		ShortDescription: d.Metadata.ShortDescription,
		FullDescription:  d.Metadata.FullDescription,
		CategoryID:       d.Metadata.Category,
		Tags:             append([]string{}, d.Metadata.Tags...),
		Version:          d.Version,
		Logo:             ViewOf(d.Media.Logo),
		Screenshots:      ViewsOf(d.Media.Screenshots),
		Banner:           ViewOf(d.Media.Banner),
		PromoVideoURL:    d.Media.PromoVideoURL,
		AppFile:          ViewOf(d.Build.AppFile),
		WebAppURL:        d.Build.WebAppURL,
		ReleaseNotes:     d.Build.ReleaseNotes,
		PrivacyPolicy:    ViewOf(d.Compliance.PrivacyPolicyFile),
		PrivacyPolicyURL: d.Compliance.PrivacyPolicyURL,
		ReleaseType:      d.Distribution.ReleaseType,
		TestEmails:       append([]string{}, d.Distribution.TestEmails...),
		CollectFeedback:  d.Distribution.CollectFeedback,
		FeedbackPrompt:   d.Distribution.FeedbackPrompt,
	}
	for _, c := range categories {
		if c.ID == d.Metadata.Category {
			p.CategoryName = c.Name
			break
		}
	}
	return p
}

// PreviewForm is not a gate; submitting it only moves the wizard on.
type PreviewForm struct {
	dispatch   Dispatch
	draft      func() model.DraftRecord
	categories CategoryLister
}

// NewPreviewForm reads the draft through the accessor so it always shows the
// latest aggregate. categories may be nil.
func NewPreviewForm(dispatch Dispatch, draft func() model.DraftRecord, categories CategoryLister) *PreviewForm {
	return &PreviewForm{dispatch: dispatch, draft: draft, categories: categories}
}

func (f *PreviewForm) Step() ID { return Preview }

func (f *PreviewForm) Load(model.DraftRecord) {}

func (f *PreviewForm) View(ctx context.Context) (any, error) {
	var list []model.Category
	if f.categories != nil {
		var err error
		if list, err = f.categories.ListCategories(ctx); err != nil {
			return nil, err
		}
	}
	return Project(f.draft(), list), nil
}

func (f *PreviewForm) Submit(context.Context) error {
	return f.dispatch(PreviewAcknowledged{})
}

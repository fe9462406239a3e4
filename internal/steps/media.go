package steps

import (
	"context"
	"errors"
	"strings"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/assets"
	"github.com/dharsanguruparan/witverse/internal/model"
)

// MediaInput holds the non-file media fields.
type MediaInput struct {
	PromoVideoURL string `json:"promoVideoUrl"`
}

// MediaView renders the media step.
type MediaView struct {
	Logo          *AssetView  `json:"appLogo"`
	Screenshots   []AssetView `json:"screenshots"`
	Banner        *AssetView  `json:"appBanner"`
	PromoVideoURL string      `json:"promoVideoUrl"`
	Remaining     int         `json:"screenshotsRemaining"`
}

// MediaForm reads its files from the draft asset store.
type MediaForm struct {
	dispatch Dispatch
	store    *assets.Store
	input    MediaInput
}

func NewMediaForm(dispatch Dispatch, store *assets.Store) *MediaForm {
	return &MediaForm{dispatch: dispatch, store: store}
}

func (f *MediaForm) Step() ID { return Media }

func (f *MediaForm) Load(d model.DraftRecord) {
	f.input = MediaInput{PromoVideoURL: d.Media.PromoVideoURL}
}

func (f *MediaForm) Set(in MediaInput) { f.input = in }

func (f *MediaForm) View(context.Context) (any, error) {
	shots := f.store.Screenshots()
	return MediaView{
		Logo:          ViewOf(f.slot(model.SlotLogo)),
		Screenshots:   ViewsOf(shots),
		Banner:        ViewOf(f.slot(model.SlotBanner)),
		PromoVideoURL: f.input.PromoVideoURL,
		Remaining:     model.MaxScreenshots - len(shots),
	}, nil
}

func (f *MediaForm) Submit(context.Context) error {
	logo := f.slot(model.SlotLogo)
	if logo == nil {
		return apperr.Validation("appLogo", "App logo is required")
	}
	return f.dispatch(MediaCompleted{Media: model.Media{
		Logo:          logo,
		Screenshots:   f.store.Screenshots(),
		PromoVideoURL: strings.TrimSpace(f.input.PromoVideoURL),
		Banner:        f.slot(model.SlotBanner),
	}})
}

func (f *MediaForm) slot(slot model.Slot) *model.StagedAsset {
	a, err := f.store.Get(slot)
	if errors.Is(err, assets.ErrNotFound) {
		return nil
	}
	return a
}

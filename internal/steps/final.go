package steps

import (
	"context"

	"github.com/dharsanguruparan/witverse/internal/model"
)

// Submitter runs the final submission.
type Submitter interface {
	CanSubmit() bool
	InFlight() bool
	Submit(ctx context.Context) (string, error)
}

// FinalView renders the final step.
type FinalView struct {
	CanSubmit bool `json:"canSubmit"`
	InFlight  bool `json:"inFlight"`
}

// FinalForm has no input of its own; its action is enabled only while every
// earlier step is complete and a user is signed in.
type FinalForm struct {
	submitter Submitter
}

func NewFinalForm(s Submitter) *FinalForm {
	return &FinalForm{submitter: s}
}

func (f *FinalForm) Step() ID { return Final }

func (f *FinalForm) Load(model.DraftRecord) {}

func (f *FinalForm) View(context.Context) (any, error) {
	return FinalView{CanSubmit: f.submitter.CanSubmit(), InFlight: f.submitter.InFlight()}, nil
}

func (f *FinalForm) Submit(ctx context.Context) error {
	_, err := f.submitter.Submit(ctx)
	return err
}

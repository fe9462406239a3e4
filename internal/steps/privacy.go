package steps

import (
	"context"
	"strings"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/assets"
	"github.com/dharsanguruparan/witverse/internal/model"
)

// PrivacyInput is the privacy and terms form.
type PrivacyInput struct {
	AgreedToTerms    bool       `json:"agreedToTerms"`
	AgreedToPolicy   bool       `json:"agreedToPolicy"`
	PolicyMode       UploadMode `json:"privacyPolicyType"`
	PrivacyPolicyURL string     `json:"privacyPolicyUrl"`
}

// PrivacyView renders the privacy step.
type PrivacyView struct {
	PrivacyInput
	PrivacyPolicyFile *AssetView `json:"privacyPolicyFile"`
}

// PrivacyForm requires both agreements. The policy document or URL is optional
// and only the one matching the selected mode is kept.
type PrivacyForm struct {
	dispatch Dispatch
	store    *assets.Store
	input    PrivacyInput
}

func NewPrivacyForm(dispatch Dispatch, store *assets.Store) *PrivacyForm {
	return &PrivacyForm{dispatch: dispatch, store: store, input: PrivacyInput{PolicyMode: ModeNone}}
}

func (f *PrivacyForm) Step() ID { return Privacy }

func (f *PrivacyForm) Load(d model.DraftRecord) {
	mode := ModeNone
	switch {
	case d.Compliance.PrivacyPolicyFile != nil:
		mode = ModeFile
	case d.Compliance.PrivacyPolicyURL != "":
		mode = ModeURL
	}
	f.input = PrivacyInput{
		AgreedToTerms:    d.Compliance.AgreedToTerms,
		AgreedToPolicy:   d.Compliance.AgreedToPolicy,
		PolicyMode:       mode,
		PrivacyPolicyURL: d.Compliance.PrivacyPolicyURL,
	}
}

func (f *PrivacyForm) Set(in PrivacyInput) {
	if in.PolicyMode == "" {
		in.PolicyMode = ModeNone
	}
	f.input = in
}

func (f *PrivacyForm) View(context.Context) (any, error) {
	file, _ := f.store.Get(model.SlotPrivacyPolicy)
	return PrivacyView{PrivacyInput: f.input, PrivacyPolicyFile: ViewOf(file)}, nil
}

func (f *PrivacyForm) Submit(context.Context) error {
	in := f.input
	if !in.AgreedToTerms || !in.AgreedToPolicy {
		return apperr.Validation("agreement", "You must agree to the terms and policies to continue")
	}
	c := model.Compliance{AgreedToTerms: true, AgreedToPolicy: true}
	switch in.PolicyMode {
	case ModeFile:
		// A missing file is allowed: the policy is optional.
		c.PrivacyPolicyFile, _ = f.store.Get(model.SlotPrivacyPolicy)
	case ModeURL:
		c.PrivacyPolicyURL = strings.TrimSpace(in.PrivacyPolicyURL)
	}
	return f.dispatch(PrivacyCompleted{Compliance: c})
}

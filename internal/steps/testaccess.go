package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/validation"
)

// TestAccessInput is the beta testing form.
type TestAccessInput struct {
	ReleaseType     model.ReleaseType `json:"releaseType"`
	TestEmails      []string          `json:"testEmails"`
	CollectFeedback bool              `json:"collectFeedback"`
	FeedbackPrompt  string            `json:"feedbackPrompt"`
}

// TestAccessForm chooses the release type and manages the private tester list.
type TestAccessForm struct {
	dispatch Dispatch
	input    TestAccessInput
}

func NewTestAccessForm(dispatch Dispatch) *TestAccessForm {
	return &TestAccessForm{dispatch: dispatch, input: TestAccessInput{ReleaseType: model.ReleasePublic, TestEmails: []string{}}}
}

func (f *TestAccessForm) Step() ID { return TestAccess }

func (f *TestAccessForm) Load(d model.DraftRecord) {
	f.input = TestAccessInput{
		ReleaseType:     d.Distribution.ReleaseType,
		TestEmails:      append([]string{}, d.Distribution.TestEmails...),
		CollectFeedback: d.Distribution.CollectFeedback,
		FeedbackPrompt:  d.Distribution.FeedbackPrompt,
	}
}

// Set replaces the input. Emails are re-added one by one and every rejection
// is reported; accepted emails are kept. The release type is passed on to the
// draft right away; a rejected edit is returned before any field errors.
func (f *TestAccessForm) Set(in TestAccessInput) error {
	var errs apperr.FieldErrors
	if in.ReleaseType == "" {
		in.ReleaseType = model.ReleasePublic
	}
	if !in.ReleaseType.Valid() {
		errs.Add(apperr.Validation("releaseType", fmt.Sprintf("Unknown release type %q", in.ReleaseType)))
		in.ReleaseType = f.input.ReleaseType
	}
	emails := in.TestEmails
	in.TestEmails = []string{}
	f.input = in
	for _, e := range emails {
		errs.Add(f.AddEmail(e))
	}
	if err := f.dispatch(ReleaseChanged{ReleaseType: f.input.ReleaseType}); err != nil {
		return err
	}
	return errs.Err()
}

// AddEmail appends a tester. Blank input is ignored.
func (f *TestAccessForm) AddEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	if err := validation.CheckEmail(email); err != nil {
		return err
	}
	for _, e := range f.input.TestEmails {
		if e == email {
			return apperr.Validation(validation.FieldEmail, "This email is already in the list")
		}
	}
	if len(f.input.TestEmails) >= model.MaxTestEmails {
		return apperr.Validation(validation.FieldEmail, fmt.Sprintf("Maximum %d test users allowed", model.MaxTestEmails))
	}
	f.input.TestEmails = append(f.input.TestEmails, email)
	return nil
}

// RemoveEmail drops email when present.
func (f *TestAccessForm) RemoveEmail(email string) bool {
	for i, e := range f.input.TestEmails {
		if e == email {
			f.input.TestEmails = append(f.input.TestEmails[:i:i], f.input.TestEmails[i+1:]...)
			return true
		}
	}
	return false
}

func (f *TestAccessForm) View(context.Context) (any, error) {
	in := f.input
	in.TestEmails = append([]string{}, f.input.TestEmails...)
	return in, nil
}

func (f *TestAccessForm) Submit(context.Context) error {
	in := f.input
	if in.ReleaseType == model.ReleasePrivate && len(in.TestEmails) == 0 {
		return apperr.Validation("testEmails", "Please add at least one email for private testing")
	}
	return f.dispatch(TestAccessCompleted{Distribution: model.Distribution{
		ReleaseType:     in.ReleaseType,
		TestEmails:      in.TestEmails,
		CollectFeedback: in.CollectFeedback,
		FeedbackPrompt:  strings.TrimSpace(in.FeedbackPrompt),
	}})
}

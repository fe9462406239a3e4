// Package wizard implements the step state machine that drives one draft
// submission. The controller owns the aggregated draft, the draft asset store
// and the step forms; forms report completion through a single dispatch
// function and the controller merges each payload into the draft.
package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/assets"
	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/steps"
)

// Messages returned by Submit when the final action is disabled.
const (
	MsgIncomplete  = "Please complete all required sections before submitting"
	MsgNotSignedIn = "You must be logged in to upload an app."
	MsgInFlight    = "A submission is already in progress"
	MsgSubmitted   = "This draft has already been submitted"
)

// Submitter runs the submission pipeline for a draft snapshot.
type Submitter interface {
	Submit(ctx context.Context, d model.DraftRecord, id *identity.Identity) (string, error)
}

// Controller is the wizard state machine for one draft.
type Controller struct {
	mu        sync.Mutex
	current   steps.ID
	draft     model.DraftRecord
	identity  *identity.Identity
	inFlight  bool
	submitted string

	store     *assets.Store
	forms     [steps.Count]steps.Form
	provider  identity.Provider
	submitter Submitter
	log       logrus.FieldLogger

	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// Option customises a Controller.
type Option func(*config)

type config struct {
	log        logrus.FieldLogger
	store      *assets.Store
	categories steps.CategoryLister
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) { c.log = l }
}

// WithStore supplies the draft asset store, for example one with a custom
// previewer.
func WithStore(s *assets.Store) Option {
	return func(c *config) { c.store = s }
}

// WithCategories lets the preview resolve category names.
func WithCategories(l steps.CategoryLister) Option {
	return func(c *config) { c.categories = l }
}

// New constructs a controller at the first step with an empty draft and
// subscribes to identity changes until Close is called.
func New(ctx context.Context, provider identity.Provider, submitter Submitter, opts ...Option) (*Controller, error) {
	cfg := config{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = assets.NewStore()
	}
	current, err := provider.CurrentIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	c := &Controller{
		draft:     model.NewDraft(),
		identity:  current,
		store:     cfg.store,
		provider:  provider,
		submitter: submitter,
		log:       cfg.log,
		done:      make(chan struct{}),
	}
	c.forms = [steps.Count]steps.Form{
		steps.NewMetadataForm(c.Dispatch),
		steps.NewMediaForm(c.Dispatch, c.store),
		steps.NewBuildForm(c.Dispatch, c.store),
		steps.NewPrivacyForm(c.Dispatch, c.store),
		steps.NewTestAccessForm(c.Dispatch),
		steps.NewPreviewForm(c.Dispatch, c.Draft, cfg.categories),
		steps.NewFinalForm(c),
	}

	c.store.OnChange(c.assetsChanged)

	changes, unsubscribe := provider.Subscribe()
	c.unsubscribe = unsubscribe
	go c.watchIdentity(changes)
	return c, nil
}

func (c *Controller) watchIdentity(changes <-chan *identity.Identity) {
	defer close(c.done)
	for id := range changes {
		c.mu.Lock()
		c.identity = id
		c.mu.Unlock()
		if id == nil {
			c.log.Debug("identity cleared")
		} else {
			c.log.WithField("user", id.ID).Debug("identity changed")
		}
	}
}

// SyncIdentity reads the provider directly instead of waiting for the
// subscription to deliver the latest change.
func (c *Controller) SyncIdentity(ctx context.Context) error {
	id, err := c.provider.CurrentIdentity(ctx)
	if err != nil {
		return fmt.Errorf("read identity: %w", err)
	}
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	return nil
}

// Close detaches from the store, ends the identity subscription and waits
// for the watcher to exit.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.store.OnChange(nil)
		c.unsubscribe()
		<-c.done
	})
}

// Store returns the draft asset store.
func (c *Controller) Store() *assets.Store { return c.store }

// Form returns the form of step id.
func (c *Controller) Form(id steps.ID) (steps.Form, bool) {
	if !id.Valid() {
		return nil, false
	}
	return c.forms[id], true
}

// Current returns the active step.
func (c *Controller) Current() steps.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Draft returns a copy of the aggregated draft.
func (c *Controller) Draft() model.DraftRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Complete evaluates the predicate of id against the current draft.
func (c *Controller) Complete(id steps.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Complete(id, c.draft)
}

// CanNavigateTo reports whether every step before j is complete.
func (c *Controller) CanNavigateTo(j steps.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canNavigateTo(j)
}

func (c *Controller) canNavigateTo(j steps.ID) bool {
	return j.Valid() && c.submitted == "" && FirstIncomplete(c.draft, j) == j
}

// GoTo jumps to step j. Backward moves are always allowed; forward moves are
// allowed only up to the first incomplete step.
func (c *Controller) GoTo(j steps.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goTo(j)
}

func (c *Controller) goTo(j steps.ID) error {
	if !j.Valid() {
		return apperr.Validation("step", fmt.Sprintf("Unknown step %d", j))
	}
	if c.submitted != "" {
		return apperr.Precondition(MsgSubmitted)
	}
	if j > c.current && !c.canNavigateTo(j) {
		blocker := FirstIncomplete(c.draft, j)
		return apperr.Precondition(fmt.Sprintf("Complete %q before continuing", blocker.Title()))
	}
	c.current = j
	c.forms[j].Load(c.draft.Clone())
	return nil
}

// Next moves forward one step when the current step is complete.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == steps.Final {
		return apperr.Precondition("Already at the last step")
	}
	return c.goTo(c.current + 1)
}

// Back moves to the previous step; at the first step it does nothing.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == 0 {
		return nil
	}
	return c.goTo(c.current - 1)
}

// Dispatch merges a completion into the draft and advances past its step.
// Only the fields owned by the completing step change. Edits are merged the
// same way but leave the current step alone.
func (c *Controller) Dispatch(msg steps.Completion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.submitted != "":
		return apperr.Precondition(MsgSubmitted)
	case c.inFlight:
		return apperr.Precondition(MsgInFlight)
	case !c.canNavigateTo(msg.Step()):
		blocker := FirstIncomplete(c.draft, msg.Step())
		return apperr.Precondition(fmt.Sprintf("Complete %q before continuing", blocker.Title()))
	}
	msg.Apply(&c.draft)
	if _, ok := msg.(steps.Edit); ok {
		return nil
	}
	c.log.WithField("step", msg.Step().String()).Debug("step completed")

	next := msg.Step() + 1
	if next > steps.Final {
		next = steps.Final
	}
	c.current = next
	c.forms[next].Load(c.draft.Clone())
	return nil
}

// assetsChanged keeps the asset fields of completed steps in line with the
// store. Steps that were never completed stay empty, so staging alone
// completes nothing, while removing a required file makes its step
// incomplete again until it is resubmitted.
func (c *Controller) assetsChanged(slot model.Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitted != "" {
		return
	}
	d := &c.draft
	switch slot {
	case model.SlotLogo, model.SlotBanner, model.SlotScreenshot:
		if d.Media.Logo == nil {
			return
		}
		d.Media.Logo = c.staged(model.SlotLogo)
		d.Media.Banner = c.staged(model.SlotBanner)
		d.Media.Screenshots = c.store.Screenshots()
	case model.SlotBuild:
		if d.Build.AppFile != nil {
			d.Build.AppFile = c.staged(model.SlotBuild)
		}
	case model.SlotPrivacyPolicy:
		if d.Compliance.PrivacyPolicyFile != nil {
			d.Compliance.PrivacyPolicyFile = c.staged(model.SlotPrivacyPolicy)
		}
	}
	c.log.WithField("slot", slot).Debug("staged assets changed")
}

func (c *Controller) staged(slot model.Slot) *model.StagedAsset {
	a, err := c.store.Get(slot)
	if err != nil {
		return nil
	}
	return a
}

// CanSubmit reports whether the final action is enabled: every input step is
// complete, a user is signed in and no submission is running.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocked() == ""
}

func (c *Controller) blocked() string {
	switch {
	case c.submitted != "":
		return MsgSubmitted
	case c.inFlight:
		return MsgInFlight
	case !ReadyToSubmit(c.draft):
		return MsgIncomplete
	case c.identity == nil:
		return MsgNotSignedIn
	default:
		return ""
	}
}

// InFlight reports whether a submission is running.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Submitted returns the created app id once the draft was submitted.
func (c *Controller) Submitted() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted, c.submitted != ""
}

// Submit runs the submission pipeline on a snapshot of the draft. On success
// the draft and staged assets are discarded and the wizard is finished; on
// failure everything is kept so the user can retry.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	id, err := c.provider.CurrentIdentity(ctx)
	if err != nil {
		return "", apperr.Unexpected(fmt.Errorf("read identity: %w", err))
	}
	c.mu.Lock()
	c.identity = id
	if msg := c.blocked(); msg != "" {
		c.mu.Unlock()
		return "", apperr.Precondition(msg)
	}
	c.inFlight = true
	snapshot := c.draft.Clone()
	c.mu.Unlock()

	appID, err := c.submitter.Submit(ctx, snapshot, id)
	if err == nil {
		c.finish(appID)
		return appID, nil
	}

	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
	if apperr.KindOf(err) == apperr.KindUnexpected {
		c.log.WithError(err).Error("submission failed unexpectedly")
	}
	return "", err
}

func (c *Controller) finish(appID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.submitted = appID
	c.draft = model.NewDraft()
	c.store.Clear()
	for _, f := range c.forms {
		f.Load(c.draft)
	}
	c.log.WithField("app", appID).Info("draft submitted")
}

// Status is a snapshot of the wizard for clients.
type Status struct {
	Current   string           `json:"currentStep"`
	Index     int              `json:"currentIndex"`
	Steps     []StepStatus     `json:"steps"`
	CanSubmit bool             `json:"canSubmit"`
	Blocked   string           `json:"blockedReason,omitempty"`
	InFlight  bool             `json:"inFlight"`
	AppID     string           `json:"appId,omitempty"`
	SignedIn  bool             `json:"signedIn"`
	Draft     steps.Projection `json:"draft"`
}

// StepStatus describes one step in the step list.
type StepStatus struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Complete  bool   `json:"complete"`
	Navigable bool   `json:"navigable"`
}

// Status captures the current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		Current:  c.current.String(),
		Index:    int(c.current),
		Blocked:  c.blocked(),
		InFlight: c.inFlight,
		AppID:    c.submitted,
		SignedIn: c.identity != nil,
		Draft:    steps.Project(c.draft, nil),
	}
	s.CanSubmit = s.Blocked == ""
	for _, id := range steps.All() {
		s.Steps = append(s.Steps, StepStatus{
			ID:        id.String(),
			Title:     id.Title(),
			Complete:  Complete(id, c.draft),
			Navigable: c.canNavigateTo(id),
		})
	}
	return s
}

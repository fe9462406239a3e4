// Package model contains the struct definitions shared across packages: the
// draft being assembled by the wizard, the assets staged for it and the record
// that is finally written to the database.
package model

import (
	"bytes"
	"io"
	"time"
)

// ReleaseType selects who can install the app once approved.
type ReleaseType string

const (
	ReleasePublic  ReleaseType = "public"
	ReleasePrivate ReleaseType = "private"
)

// Valid reports whether r is one of the known release types.
func (r ReleaseType) Valid() bool {
	return r == ReleasePublic || r == ReleasePrivate
}

// DefaultVersion is the version a fresh draft starts with.
const DefaultVersion = "1.0.0"

// MaxScreenshots bounds the screenshot sequence of one draft.
const MaxScreenshots = 10

// MaxTestEmails bounds the private beta tester list.
const MaxTestEmails = 10

// Slot names a singleton asset position in a draft.
type Slot string

const (
	SlotLogo          Slot = "logo"
	SlotBanner        Slot = "banner"
	SlotBuild         Slot = "build"
	SlotPrivacyPolicy Slot = "privacy_policy"
	// SlotScreenshot is used for assets that live in the screenshot sequence.
	SlotScreenshot Slot = "screenshot"
)

// StagedAsset is a user selected file held in memory until final submission.
type StagedAsset struct {
	ID          string `json:"id"`
	Slot        Slot   `json:"slot"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
	// Preview is an inline renderable representation (a data URI).
	Preview string `json:"-"`
	// Excerpt is the leading text of a document asset, empty for images.
	Excerpt  string    `json:"excerpt,omitempty"`
	Pages    int       `json:"pages,omitempty"`
	StagedAt time.Time `json:"stagedAt"`
	Data     []byte    `json:"-"`
}

// Reader returns a fresh reader over the staged bytes.
func (a *StagedAsset) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// Metadata is owned by the metadata step.
type Metadata struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"shortDescription"`
	FullDescription  string   `json:"fullDescription"`
	Category         string   `json:"category"`
	Tags             []string `json:"tags"`
}

// Media is owned by the media step.
type Media struct {
	Logo          *StagedAsset   `json:"appLogo,omitempty"`
	Screenshots   []*StagedAsset `json:"screenshots"`
	PromoVideoURL string         `json:"promoVideoUrl,omitempty"`
	Banner        *StagedAsset   `json:"appBanner,omitempty"`
}

// Build is owned by the build step. Exactly one of AppFile and WebAppURL is set
// once the step has completed.
type Build struct {
	AppFile      *StagedAsset `json:"appFile,omitempty"`
	WebAppURL    string       `json:"webAppUrl,omitempty"`
	ReleaseNotes string       `json:"releaseNotes,omitempty"`
}

// Compliance is owned by the privacy and terms step.
type Compliance struct {
	AgreedToTerms     bool         `json:"agreedToTerms"`
	AgreedToPolicy    bool         `json:"agreedToPolicy"`
	PrivacyPolicyFile *StagedAsset `json:"privacyPolicyFile,omitempty"`
	PrivacyPolicyURL  string       `json:"privacyPolicyUrl,omitempty"`
}

// Distribution is owned by the test access step.
type Distribution struct {
	ReleaseType     ReleaseType `json:"releaseType"`
	TestEmails      []string    `json:"testEmails"`
	CollectFeedback bool        `json:"collectFeedback"`
	FeedbackPrompt  string      `json:"feedbackPrompt,omitempty"`
}

// DraftRecord accumulates one app submission across the wizard steps. It has
// no identity until it is persisted.
type DraftRecord struct {
	Metadata Metadata `json:"metadata"`
	// Version is written by both the metadata and the build step.
	Version      string       `json:"version"`
	Media        Media        `json:"media"`
	Build        Build        `json:"build"`
	Compliance   Compliance   `json:"compliance"`
	Distribution Distribution `json:"distribution"`
}

// NewDraft returns an empty draft with the documented defaults.
func NewDraft() DraftRecord {
	return DraftRecord{
		Metadata:     Metadata{Tags: []string{}},
		Version:      DefaultVersion,
		Media:        Media{Screenshots: []*StagedAsset{}},
		Distribution: Distribution{ReleaseType: ReleasePublic, TestEmails: []string{}},
	}
}

// Clone copies the slices of d so the copy can be handed out while the
// original keeps changing. Staged assets are immutable and shared.
func (d DraftRecord) Clone() DraftRecord {
	d.Metadata.Tags = append([]string{}, d.Metadata.Tags...)
	d.Media.Screenshots = append([]*StagedAsset{}, d.Media.Screenshots...)
	d.Distribution.TestEmails = append([]string{}, d.Distribution.TestEmails...)
	return d
}

// Assets lists every staged asset referenced by d.
func (d DraftRecord) Assets() []*StagedAsset {
	var out []*StagedAsset
	for _, a := range []*StagedAsset{d.Media.Logo, d.Build.AppFile, d.Compliance.PrivacyPolicyFile, d.Media.Banner} {
		if a != nil {
			out = append(out, a)
		}
	}
	return append(out, d.Media.Screenshots...)
}

// Category is a read-only reference entity; drafts only store its id.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconName    string `json:"iconName,omitempty"`
}

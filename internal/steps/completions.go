package steps

import "github.com/dharsanguruparan/witverse/internal/model"

// MetadataCompleted carries the app info step. Version is shared with the
// build step; the latest submission of either wins.
type MetadataCompleted struct {
	Metadata model.Metadata
	Version  string
}

func (MetadataCompleted) Step() ID { return Metadata }

func (c MetadataCompleted) Apply(d *model.DraftRecord) {
	d.Metadata = c.Metadata
	d.Metadata.Tags = append([]string{}, c.Metadata.Tags...)
	d.Version = c.Version
}

// MediaCompleted carries the staged media at the time of submission.
type MediaCompleted struct {
	Media model.Media
}

func (MediaCompleted) Step() ID { return Media }

func (c MediaCompleted) Apply(d *model.DraftRecord) {
	d.Media = c.Media
	d.Media.Screenshots = append([]*model.StagedAsset{}, c.Media.Screenshots...)
}

// BuildCompleted carries either the build file or the web URL.
type BuildCompleted struct {
	Build   model.Build
	Version string
}

func (BuildCompleted) Step() ID { return Build }

func (c BuildCompleted) Apply(d *model.DraftRecord) {
	d.Build = c.Build
	d.Version = c.Version
}

// PrivacyCompleted carries the agreements and the optional policy.
type PrivacyCompleted struct {
	Compliance model.Compliance
}

func (PrivacyCompleted) Step() ID { return Privacy }

func (c PrivacyCompleted) Apply(d *model.DraftRecord) { d.Compliance = c.Compliance }

// TestAccessCompleted carries the release type and tester list.
type TestAccessCompleted struct {
	Distribution model.Distribution
}

func (TestAccessCompleted) Step() ID { return TestAccess }

func (c TestAccessCompleted) Apply(d *model.DraftRecord) {
	d.Distribution = c.Distribution
	d.Distribution.TestEmails = append([]string{}, c.Distribution.TestEmails...)
}

// ReleaseChanged records the release type as soon as it is chosen. The tester
// list only reaches the draft with TestAccessCompleted, so a private release
// stays incomplete until the step is submitted with at least one email.
type ReleaseChanged struct {
	ReleaseType model.ReleaseType
}

func (ReleaseChanged) Step() ID { return TestAccess }

func (ReleaseChanged) edit() {}

func (c ReleaseChanged) Apply(d *model.DraftRecord) {
	if d.Distribution.ReleaseType != c.ReleaseType {
		d.Distribution.ReleaseType = c.ReleaseType
		d.Distribution.TestEmails = []string{}
	}
}

// PreviewAcknowledged moves past the read-only preview. It owns no fields.
type PreviewAcknowledged struct{}

func (PreviewAcknowledged) Step() ID { return Preview }

func (PreviewAcknowledged) Apply(*model.DraftRecord) {}

// Package pipeline turns a completed draft into one persisted app record. It
// uploads the staged assets one after another in a fixed order, then inserts
// the aggregate row. A failure at any step aborts the attempt before the row
// is written; objects already uploaded are left in place and reported to an
// OrphanSink for asynchronous cleanup.
package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/metrics"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/remote"
	"github.com/dharsanguruparan/witverse/internal/validation"
)

// Step labels prefixed to upload failures.
const (
	StepLogo          = "Logo"
	StepAppFile       = "App file"
	StepScreenshot    = "Screenshot"
	StepPrivacyPolicy = "Privacy policy"
	StepBanner        = "Banner"
)

// ErrNotSignedIn is the message returned when no identity is present.
const ErrNotSignedIn = "You must be logged in to upload an app."

// Pipeline runs submissions against the remote capabilities.
type Pipeline struct {
	objects remote.Objects
	apps    remote.Apps
	orphans remote.OrphanSink
	buckets remote.Buckets
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
	suffix  func() string
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithOrphanSink reports objects left behind by failed attempts.
func WithOrphanSink(s remote.OrphanSink) Option {
	return func(p *Pipeline) { p.orphans = s }
}

func WithBuckets(b remote.Buckets) Option {
	return func(p *Pipeline) { p.buckets = b }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New constructs a Pipeline.
func New(objects remote.Objects, apps remote.Apps, opts ...Option) *Pipeline {
	p := &Pipeline{
		objects: objects,
		apps:    apps,
		buckets: remote.DefaultBuckets(),
		log:     logrus.StandardLogger(),
		now:     time.Now,
		suffix:  randomSuffix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// attempt tracks the objects uploaded by one Submit call.
type attempt struct {
	uploaded []model.ObjectRef
}

// Submit uploads every staged asset of d and inserts the app record, returning
// its id. It never retries; callers re-run the whole sequence after a failure.
func (p *Pipeline) Submit(ctx context.Context, d model.DraftRecord, id *identity.Identity) (string, error) {
	if id == nil || id.ID == "" {
		return "", apperr.Precondition(ErrNotSignedIn)
	}
	if d.Media.Logo == nil {
		return "", apperr.Precondition("App logo is required")
	}
	log := p.log.WithField("developer", id.ID)
	att := &attempt{}

	appID, err := p.run(ctx, att, d, id)
	if err != nil {
		p.abandon(ctx, log, att, err)
		return "", err
	}
	p.observeOutcome("created")
	log.WithFields(logrus.Fields{"app": appID, "objects": len(att.uploaded)}).Info("app submitted for review")
	return appID, nil
}

func (p *Pipeline) run(ctx context.Context, att *attempt, d model.DraftRecord, id *identity.Identity) (string, error) {
	logoURL, err := p.upload(ctx, att, StepLogo, p.buckets.Logos, d.Media.Logo)
	if err != nil {
		return "", err
	}

	var fileURL string
	if d.Build.AppFile != nil {
		if fileURL, err = p.upload(ctx, att, StepAppFile, p.buckets.Files, d.Build.AppFile); err != nil {
			return "", err
		}
	}

	screenshotURLs := make([]string, 0, len(d.Media.Screenshots))
	for _, shot := range d.Media.Screenshots {
		u, err := p.upload(ctx, att, StepScreenshot, p.buckets.Screenshots, shot)
		if err != nil {
			return "", err
		}
		screenshotURLs = append(screenshotURLs, u)
	}

	policyURL := d.Compliance.PrivacyPolicyURL
	if d.Compliance.PrivacyPolicyFile != nil {
		if policyURL, err = p.upload(ctx, att, StepPrivacyPolicy, p.buckets.Policies, d.Compliance.PrivacyPolicyFile); err != nil {
			return "", err
		}
	}

	var bannerURL string
	if d.Media.Banner != nil {
		if bannerURL, err = p.upload(ctx, att, StepBanner, p.buckets.Banners, d.Media.Banner); err != nil {
			return "", err
		}
	}

	rec := Record(d, id.ID, Locators{
		Logo:          logoURL,
		File:          fileURL,
		Screenshots:   screenshotURLs,
		PrivacyPolicy: policyURL,
		Banner:        bannerURL,
	}, p.now())
	appID, err := p.apps.InsertApp(ctx, rec)
	if err != nil {
		return "", apperr.Insert(err)
	}
	return appID, nil
}

func (p *Pipeline) upload(ctx context.Context, att *attempt, step, bucket string, a *model.StagedAsset) (string, error) {
	name := ObjectName(p.now(), a.Name, p.suffix())
	var timer metrics.Timer
	if p.metrics != nil {
		timer = p.metrics.StartTimer()
	}
	url, err := p.objects.UploadObject(ctx, bucket, name, a.Reader(), a.Size, a.ContentType)
	if p.metrics != nil {
		timer.Finish(p.metrics.UploadDurationsMilliseconds.WithLabelValues(bucket, metrics.Successful(err == nil)))
	}
	if err != nil {
		return "", apperr.Upload(step, err)
	}
	att.uploaded = append(att.uploaded, model.ObjectRef{Bucket: bucket, Name: name})
	p.log.WithFields(logrus.Fields{"step": step, "bucket": bucket, "object": name}).Debug("object uploaded")
	return url, nil
}

// abandon logs the failure and hands the attempt's objects to the orphan sink.
// Reporting outlives a cancelled request context.
func (p *Pipeline) abandon(ctx context.Context, log logrus.FieldLogger, att *attempt, cause error) {
	step := "unexpected"
	var e *apperr.Error
	if errors.As(cause, &e) && e.Step != "" {
		step = e.Step
	}
	p.observeOutcome(step)
	log.WithError(cause).WithField("uploaded", len(att.uploaded)).Warn("submission failed")
	if len(att.uploaded) == 0 || p.orphans == nil {
		return
	}
	if err := p.orphans.ReportOrphans(context.WithoutCancel(ctx), att.uploaded, cause.Error()); err != nil {
		log.WithError(err).Error("report orphaned objects")
		return
	}
	if p.metrics != nil {
		p.metrics.OrphansReportedTotal.Add(float64(len(att.uploaded)))
	}
}

func (p *Pipeline) observeOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	}
}

// Locators are the public URLs produced by the uploads.
type Locators struct {
	Logo          string
	File          string
	Screenshots   []string
	PrivacyPolicy string
	Banner        string
}

// Record assembles the row for d. Test users are only kept for private
// releases.
func Record(d model.DraftRecord, developerID string, l Locators, now time.Time) *model.AppRecord {
	releaseType := d.Distribution.ReleaseType
	if releaseType == "" {
		releaseType = model.ReleasePublic
	}
	testUsers := []string{}
	if releaseType == model.ReleasePrivate {
		testUsers = append(testUsers, d.Distribution.TestEmails...)
	}
	return &model.AppRecord{
		Name:             d.Metadata.Name,
		ShortDescription: d.Metadata.ShortDescription,
		Description:      d.Metadata.FullDescription,
		CategoryID:       d.Metadata.Category,
		Tags:             append([]string{}, d.Metadata.Tags...),
		Version:          d.Version,
		DeveloperID:      developerID,
		LogoURL:          l.Logo,
		FileURL:          model.NullIfEmpty(l.File),
		WebURL:           model.NullIfEmpty(d.Build.WebAppURL),
		PromoVideoURL:    model.NullIfEmpty(d.Media.PromoVideoURL),
		BannerURL:        model.NullIfEmpty(l.Banner),
		ScreenshotURLs:   append([]string{}, l.Screenshots...),
		ReleaseNotes:     model.NullIfEmpty(d.Build.ReleaseNotes),
		PrivacyPolicyURL: model.NullIfEmpty(l.PrivacyPolicy),
		ReleaseType:      releaseType,
		TestUsers:        testUsers,
		CollectFeedback:  d.Distribution.CollectFeedback,
		FeedbackPrompt:   model.NullIfEmpty(d.Distribution.FeedbackPrompt),
		Status:           model.StatusPendingReview,
		CreatedAt:        now.UTC(),
	}
}

// ObjectName builds "<unix millis>_<suffix>.<ext>" from the original file name.
func ObjectName(now time.Time, filename, suffix string) string {
	ext := validation.Extension(filename)
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%d_%s.%s", now.UnixMilli(), suffix, ext)
}

const suffixLen = 7

// randomSuffix returns seven lower-case base36 characters.
func randomSuffix() string {
	u := uuid.New()
	s := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(s) < suffixLen {
		s = strings.Repeat("0", suffixLen-len(s)) + s
	}
	return s[len(s)-suffixLen:]
}

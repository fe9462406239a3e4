package pipeline

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/metrics"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/remote/remotetest"
)

func asset(slot model.Slot, name, ct string, data string) *model.StagedAsset {
	return &model.StagedAsset{ID: name, Slot: slot, Name: name, ContentType: ct, Size: int64(len(data)), Data: []byte(data)}
}

func fullDraft() model.DraftRecord {
	d := model.NewDraft()
	d.Metadata = model.Metadata{
		Name:             "CampusMap",
		ShortDescription: "Find your way",
		FullDescription:  "A navigation tool for campus",
		Category:         "utilities",
		Tags:             []string{"maps"},
	}
	d.Media.Logo = asset(model.SlotLogo, "logo.png", "image/png", "logo")
	d.Media.Screenshots = []*model.StagedAsset{
		asset(model.SlotScreenshot, "first.png", "image/png", "one"),
		asset(model.SlotScreenshot, "second.webp", "image/webp", "two"),
	}
	d.Build.AppFile = asset(model.SlotBuild, "campus.apk", "application/octet-stream", "apk")
	d.Compliance = model.Compliance{AgreedToTerms: true, AgreedToPolicy: true}
	return d
}

type fixture struct {
	objects *remotetest.ObjectStore
	apps    *remotetest.AppRecorder
	orphans *remotetest.OrphanRecorder
	metrics *metrics.Metrics
	p       *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		objects: remotetest.NewObjectStore(),
		apps:    &remotetest.AppRecorder{},
		orphans: &remotetest.OrphanRecorder{},
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	f.p = New(f.objects, f.apps,
		WithOrphanSink(f.orphans),
		WithLogger(log),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
	return f
}

var user = &identity.Identity{ID: "dev-1"}

func TestSubmitRequiresIdentity(t *testing.T) {
	f := newFixture()
	_, err := f.p.Submit(context.Background(), fullDraft(), nil)
	require.Error(t, err)
	assert.Equal(t, "You must be logged in to upload an app.", err.Error())
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
	assert.Zero(t, f.objects.Calls())
}

func TestSubmitUploadsInOrderAndInserts(t *testing.T) {
	f := newFixture()
	id, err := f.p.Submit(context.Background(), fullDraft(), user)
	require.NoError(t, err)
	assert.Equal(t, "app-1", id)

	objs := f.objects.Objects()
	require.Len(t, objs, 4)
	buckets := []string{objs[0].Bucket, objs[1].Bucket, objs[2].Bucket, objs[3].Bucket}
	assert.Equal(t, []string{"app-logos", "app-files", "app-screenshots", "app-screenshots"}, buckets)
	assert.Equal(t, "one", string(objs[2].Data))
	assert.Equal(t, "two", string(objs[3].Data))

	apps := f.apps.Apps()
	require.Len(t, apps, 1)
	rec := apps[0]
	assert.Equal(t, model.StatusPendingReview, rec.Status)
	assert.Equal(t, "dev-1", rec.DeveloperID)
	assert.Equal(t, []string{
		"http://objects.test/app-screenshots/" + objs[2].Name,
		"http://objects.test/app-screenshots/" + objs[3].Name,
	}, rec.ScreenshotURLs)
	require.NotNil(t, rec.FileURL)
	assert.Nil(t, rec.WebURL)
	assert.Nil(t, rec.BannerURL)
	assert.Nil(t, rec.PrivacyPolicyURL)
	assert.Equal(t, model.ReleasePublic, rec.ReleaseType)
	assert.Empty(t, rec.TestUsers)
	assert.Empty(t, f.orphans.Reports())
}

func TestSubmitScreenshotFailureOrphansEarlierUploads(t *testing.T) {
	f := newFixture()
	d := fullDraft()
	d.Build.AppFile = nil
	d.Build.WebAppURL = "https://app.wit.edu"
	// logo, screenshot 1, screenshot 2
	f.objects.FailOn = func(call int, bucket, name string) error {
		if call == 3 {
			return errors.New("network error")
		}
		return nil
	}

	_, err := f.p.Submit(context.Background(), d, user)
	require.Error(t, err)
	assert.Equal(t, "Screenshot upload failed: network error", err.Error())
	assert.Equal(t, apperr.KindRemote, apperr.KindOf(err))
	assert.Empty(t, f.apps.Apps())

	objs := f.objects.Objects()
	require.Len(t, objs, 2)
	reports := f.orphans.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, []model.ObjectRef{
		{Bucket: "app-logos", Name: objs[0].Name},
		{Bucket: "app-screenshots", Name: objs[1].Name},
	}, reports[0].Objects)
	assert.Equal(t, err.Error(), reports[0].Reason)
}

func TestSubmitStepLabels(t *testing.T) {
	d := fullDraft()
	d.Compliance.PrivacyPolicyFile = asset(model.SlotPrivacyPolicy, "policy.pdf", "application/pdf", "%PDF")
	d.Media.Banner = asset(model.SlotBanner, "banner.jpg", "image/jpeg", "banner")
	tests := []struct {
		bucket string
		msg    string
	}{
		{"app-logos", "Logo upload failed: boom"},
		{"app-files", "App file upload failed: boom"},
		{"app-screenshots", "Screenshot upload failed: boom"},
		{"privacy-policies", "Privacy policy upload failed: boom"},
		{"app-banners", "Banner upload failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.bucket, func(t *testing.T) {
			f := newFixture()
			f.objects.FailOn = func(_ int, bucket, _ string) error {
				if bucket == tt.bucket {
					return errors.New("boom")
				}
				return nil
			}
			_, err := f.p.Submit(context.Background(), d, user)
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
			assert.Empty(t, f.apps.Apps())
		})
	}
}

func TestSubmitInsertFailure(t *testing.T) {
	f := newFixture()
	f.apps.Err = errors.New("duplicate key")
	_, err := f.p.Submit(context.Background(), fullDraft(), user)
	require.Error(t, err)
	assert.Equal(t, "Failed to create app: duplicate key", err.Error())
	require.Len(t, f.orphans.Reports(), 1)
	assert.Len(t, f.orphans.Reports()[0].Objects, 4)
}

func TestSubmitOrphanReportFailureKeepsOriginalError(t *testing.T) {
	f := newFixture()
	f.orphans.Err = errors.New("redis down")
	f.apps.Err = errors.New("db down")
	_, err := f.p.Submit(context.Background(), fullDraft(), user)
	assert.EqualError(t, err, "Failed to create app: db down")
}

func TestSubmitRetryRerunsEverything(t *testing.T) {
	f := newFixture()
	fail := true
	f.objects.FailOn = func(call int, _, _ string) error {
		if fail && call == 2 {
			return errors.New("timeout")
		}
		return nil
	}
	_, err := f.p.Submit(context.Background(), fullDraft(), user)
	require.Error(t, err)
	fail = false
	_, err = f.p.Submit(context.Background(), fullDraft(), user)
	require.NoError(t, err)
	// 2 calls in the failed attempt, 4 in the retry.
	assert.Equal(t, 6, f.objects.Calls())
}

func TestRecordPrivateKeepsTestUsers(t *testing.T) {
	d := fullDraft()
	d.Distribution = model.Distribution{ReleaseType: model.ReleasePrivate, TestEmails: []string{"a@wit.edu"}, CollectFeedback: true, FeedbackPrompt: "How was it?"}
	rec := Record(d, "dev", Locators{Logo: "l"}, time.Now())
	assert.Equal(t, []string{"a@wit.edu"}, rec.TestUsers)
	require.NotNil(t, rec.FeedbackPrompt)
	assert.Equal(t, "How was it?", *rec.FeedbackPrompt)

	d.Distribution.ReleaseType = model.ReleasePublic
	rec = Record(d, "dev", Locators{Logo: "l"}, time.Now())
	assert.Empty(t, rec.TestUsers)
	assert.NotNil(t, rec.TestUsers)
}

func TestRecordPolicyURLFromDraftWhenNoFile(t *testing.T) {
	d := fullDraft()
	d.Compliance.PrivacyPolicyURL = "https://wit.edu/privacy"
	f := newFixture()
	_, err := f.p.Submit(context.Background(), d, user)
	require.NoError(t, err)
	rec := f.apps.Apps()[0]
	require.NotNil(t, rec.PrivacyPolicyURL)
	assert.Equal(t, "https://wit.edu/privacy", *rec.PrivacyPolicyURL)
}

func TestObjectName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123_abc1234.png", ObjectName(now, "Logo.PNG", "abc1234"))
	assert.Equal(t, "1700000000123_abc1234.bin", ObjectName(now, "README", "abc1234"))

	pattern := regexp.MustCompile(`^[0-9a-z]{7}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := randomSuffix()
		assert.Regexp(t, pattern, s)
		seen[s] = true
	}
	assert.Greater(t, len(seen), 95)
}

package steps

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/assets"
	"github.com/dharsanguruparan/witverse/internal/model"
)

type recorder struct {
	got []Completion
	err error
}

func (r *recorder) dispatch(c Completion) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, c)
	return nil
}

func (r *recorder) last(t *testing.T) Completion {
	t.Helper()
	require.NotEmpty(t, r.got)
	return r.got[len(r.got)-1]
}

func stage(t *testing.T, s *assets.Store, slot model.Slot, name, ct string) *model.StagedAsset {
	t.Helper()
	a, err := s.Stage(context.Background(), slot, assets.File{Name: name, ContentType: ct, Data: bytes.Repeat([]byte{1}, 16)})
	require.NoError(t, err)
	return a
}

func TestParse(t *testing.T) {
	for _, id := range All() {
		got, ok := Parse(id.String())
		require.True(t, ok)
		assert.Equal(t, id, got)
		assert.NotEmpty(t, id.Title())
	}
	_, ok := Parse("nope")
	assert.False(t, ok)
	assert.Equal(t, 7, Count)
	assert.Equal(t, "unknown", ID(9).String())
}

func TestMetadataSubmit(t *testing.T) {
	r := &recorder{}
	f := NewMetadataForm(r.dispatch)
	f.Set(MetadataInput{
		Name:             "CampusMap",
		ShortDescription: "Find your way",
		FullDescription:  "A navigation tool for campus",
		Category:         "utilities",
		Tags:             []string{" maps ", "", "maps", "campus"},
	})
	require.NoError(t, f.Submit(context.Background()))

	c, ok := r.last(t).(MetadataCompleted)
	require.True(t, ok)
	assert.Equal(t, "CampusMap", c.Metadata.Name)
	assert.Equal(t, []string{"maps", "campus"}, c.Metadata.Tags)
	assert.Equal(t, model.DefaultVersion, c.Version)
}

func TestMetadataShortDescriptionLimitIgnoresPadding(t *testing.T) {
	r := &recorder{}
	f := NewMetadataForm(r.dispatch)
	short := strings.Repeat("x", 100)
	f.Set(MetadataInput{
		Name:             "CampusMap",
		ShortDescription: "  " + short + "  ",
		FullDescription:  "A navigation tool for campus",
		Category:         "utilities",
	})
	require.NoError(t, f.Submit(context.Background()))
	c, ok := r.last(t).(MetadataCompleted)
	require.True(t, ok)
	assert.Equal(t, short, c.Metadata.ShortDescription)

	f.Set(MetadataInput{
		Name:             "CampusMap",
		ShortDescription: " " + short + "x ",
		FullDescription:  "A navigation tool for campus",
		Category:         "utilities",
	})
	err := f.Submit(context.Background())
	var errs apperr.FieldErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "Short description must be 100 characters or less.", errs.ByField()["shortDescription"])
}

func TestMetadataSubmitReportsEveryField(t *testing.T) {
	r := &recorder{}
	f := NewMetadataForm(r.dispatch)
	f.Set(MetadataInput{Name: "ab", FullDescription: "short"})
	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Empty(t, r.got)

	var errs apperr.FieldErrors
	require.ErrorAs(t, err, &errs)
	byField := errs.ByField()
	assert.Equal(t, "App name must be at least 3 characters.", byField["name"])
	assert.Equal(t, "Short description is required.", byField["shortDescription"])
	assert.Equal(t, "Description must be at least 10 characters.", byField["fullDescription"])
	assert.Equal(t, "Please select a category.", byField["category"])
}

func TestMetadataTags(t *testing.T) {
	f := NewMetadataForm((&recorder{}).dispatch)
	assert.True(t, f.AddTag("a"))
	assert.False(t, f.AddTag(" a "))
	assert.False(t, f.AddTag("   "))
	assert.True(t, f.AddTag("b"))
	assert.True(t, f.RemoveTag("a"))
	assert.False(t, f.RemoveTag("a"))
	v, err := f.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, v.(MetadataInput).Tags)
}

func TestMetadataLoad(t *testing.T) {
	d := model.NewDraft()
	d.Metadata.Name = "CampusMap"
	d.Version = "2.0.0"
	f := NewMetadataForm((&recorder{}).dispatch)
	f.Load(d)
	v, _ := f.View(context.Background())
	assert.Equal(t, "CampusMap", v.(MetadataInput).Name)
	assert.Equal(t, "2.0.0", v.(MetadataInput).Version)
}

func TestMediaRequiresLogo(t *testing.T) {
	r := &recorder{}
	store := assets.NewStore()
	f := NewMediaForm(r.dispatch, store)
	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "App logo is required", err.Error())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	logo := stage(t, store, model.SlotLogo, "logo.png", "image/png")
	_, err = store.StageMany(context.Background(), []assets.File{
		{Name: "1.png", ContentType: "image/png", Data: []byte{1}},
		{Name: "2.png", ContentType: "image/png", Data: []byte{2}},
	})
	require.NoError(t, err)
	f.Set(MediaInput{PromoVideoURL: " https://youtu.be/x "})
	require.NoError(t, f.Submit(context.Background()))

	c := r.last(t).(MediaCompleted)
	assert.Same(t, logo, c.Media.Logo)
	assert.Len(t, c.Media.Screenshots, 2)
	assert.Nil(t, c.Media.Banner)
	assert.Equal(t, "https://youtu.be/x", c.Media.PromoVideoURL)

	v, _ := f.View(context.Background())
	assert.Equal(t, 8, v.(MediaView).Remaining)
}

func TestBuildModes(t *testing.T) {
	r := &recorder{}
	store := assets.NewStore()
	f := NewBuildForm(r.dispatch, store)

	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "App file is required", err.Error())

	f.Set(BuildInput{Mode: ModeURL, Version: ""})
	var errs apperr.FieldErrors
	require.ErrorAs(t, f.Submit(context.Background()), &errs)
	assert.Equal(t, "Web App URL is required", errs.ByField()["webAppUrl"])
	assert.Equal(t, "Version number is required", errs.ByField()["version"])

	f.Set(BuildInput{Mode: ModeURL, WebAppURL: "https://app.wit.edu", Version: "1.2.0"})
	require.NoError(t, f.Submit(context.Background()))
	c := r.last(t).(BuildCompleted)
	assert.Equal(t, "https://app.wit.edu", c.Build.WebAppURL)
	assert.Nil(t, c.Build.AppFile)
	assert.Equal(t, "1.2.0", c.Version)

	file := stage(t, store, model.SlotBuild, "campus.apk", "application/octet-stream")
	f.Set(BuildInput{Mode: ModeFile, WebAppURL: "https://ignored", Version: "1.3.0"})
	require.NoError(t, f.Submit(context.Background()))
	c = r.last(t).(BuildCompleted)
	assert.Same(t, file, c.Build.AppFile)
	assert.Empty(t, c.Build.WebAppURL)
}

func TestPrivacy(t *testing.T) {
	r := &recorder{}
	store := assets.NewStore()
	f := NewPrivacyForm(r.dispatch, store)

	f.Set(PrivacyInput{AgreedToTerms: true})
	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "You must agree to the terms and policies to continue", err.Error())

	// File mode without a file still completes.
	f.Set(PrivacyInput{AgreedToTerms: true, AgreedToPolicy: true, PolicyMode: ModeFile, PrivacyPolicyURL: "https://x"})
	require.NoError(t, f.Submit(context.Background()))
	c := r.last(t).(PrivacyCompleted)
	assert.Nil(t, c.Compliance.PrivacyPolicyFile)
	assert.Empty(t, c.Compliance.PrivacyPolicyURL)

	f.Set(PrivacyInput{AgreedToTerms: true, AgreedToPolicy: true, PolicyMode: ModeURL, PrivacyPolicyURL: "https://wit.edu/privacy"})
	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, "https://wit.edu/privacy", r.last(t).(PrivacyCompleted).Compliance.PrivacyPolicyURL)
}

func TestTestAccessEmails(t *testing.T) {
	f := NewTestAccessForm((&recorder{}).dispatch)
	assert.NoError(t, f.AddEmail("  "))
	assert.EqualError(t, f.AddEmail("nope"), "Please enter a valid email address")
	require.NoError(t, f.AddEmail("a@wit.edu"))
	assert.EqualError(t, f.AddEmail("a@wit.edu"), "This email is already in the list")
	for _, e := range []string{"b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		require.NoError(t, f.AddEmail(e+"@wit.edu"))
	}
	assert.EqualError(t, f.AddEmail("k@wit.edu"), "Maximum 10 test users allowed")
	assert.True(t, f.RemoveEmail("a@wit.edu"))
	assert.False(t, f.RemoveEmail("a@wit.edu"))
	assert.NoError(t, f.AddEmail("k@wit.edu"))
}

func TestTestAccessPrivateNeedsEmail(t *testing.T) {
	r := &recorder{}
	f := NewTestAccessForm(r.dispatch)
	require.NoError(t, f.Set(TestAccessInput{ReleaseType: model.ReleasePrivate}))
	err := f.Submit(context.Background())
	require.Error(t, err)
	require.Len(t, r.got, 1)
	assert.Equal(t, ReleaseChanged{ReleaseType: model.ReleasePrivate}, r.got[0])

	err = f.Set(TestAccessInput{ReleaseType: model.ReleasePrivate, TestEmails: []string{"a@wit.edu", "bad", "a@wit.edu"}})
	var errs apperr.FieldErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
	require.NoError(t, f.Submit(context.Background()))
	c := r.last(t).(TestAccessCompleted)
	assert.Equal(t, []string{"a@wit.edu"}, c.Distribution.TestEmails)
	assert.Equal(t, model.ReleasePrivate, c.Distribution.ReleaseType)
}

func TestTestAccessRejectsUnknownReleaseType(t *testing.T) {
	f := NewTestAccessForm((&recorder{}).dispatch)
	err := f.Set(TestAccessInput{ReleaseType: "internal"})
	require.Error(t, err)
	v, _ := f.View(context.Background())
	assert.Equal(t, model.ReleasePublic, v.(TestAccessInput).ReleaseType)
}

func TestDispatchErrorIsReturned(t *testing.T) {
	r := &recorder{err: errors.New("gated")}
	f := NewTestAccessForm(r.dispatch)
	assert.EqualError(t, f.Submit(context.Background()), "gated")
	assert.EqualError(t, f.Set(TestAccessInput{ReleaseType: model.ReleasePrivate, TestEmails: []string{"bad"}}), "gated")
}

func TestReleaseChangedIsAnEdit(t *testing.T) {
	var c Completion = ReleaseChanged{ReleaseType: model.ReleasePrivate}
	_, ok := c.(Edit)
	assert.True(t, ok)
	_, ok = Completion(TestAccessCompleted{}).(Edit)
	assert.False(t, ok)

	d := model.NewDraft()
	d.Distribution = model.Distribution{ReleaseType: model.ReleasePrivate, TestEmails: []string{"a@wit.edu"}, CollectFeedback: true}
	ReleaseChanged{ReleaseType: model.ReleasePrivate}.Apply(&d)
	assert.Equal(t, []string{"a@wit.edu"}, d.Distribution.TestEmails)

	ReleaseChanged{ReleaseType: model.ReleasePublic}.Apply(&d)
	assert.Equal(t, model.ReleasePublic, d.Distribution.ReleaseType)
	assert.Empty(t, d.Distribution.TestEmails)
	assert.True(t, d.Distribution.CollectFeedback)
}

type categories []model.Category

func (c categories) ListCategories(context.Context) ([]model.Category, error) { return c, nil }

func TestPreviewResolvesCategoryName(t *testing.T) {
	d := model.NewDraft()
	d.Metadata.Category = "c2"
	r := &recorder{}
	f := NewPreviewForm(r.dispatch, func() model.DraftRecord { return d }, categories{{ID: "c1", Name: "Games"}, {ID: "c2", Name: "Utilities"}})
	v, err := f.View(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Utilities", v.(Projection).CategoryName)

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, Preview, r.last(t).Step())
}

func TestCompletionsOverwriteOwnedFieldsOnly(t *testing.T) {
	d := model.NewDraft()
	MetadataCompleted{Metadata: model.Metadata{Name: "A"}, Version: "1.0.1"}.Apply(&d)
	TestAccessCompleted{Distribution: model.Distribution{ReleaseType: model.ReleasePrivate, TestEmails: []string{"a@wit.edu"}}}.Apply(&d)
	MetadataCompleted{Metadata: model.Metadata{Name: "B"}, Version: "1.0.2"}.Apply(&d)

	assert.Equal(t, "B", d.Metadata.Name)
	assert.Equal(t, "1.0.2", d.Version)
	assert.Equal(t, model.ReleasePrivate, d.Distribution.ReleaseType)
	assert.Equal(t, []string{"a@wit.edu"}, d.Distribution.TestEmails)
}

type fakeSubmitter struct{ can bool }

func (f fakeSubmitter) CanSubmit() bool { return f.can }
func (f fakeSubmitter) InFlight() bool  { return false }
func (f fakeSubmitter) Submit(context.Context) (string, error) {
	if !f.can {
		return "", apperr.Precondition("Please complete all required sections before submitting")
	}
	return "app-1", nil
}

func TestFinalForm(t *testing.T) {
	f := NewFinalForm(fakeSubmitter{})
	v, _ := f.View(context.Background())
	assert.False(t, v.(FinalView).CanSubmit)
	assert.Error(t, f.Submit(context.Background()))
	assert.NoError(t, NewFinalForm(fakeSubmitter{can: true}).Submit(context.Background()))
}

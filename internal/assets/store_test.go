package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/model"
)

const mb = 1024 * 1024

func png(name string, size int) File {
	return File{Name: name, ContentType: "image/png", Data: bytes.Repeat([]byte{0x89}, size)}
}

func names(list []*model.StagedAsset) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Name)
	}
	return out
}

func TestStageLogo(t *testing.T) {
	s := NewStore()
	asset, err := s.Stage(context.Background(), model.SlotLogo, png("logo.png", 1024))
	require.NoError(t, err)
	assert.Equal(t, model.SlotLogo, asset.Slot)
	assert.Equal(t, int64(1024), asset.Size)
	assert.True(t, strings.HasPrefix(asset.Preview, "data:image/png;base64,"))
	assert.NotEmpty(t, asset.ID)

	got, err := s.Get(model.SlotLogo)
	require.NoError(t, err)
	assert.Same(t, asset, got)
}

func TestStageOversizedLogoLeavesSlotUnset(t *testing.T) {
	s := NewStore()
	_, err := s.Stage(context.Background(), model.SlotLogo, png("logo.png", 6*mb))
	require.Error(t, err)
	assert.Equal(t, "File size exceeds 5MB", err.Error())
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = s.Get(model.SlotLogo)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStageFailureKeepsPreviousAsset(t *testing.T) {
	s := NewStore()
	first, err := s.Stage(context.Background(), model.SlotBanner, png("banner.png", 10))
	require.NoError(t, err)
	_, err = s.Stage(context.Background(), model.SlotBanner, File{Name: "banner.gif", ContentType: "image/gif", Data: []byte("GIF89a")})
	require.Error(t, err)
	got, err := s.Get(model.SlotBanner)
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestStageBuildAcceptsOctetStreamApk(t *testing.T) {
	s := NewStore()
	asset, err := s.Stage(context.Background(), model.SlotBuild, File{Name: "campus.apk", ContentType: "application/octet-stream", Data: []byte("PK")})
	require.NoError(t, err)
	assert.Empty(t, asset.Preview)
}

func TestStageSniffsMissingContentType(t *testing.T) {
	s := NewStore()
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	asset, err := s.Stage(context.Background(), model.SlotLogo, File{Name: "logo", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.ContentType)
}

func TestStageSniffsUndeclaredSVG(t *testing.T) {
	s := NewStore()
	data := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)
	asset, err := s.Stage(context.Background(), model.SlotLogo, File{Name: "logo.svg", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", asset.ContentType)
}

func TestStagePrivacyPolicyNonPDF(t *testing.T) {
	s := NewStore()
	_, err := s.Stage(context.Background(), model.SlotPrivacyPolicy, File{Name: "p.txt", ContentType: "text/plain", Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, "Only PDF files are allowed", err.Error())

	// Unparseable PDFs are accepted without an excerpt.
	asset, err := s.Stage(context.Background(), model.SlotPrivacyPolicy, File{Name: "p.pdf", ContentType: "application/pdf", Data: []byte("%PDF-")})
	require.NoError(t, err)
	assert.Empty(t, asset.Excerpt)
}

func TestStageRejectsScreenshotSlot(t *testing.T) {
	_, err := NewStore().Stage(context.Background(), model.SlotScreenshot, png("a.png", 1))
	assert.Error(t, err)
}

func TestStageManyAtomicOnInvalidFile(t *testing.T) {
	s := NewStore()
	_, err := s.StageMany(context.Background(), []File{
		png("1.png", 10),
		png("2.png", 11*mb),
		png("3.png", 10),
	})
	require.Error(t, err)
	assert.Equal(t, "File size exceeds 10MB", err.Error())
	assert.Zero(t, s.ScreenshotCount())
}

func TestStageManyCeiling(t *testing.T) {
	s := NewStore()
	batch := make([]File, 0, 8)
	for i := 0; i < 8; i++ {
		batch = append(batch, png(fmt.Sprintf("%d.png", i), 4))
	}
	staged, err := s.StageMany(context.Background(), batch)
	require.NoError(t, err)
	assert.Len(t, staged, 8)

	_, err = s.StageMany(context.Background(), []File{png("a.png", 1), png("b.png", 1), png("c.png", 1)})
	require.Error(t, err)
	assert.Equal(t, "Maximum 10 screenshots allowed", err.Error())
	assert.Equal(t, 8, s.ScreenshotCount())

	_, err = s.StageMany(context.Background(), []File{png("a.png", 1), png("b.png", 1)})
	require.NoError(t, err)
	assert.Equal(t, 10, s.ScreenshotCount())
}

func TestStageManyKeepsBatchOrder(t *testing.T) {
	s := NewStore()
	_, err := s.StageMany(context.Background(), []File{png("a.png", 1), png("b.png", 1), png("c.png", 1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, names(s.Screenshots()))
}

type failingPreviewer struct{}

func (failingPreviewer) Preview(context.Context, *model.StagedAsset) error {
	return errors.New("decode failed")
}

func TestStageManyPreviewFailureStagesNothing(t *testing.T) {
	s := NewStore(WithPreviewer(failingPreviewer{}))
	_, err := s.StageMany(context.Background(), []File{png("a.png", 1)})
	require.Error(t, err)
	assert.Zero(t, s.ScreenshotCount())
}

func TestStageCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStore()
	_, err := s.Stage(ctx, model.SlotLogo, png("logo.png", 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func stageShots(t *testing.T, s *Store, n ...string) {
	t.Helper()
	files := make([]File, 0, len(n))
	for _, name := range n {
		files = append(files, png(name, 1))
	}
	_, err := s.StageMany(context.Background(), files)
	require.NoError(t, err)
}

func TestReorder(t *testing.T) {
	s := NewStore()
	stageShots(t, s, "a", "b", "c", "d")

	s.Reorder(2, Up)
	assert.Equal(t, []string{"a", "c", "b", "d"}, names(s.Screenshots()))

	s.Reorder(0, Up)
	s.Reorder(3, Down)
	s.Reorder(7, Down)
	s.Reorder(-1, Up)
	s.Reorder(1, Direction("sideways"))
	assert.Equal(t, []string{"a", "c", "b", "d"}, names(s.Screenshots()))
}

func TestReorderUpThenDownRestoresOrder(t *testing.T) {
	for i := 1; i < 4; i++ {
		s := NewStore()
		stageShots(t, s, "a", "b", "c", "d", "e")
		before := names(s.Screenshots())
		s.Reorder(i, Up)
		s.Reorder(i-1, Down)
		assert.Equal(t, before, names(s.Screenshots()), "index %d", i)
	}
}

func TestRemove(t *testing.T) {
	s := NewStore()
	stageShots(t, s, "a", "b", "c")
	require.NoError(t, s.RemoveScreenshot(1))
	assert.Equal(t, []string{"a", "c"}, names(s.Screenshots()))
	assert.ErrorIs(t, s.RemoveScreenshot(5), ErrNotFound)

	_, err := s.Stage(context.Background(), model.SlotLogo, png("logo.png", 1))
	require.NoError(t, err)
	require.NoError(t, s.Remove(model.SlotLogo))
	assert.ErrorIs(t, s.Remove(model.SlotLogo), ErrNotFound)
}

func TestFindAndClear(t *testing.T) {
	s := NewStore()
	stageShots(t, s, "a")
	logo, err := s.Stage(context.Background(), model.SlotLogo, png("logo.png", 1))
	require.NoError(t, err)
	shot := s.Screenshots()[0]

	got, err := s.Find(shot.ID)
	require.NoError(t, err)
	assert.Same(t, shot, got)
	got, err = s.Find(logo.ID)
	require.NoError(t, err)
	assert.Same(t, logo, got)

	s.Clear()
	_, err = s.Find(logo.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.ScreenshotCount())
}

func TestStagedDataIsCopied(t *testing.T) {
	s := NewStore()
	f := png("logo.png", 4)
	asset, err := s.Stage(context.Background(), model.SlotLogo, f)
	require.NoError(t, err)
	f.Data[0] = 0
	assert.Equal(t, byte(0x89), asset.Data[0])
}

func TestOnChangeReportsMutations(t *testing.T) {
	s := NewStore()
	var got []model.Slot
	s.OnChange(func(slot model.Slot) {
		// The store must be usable from inside the hook.
		_ = s.ScreenshotCount()
		got = append(got, slot)
	})
	ctx := context.Background()

	_, err := s.Stage(ctx, model.SlotLogo, png("logo.png", 4))
	require.NoError(t, err)
	_, err = s.StageMany(ctx, []File{png("1.png", 4), png("2.png", 4)})
	require.NoError(t, err)
	s.Reorder(0, Down)
	s.Reorder(0, Up)
	require.NoError(t, s.RemoveScreenshot(1))
	require.NoError(t, s.Remove(model.SlotLogo))
	_, err = s.Stage(ctx, model.SlotLogo, png("big.png", 6*mb))
	require.Error(t, err)
	assert.ErrorIs(t, s.Remove(model.SlotBanner), ErrNotFound)
	s.Clear()

	assert.Equal(t, []model.Slot{
		model.SlotLogo,
		model.SlotScreenshot,
		model.SlotScreenshot,
		model.SlotScreenshot,
		model.SlotLogo,
	}, got)
}

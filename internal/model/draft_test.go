package model

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraftDefaults(t *testing.T) {
	d := NewDraft()
	assert.Equal(t, "1.0.0", d.Version)
	assert.Equal(t, ReleasePublic, d.Distribution.ReleaseType)
	assert.Empty(t, d.Metadata.Tags)
	assert.NotNil(t, d.Metadata.Tags)
	assert.Nil(t, d.Media.Logo)
}

func TestCloneDetachesSlices(t *testing.T) {
	d := NewDraft()
	d.Metadata.Tags = []string{"maps"}
	c := d.Clone()
	c.Metadata.Tags[0] = "changed"
	c.Distribution.TestEmails = append(c.Distribution.TestEmails, "a@b.c")
	assert.Equal(t, "maps", d.Metadata.Tags[0])
	assert.Empty(t, d.Distribution.TestEmails)
}

func TestAssetsOrder(t *testing.T) {
	logo := &StagedAsset{ID: "logo"}
	shot := &StagedAsset{ID: "s1"}
	d := NewDraft()
	d.Media.Logo = logo
	d.Media.Screenshots = []*StagedAsset{shot}
	assert.Equal(t, []*StagedAsset{logo, shot}, d.Assets())
}

func TestStagedAssetReader(t *testing.T) {
	a := &StagedAsset{Data: []byte("png")}
	for i := 0; i < 2; i++ {
		b, err := io.ReadAll(a.Reader())
		require.NoError(t, err)
		assert.Equal(t, "png", string(b))
	}
}

func TestReleaseTypeValid(t *testing.T) {
	assert.True(t, ReleasePrivate.Valid())
	assert.False(t, ReleaseType("internal").Valid())
	assert.Nil(t, NullIfEmpty(""))
	assert.Equal(t, "x", *NullIfEmpty("x"))
}

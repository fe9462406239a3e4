package assets

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/dharsanguruparan/witverse/internal/model"
	pdfutil "github.com/dharsanguruparan/witverse/internal/pdf"
)

// Previewer fills the preview fields of a freshly staged asset.
type Previewer interface {
	Preview(ctx context.Context, asset *model.StagedAsset) error
}

// excerptRunes bounds the text kept from a policy document.
const excerptRunes = 280

// DefaultPreviewer renders images as data URIs and extracts a text excerpt
// from PDF documents. Build artifacts get no preview.
type DefaultPreviewer struct{}

// Preview implements Previewer.
func (DefaultPreviewer) Preview(ctx context.Context, asset *model.StagedAsset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch {
	case strings.HasPrefix(asset.ContentType, "image/"):
		asset.Preview = DataURI(asset.ContentType, asset.Data)
	case asset.Slot == model.SlotPrivacyPolicy:
		// Unparseable documents are still accepted; they just have no excerpt.
		if summary, err := pdfutil.Inspect(asset.Data, excerptRunes); err == nil {
			asset.Pages = summary.Pages
			asset.Excerpt = summary.Excerpt
		}
	}
	return ctx.Err()
}

// DataURI encodes data as an inline renderable URI.
func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

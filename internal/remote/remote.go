// Package remote declares the capabilities the submission core needs from the
// hosted backend: identity, object upload, row insert and category listing.
// Production implementations live in s3storage, repository and queue.
package remote

import (
	"context"
	"io"

	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/model"
)

// Identity supplies the signed-in user.
type Identity = identity.Provider

// Objects uploads one object and returns its public URL. Callers always pass
// a fresh unique name, so implementations need not deduplicate.
type Objects interface {
	UploadObject(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) (string, error)
}

// Apps inserts the aggregate app row and returns its id.
type Apps interface {
	InsertApp(ctx context.Context, app *model.AppRecord) (string, error)
}

// Categories lists the selectable categories ordered by name.
type Categories interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// OrphanSink receives objects uploaded by a failed submission attempt.
type OrphanSink interface {
	ReportOrphans(ctx context.Context, objects []model.ObjectRef, reason string) error
}

// Buckets names the object store buckets per asset kind.
type Buckets struct {
	Logos       string `json:"logos"`
	Files       string `json:"files"`
	Screenshots string `json:"screenshots"`
	Policies    string `json:"policies"`
	Banners     string `json:"banners"`
}

// DefaultBuckets returns the bucket names the store front reads from.
func DefaultBuckets() Buckets {
	return Buckets{
		Logos:       "app-logos",
		Files:       "app-files",
		Screenshots: "app-screenshots",
		Policies:    "privacy-policies",
		Banners:     "app-banners",
	}
}

// All lists every bucket once.
func (b Buckets) All() []string {
	return []string{b.Logos, b.Files, b.Screenshots, b.Policies, b.Banners}
}

// Package remotetest provides in-memory fakes of the remote capabilities for
// tests.
package remotetest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/dharsanguruparan/witverse/internal/model"
)

// Object is one uploaded object.
type Object struct {
	Bucket      string
	Name        string
	ContentType string
	Data        []byte
}

// ObjectStore records uploads. FailOn, when set, is consulted before each
// upload with the 1-based call number; a non-nil error fails that upload.
type ObjectStore struct {
	mu      sync.Mutex
	BaseURL string
	FailOn  func(call int, bucket, name string) error
	calls   int
	objects []Object
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{BaseURL: "http://objects.test"}
}

func (s *ObjectStore) UploadObject(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.calls++
	call := s.calls
	fail := s.FailOn
	s.mu.Unlock()
	if fail != nil {
		if err := fail(call, bucket, name); err != nil {
			return "", err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: read %d, declared %d", len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = append(s.objects, Object{Bucket: bucket, Name: name, ContentType: contentType, Data: data})
	return fmt.Sprintf("%s/%s/%s", s.BaseURL, bucket, name), nil
}

// Objects returns uploads in call order.
func (s *ObjectStore) Objects() []Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Object(nil), s.objects...)
}

// Calls returns the number of upload attempts including failed ones.
func (s *ObjectStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// AppRecorder records inserted rows.
type AppRecorder struct {
	mu   sync.Mutex
	Err  error
	apps []model.AppRecord
}

func (a *AppRecorder) InsertApp(ctx context.Context, app *model.AppRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return "", a.Err
	}
	id := fmt.Sprintf("app-%d", len(a.apps)+1)
	rec := *app
	rec.ID = id
	a.apps = append(a.apps, rec)
	return id, nil
}

// Apps returns inserted rows in order.
func (a *AppRecorder) Apps() []model.AppRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AppRecord(nil), a.apps...)
}

// Categories is a fixed category list.
type Categories struct {
	List []model.Category
	Err  error
}

func (c *Categories) ListCategories(ctx context.Context) ([]model.Category, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	out := append([]model.Category(nil), c.List...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Report is one ReportOrphans call.
type Report struct {
	Objects []model.ObjectRef
	Reason  string
}

// OrphanRecorder records orphan reports.
type OrphanRecorder struct {
	mu      sync.Mutex
	Err     error
	reports []Report
}

func (o *OrphanRecorder) ReportOrphans(ctx context.Context, objects []model.ObjectRef, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, Report{Objects: append([]model.ObjectRef(nil), objects...), Reason: reason})
	return o.Err
}

// Reports returns recorded reports in order.
func (o *OrphanRecorder) Reports() []Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Report(nil), o.reports...)
}

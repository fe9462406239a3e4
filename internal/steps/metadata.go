package steps

import (
	"context"
	"strings"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/validation"
)

// MetadataInput is the app info form.
type MetadataInput struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"shortDescription"`
	FullDescription  string   `json:"fullDescription"`
	Category         string   `json:"category"`
	Tags             []string `json:"tags"`
	Version          string   `json:"version"`
}

// MetadataForm collects the app name, descriptions, category, tags and version.
type MetadataForm struct {
	dispatch Dispatch
	input    MetadataInput
}

func NewMetadataForm(dispatch Dispatch) *MetadataForm {
	return &MetadataForm{dispatch: dispatch, input: MetadataInput{Tags: []string{}, Version: model.DefaultVersion}}
}

func (f *MetadataForm) Step() ID { return Metadata }

func (f *MetadataForm) Load(d model.DraftRecord) {
	f.input = MetadataInput{
		Name:             d.Metadata.Name,
		ShortDescription: d.Metadata.ShortDescription,
		FullDescription:  d.Metadata.FullDescription,
		Category:         d.Metadata.Category,
		Tags:             append([]string{}, d.Metadata.Tags...),
		Version:          d.Version,
	}
}

// Set replaces the form input. Tags go through AddTag so blanks and duplicates
// are dropped.
func (f *MetadataForm) Set(in MetadataInput) {
	tags := in.Tags
	in.Tags = []string{}
	f.input = in
	for _, t := range tags {
		f.AddTag(t)
	}
}

// AddTag appends a trimmed tag, ignoring blanks and duplicates.
func (f *MetadataForm) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, t := range f.input.Tags {
		if t == tag {
			return false
		}
	}
	f.input.Tags = append(f.input.Tags, tag)
	return true
}

// RemoveTag drops tag when present.
func (f *MetadataForm) RemoveTag(tag string) bool {
	for i, t := range f.input.Tags {
		if t == tag {
			f.input.Tags = append(f.input.Tags[:i:i], f.input.Tags[i+1:]...)
			return true
		}
	}
	return false
}

func (f *MetadataForm) View(context.Context) (any, error) {
	in := f.input
	in.Tags = append([]string{}, f.input.Tags...)
	return in, nil
}

func (f *MetadataForm) Submit(context.Context) error {
	in := f.input
	meta := model.Metadata{
		Name:             strings.TrimSpace(in.Name),
		ShortDescription: strings.TrimSpace(in.ShortDescription),
		FullDescription:  strings.TrimSpace(in.FullDescription),
		Category:         strings.TrimSpace(in.Category),
		Tags:             in.Tags,
	}
	var errs apperr.FieldErrors
	errs.Add(validation.CheckName(meta.Name))
	errs.Add(validation.CheckShortDescription(meta.ShortDescription))
	errs.Add(validation.CheckFullDescription(meta.FullDescription))
	errs.Add(validation.CheckCategory(meta.Category))
	if err := errs.Err(); err != nil {
		return err
	}
	version := strings.TrimSpace(in.Version)
	if version == "" {
		version = model.DefaultVersion
	}
	return f.dispatch(MetadataCompleted{
		Metadata: meta,
		Version: version,
	})
}

package steps

import (
	"context"
	"strings"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/assets"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/validation"
)

// BuildInput is the app build form.
type BuildInput struct {
	Mode         UploadMode `json:"mode"`
	WebAppURL    string     `json:"webAppUrl"`
	Version      string     `json:"version"`
	ReleaseNotes string     `json:"releaseNotes"`
}

// BuildView renders the build step.
type BuildView struct {
	BuildInput
	AppFile *AssetView `json:"appFile"`
}

// BuildForm requires exactly one of a staged build file or a web app URL.
type BuildForm struct {
	dispatch Dispatch
	store    *assets.Store
	input    BuildInput
}

func NewBuildForm(dispatch Dispatch, store *assets.Store) *BuildForm {
	return &BuildForm{dispatch: dispatch, store: store, input: BuildInput{Mode: ModeFile, Version: model.DefaultVersion}}
}

func (f *BuildForm) Step() ID { return Build }

func (f *BuildForm) Load(d model.DraftRecord) {
	mode := ModeFile
	if d.Build.AppFile == nil && d.Build.WebAppURL != "" {
		mode = ModeURL
	}
	f.input = BuildInput{
		Mode:         mode,
		WebAppURL:    d.Build.WebAppURL,
		Version:      d.Version,
		ReleaseNotes: d.Build.ReleaseNotes,
	}
}

func (f *BuildForm) Set(in BuildInput) {
	if in.Mode == "" {
		in.Mode = ModeFile
	}
	f.input = in
}

func (f *BuildForm) View(context.Context) (any, error) {
	file, _ := f.store.Get(model.SlotBuild)
	return BuildView{BuildInput: f.input, AppFile: ViewOf(file)}, nil
}

func (f *BuildForm) Submit(context.Context) error {
	in := f.input
	var (
		errs  apperr.FieldErrors
		build = model.Build{ReleaseNotes: strings.TrimSpace(in.ReleaseNotes)}
	)
	switch in.Mode {
	case ModeFile:
		file, err := f.store.Get(model.SlotBuild)
		if err != nil {
			errs.Add(apperr.Validation("appFile", "App file is required"))
		}
		build.AppFile = file
	case ModeURL:
		build.WebAppURL = strings.TrimSpace(in.WebAppURL)
		if build.WebAppURL == "" {
			errs.Add(apperr.Validation("webAppUrl", "Web App URL is required"))
		}
	default:
		errs.Add(apperr.Validation("mode", "Choose a file upload or a web app URL"))
	}
	errs.Add(validation.CheckVersion(in.Version))
	if err := errs.Err(); err != nil {
		return err
	}
	return f.dispatch(BuildCompleted{Build: build, Version: strings.TrimSpace(in.Version)})
}

package wizard

import (
	"strings"

	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/steps"
)

// Completion predicates are pure functions of the draft; nothing records
// whether a step was visited.

func MetadataComplete(d model.DraftRecord) bool {
	m := d.Metadata
	return present(m.Name) && present(m.ShortDescription) && present(m.FullDescription) && present(m.Category)
}

func MediaComplete(d model.DraftRecord) bool {
	return d.Media.Logo != nil
}

func BuildComplete(d model.DraftRecord) bool {
	return (d.Build.AppFile != nil || present(d.Build.WebAppURL)) && present(d.Version)
}

func PrivacyComplete(d model.DraftRecord) bool {
	return d.Compliance.AgreedToTerms && d.Compliance.AgreedToPolicy
}

func TestAccessComplete(d model.DraftRecord) bool {
	switch d.Distribution.ReleaseType {
	case model.ReleasePublic:
		return true
	case model.ReleasePrivate:
		return len(d.Distribution.TestEmails) > 0
	default:
		return false
	}
}

// ReadyToSubmit holds when all five input steps are complete.
func ReadyToSubmit(d model.DraftRecord) bool {
	return MetadataComplete(d) && MediaComplete(d) && BuildComplete(d) && PrivacyComplete(d) && TestAccessComplete(d)
}

// Complete evaluates the predicate of step id. The preview is always complete.
func Complete(id steps.ID, d model.DraftRecord) bool {
	switch id {
	case steps.Metadata:
		return MetadataComplete(d)
	case steps.Media:
		return MediaComplete(d)
	case steps.Build:
		return BuildComplete(d)
	case steps.Privacy:
		return PrivacyComplete(d)
	case steps.TestAccess:
		return TestAccessComplete(d)
	case steps.Preview:
		return true
	case steps.Final:
		return ReadyToSubmit(d)
	default:
		return false
	}
}

// FirstIncomplete returns the earliest incomplete step before limit, or limit
// when all of them are complete.
func FirstIncomplete(d model.DraftRecord, limit steps.ID) steps.ID {
	for id := steps.ID(0); id < limit; id++ {
		if !Complete(id, d) {
			return id
		}
	}
	return limit
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

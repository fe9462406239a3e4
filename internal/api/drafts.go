package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/steps"
	"github.com/dharsanguruparan/witverse/internal/wizard"
)

// draftResponse is the wizard state of one session.
type draftResponse struct {
	ID string `json:"id"`
	wizard.Status
}

func draftState(sess *session) draftResponse {
	return draftResponse{ID: sess.id, Status: sess.wizard.Status()}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	list := []model.Category{}
	if s.deps.Categories != nil {
		found, err := s.deps.Categories.ListCategories(r.Context())
		if err != nil {
			respondError(w, s.log, &apperr.Error{Kind: apperr.KindRemote, Message: "Failed to load categories", Err: err})
			return
		}
		list = append(list, found...)
	}
	respondJSON(w, s.log, http.StatusOK, list)
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	id, err := s.authenticate(r)
	if err != nil {
		respondJSON(w, s.log, http.StatusUnauthorized, errorResponse{Error: "Invalid or expired token"})
		return
	}
	sess, err := s.sessions.create(r.Context(), id)
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, s.log, http.StatusCreated, draftState(sess))
}

func (s *Server) handleDraftStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.log, http.StatusOK, draftState(sessionFrom(r.Context())))
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !s.sessions.remove(sess.id) {
		respondError(w, s.log, errSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type navigateRequest struct {
	// Step is the zero based index of the target step.
	Step      *int   `json:"step"`
	Direction string `json:"direction" validate:"omitempty,oneof=next back"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, s.log, err)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	var err error
	switch {
	case req.Step != nil:
		err = sess.wizard.GoTo(steps.ID(*req.Step))
	case req.Direction == "next":
		err = sess.wizard.Next()
	case req.Direction == "back":
		err = sess.wizard.Back()
	default:
		err = apperr.Validation("step", "step or direction is required")
	}
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, s.log, http.StatusOK, draftState(sess))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.viewStep(w, r, steps.Preview)
}

func (s *Server) handleStepView(w http.ResponseWriter, r *http.Request) {
	id, ok := steps.Parse(chi.URLParam(r, "step"))
	if !ok {
		respondJSON(w, s.log, http.StatusNotFound, errorResponse{Error: "unknown step"})
		return
	}
	s.viewStep(w, r, id)
}

func (s *Server) viewStep(w http.ResponseWriter, r *http.Request, id steps.ID) {
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()
	form, _ := sess.wizard.Form(id)
	view, err := form.View(r.Context())
	if err != nil {
		respondError(w, s.log, &apperr.Error{Kind: apperr.KindRemote, Message: "Failed to load categories", Err: err})
		return
	}
	respondJSON(w, s.log, http.StatusOK, view)
}

type metadataRequest struct {
	Name             string   `json:"name" validate:"max=256"`
	ShortDescription string   `json:"shortDescription" validate:"max=1000"`
	FullDescription  string   `json:"fullDescription" validate:"max=20000"`
	Category         string   `json:"category" validate:"max=64"`
	Tags             []string `json:"tags" validate:"max=50,dive,max=64"`
	Version          string   `json:"version" validate:"max=64"`
}

type mediaRequest struct {
	PromoVideoURL string `json:"promoVideoUrl" validate:"omitempty,url,max=2048"`
}

type buildRequest struct {
	Mode         string `json:"mode" validate:"omitempty,oneof=file url"`
	WebAppURL    string `json:"webAppUrl" validate:"omitempty,url,max=2048"`
	Version      string `json:"version" validate:"max=64"`
	ReleaseNotes string `json:"releaseNotes" validate:"max=20000"`
}

type privacyRequest struct {
	AgreedToTerms    bool   `json:"agreedToTerms"`
	AgreedToPolicy   bool   `json:"agreedToPolicy"`
	PolicyMode       string `json:"privacyPolicyType" validate:"omitempty,oneof=none file url"`
	PrivacyPolicyURL string `json:"privacyPolicyUrl" validate:"omitempty,url,max=2048"`
}

type testAccessRequest struct {
	ReleaseType     string   `json:"releaseType" validate:"omitempty,oneof=public private"`
	TestEmails      []string `json:"testEmails" validate:"max=100,dive,max=254"`
	CollectFeedback bool     `json:"collectFeedback"`
	FeedbackPrompt  string   `json:"feedbackPrompt" validate:"max=2000"`
}

// handleStepSubmit fills the form of a step from the request body and submits
// it. On success the wizard has advanced to the following step.
func (s *Server) handleStepSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := steps.Parse(chi.URLParam(r, "step"))
	if !ok {
		respondJSON(w, s.log, http.StatusNotFound, errorResponse{Error: "unknown step"})
		return
	}
	if id == steps.Final {
		s.handleSubmit(w, r)
		return
	}
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()
	form, _ := sess.wizard.Form(id)
	if err := s.fill(w, r, form); err != nil {
		respondError(w, s.log, err)
		return
	}
	if err := form.Submit(r.Context()); err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, s.log, http.StatusOK, draftState(sess))
}

func (s *Server) fill(w http.ResponseWriter, r *http.Request, form steps.Form) error {
	switch f := form.(type) {
	case *steps.MetadataForm:
		var req metadataRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		f.Set(steps.MetadataInput{
			Name:             req.Name,
			ShortDescription: req.ShortDescription,
			FullDescription:  req.FullDescription,
			Category:         req.Category,
			Tags:             req.Tags,
			Version:          req.Version,
		})
	case *steps.MediaForm:
		var req mediaRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		f.Set(steps.MediaInput{PromoVideoURL: req.PromoVideoURL})
	case *steps.BuildForm:
		var req buildRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		f.Set(steps.BuildInput{
			Mode:         steps.UploadMode(req.Mode),
			WebAppURL:    req.WebAppURL,
			Version:      req.Version,
			ReleaseNotes: req.ReleaseNotes,
		})
	case *steps.PrivacyForm:
		var req privacyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		f.Set(steps.PrivacyInput{
			AgreedToTerms:    req.AgreedToTerms,
			AgreedToPolicy:   req.AgreedToPolicy,
			PolicyMode:       steps.UploadMode(req.PolicyMode),
			PrivacyPolicyURL: req.PrivacyPolicyURL,
		})
	case *steps.TestAccessForm:
		var req testAccessRequest
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
		return f.Set(steps.TestAccessInput{
			ReleaseType:     model.ReleaseType(req.ReleaseType),
			TestEmails:      req.TestEmails,
			CollectFeedback: req.CollectFeedback,
			FeedbackPrompt:  req.FeedbackPrompt,
		})
	}
	return nil
}

type submitResponse struct {
	AppID  string          `json:"appId"`
	Status model.AppStatus `json:"status"`
}

// handleSubmit runs the final submission. The session lock is held for the
// whole attempt so no form changes underneath it.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.mu.Lock()
	defer sess.mu.Unlock()
	appID, err := sess.wizard.Submit(r.Context())
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, s.log, http.StatusCreated, submitResponse{AppID: appID, Status: model.StatusPendingReview})
}

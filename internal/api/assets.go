package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/assets"
	"github.com/dharsanguruparan/witverse/internal/model"
	"github.com/dharsanguruparan/witverse/internal/signing"
	"github.com/dharsanguruparan/witverse/internal/steps"
	"github.com/dharsanguruparan/witverse/internal/validation"
	"github.com/dharsanguruparan/witverse/internal/wizard"
)

// assetResponse is a staged asset plus a signed link to its bytes.
type assetResponse struct {
	steps.AssetView
	PreviewURL string `json:"previewUrl"`
}

type screenshotsResponse struct {
	Screenshots []assetResponse `json:"screenshots"`
	Remaining   int             `json:"screenshotsRemaining"`
}

func (s *Server) viewAsset(sess *session, a *model.StagedAsset) assetResponse {
	q := s.signer.Query(sess.id, a.ID, s.deps.PreviewTTL)
	return assetResponse{
		AssetView:  *steps.ViewOf(a),
		PreviewURL: fmt.Sprintf("/api/drafts/%s/assets/%s/preview?%s", sess.id, a.ID, q.Encode()),
	}
}

func (s *Server) screenshots(sess *session) screenshotsResponse {
	list := sess.wizard.Store().Screenshots()
	out := screenshotsResponse{
		Screenshots: make([]assetResponse, 0, len(list)),
		Remaining:   model.MaxScreenshots - len(list),
	}
	for _, a := range list {
		out.Screenshots = append(out.Screenshots, s.viewAsset(sess, a))
	}
	return out
}

// stageable rejects changes to the staged files of a submitted draft.
func stageable(sess *session) error {
	if _, done := sess.wizard.Submitted(); done {
		return apperr.Precondition(wizard.MsgSubmitted)
	}
	return nil
}

func singletonSlot(r *http.Request) (model.Slot, validation.AssetKind, bool) {
	slot := model.Slot(chi.URLParam(r, "slot"))
	if slot == model.SlotScreenshot {
		return "", "", false
	}
	kind, ok := assets.KindOf(slot)
	return slot, kind, ok
}

func (s *Server) handleStageAsset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	slot, kind, ok := singletonSlot(r)
	if !ok {
		respondJSON(w, s.log, http.StatusNotFound, errorResponse{Error: "unknown asset slot"})
		return
	}
	if err := stageable(sess); err != nil {
		respondError(w, s.log, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody(validation.Limit(kind)))
	files, err := readFiles(r, "file", validation.Limit(kind), 1)
	if err == nil && len(files) != 1 {
		err = apperr.Validation(string(slot), "Exactly one file is required")
	}
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	asset, err := sess.wizard.Store().Stage(r.Context(), slot, files[0])
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	s.log.WithFields(logrus.Fields{"session": sess.id, "slot": slot, "size": asset.Size}).Debug("asset staged")
	respondJSON(w, s.log, http.StatusOK, s.viewAsset(sess, asset))
}

func (s *Server) handleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	slot, _, ok := singletonSlot(r)
	if !ok {
		respondJSON(w, s.log, http.StatusNotFound, errorResponse{Error: "unknown asset slot"})
		return
	}
	if err := stageable(sess); err != nil {
		respondError(w, s.log, err)
		return
	}
	if err := sess.wizard.Store().Remove(slot); err != nil {
		respondError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStageScreenshots(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := stageable(sess); err != nil {
		respondError(w, s.log, err)
		return
	}
	limit := validation.Limit(validation.KindScreenshot)
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody(limit*model.MaxScreenshots))
	files, err := readFiles(r, "files", limit, model.MaxScreenshots+1)
	if err == nil && len(files) == 0 {
		err = apperr.Validation(string(validation.KindScreenshot), "At least one file is required")
	}
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	if _, err := sess.wizard.Store().StageMany(r.Context(), files); err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, s.log, http.StatusOK, s.screenshots(sess))
}

func screenshotIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, assets.ErrNotFound
	}
	return i, nil
}

func (s *Server) handleRemoveScreenshot(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := stageable(sess); err != nil {
		respondError(w, s.log, err)
		return
	}
	i, err := screenshotIndex(r)
	if err == nil {
		err = sess.wizard.Store().RemoveScreenshot(i)
	}
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	respondJSON(w, s.log, http.StatusOK, s.screenshots(sess))
}

type moveRequest struct {
	Direction string `json:"direction" validate:"required,oneof=up down"`
}

// handleMoveScreenshot swaps a screenshot with its neighbour. Moves past
// either end leave the order unchanged.
func (s *Server) handleMoveScreenshot(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := stageable(sess); err != nil {
		respondError(w, s.log, err)
		return
	}
	i, err := screenshotIndex(r)
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, s.log, err)
		return
	}
	sess.wizard.Store().Reorder(i, assets.Direction(req.Direction))
	respondJSON(w, s.log, http.StatusOK, s.screenshots(sess))
}

// handleAssetPreview serves the raw bytes of a staged asset behind a signed,
// expiring link.
func (s *Server) handleAssetPreview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	assetID := chi.URLParam(r, "assetID")
	q := r.URL.Query()
	expires, signature := q.Get("expires"), q.Get("signature")
	if expires == "" || signature == "" {
		respondJSON(w, s.log, http.StatusBadRequest, errorResponse{Error: "missing parameters"})
		return
	}
	switch err := s.signer.Verify(sess.id, assetID, expires, signature); {
	case errors.Is(err, signing.ErrExpired):
		respondJSON(w, s.log, http.StatusUnauthorized, errorResponse{Error: "url expired"})
		return
	case err != nil:
		respondJSON(w, s.log, http.StatusUnauthorized, errorResponse{Error: "invalid signature"})
		return
	}
	asset, err := sess.wizard.Store().Find(assetID)
	if err != nil {
		respondError(w, s.log, err)
		return
	}
	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", asset.Name))
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, asset.Name, asset.StagedAt, bytes.NewReader(asset.Data))
}

// readFiles collects up to max file parts named field. Each file is read up to
// limit+1 bytes so an oversized file still reaches validation and fails with
// the size message; the rest of the part is never read.
func readFiles(r *http.Request, field string, limit int64, max int) ([]assets.File, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperr.Validation(field, "Expecting a multipart form")
	}
	var files []assets.File
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(field, err)
		}
		if part.FormName() != field || part.FileName() == "" {
			part.Close()
			continue
		}
		f, err := readPart(part, limit)
		if err != nil {
			return nil, readError(field, err)
		}
		files = append(files, f)
		if len(files) == max {
			break
		}
	}
	return files, nil
}

func readPart(part *multipart.Part, limit int64) (assets.File, error) {
	data, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return assets.File{}, err
	}
	return assets.File{
		Name:        part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readError(field string, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return apperr.Validation(field, "Failed to read upload")
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/apperr"
	"github.com/dharsanguruparan/witverse/internal/assets"
	"github.com/dharsanguruparan/witverse/internal/wizard"
)

var errSessionNotFound = errors.New("draft session not found")

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
	Step   string            `json:"step,omitempty"`
}

func respondJSON(w http.ResponseWriter, log logrus.FieldLogger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("encode response")
	}
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errSessionNotFound), errors.Is(err, assets.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindPrecondition:
		if err.Error() == wizard.MsgNotSignedIn {
			return http.StatusForbidden
		}
		return http.StatusConflict
	case apperr.KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err using the status of its kind. Unexpected errors are
// logged and reported with the generic message only.
func respondError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := statusOf(err)
	body := errorResponse{Error: apperr.UserMessage(err)}
	switch status {
	case http.StatusNotFound, http.StatusRequestEntityTooLarge:
		body.Error = err.Error()
	case http.StatusUnprocessableEntity:
		body.Fields = fieldsOf(err)
	case http.StatusBadGateway:
		var e *apperr.Error
		if errors.As(err, &e) {
			body.Step = e.Step
		}
		log.WithError(err).Warn("remote failure")
	case http.StatusInternalServerError:
		log.WithError(err).Error("request failed")
	}
	respondJSON(w, log, status, body)
}

func fieldsOf(err error) map[string]string {
	var list apperr.FieldErrors
	if errors.As(err, &list) {
		return list.ByField()
	}
	var e *apperr.Error
	if errors.As(err, &e) && e.Field != "" {
		return map[string]string{e.Field: e.Message}
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names so field errors line up with the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates its struct tags. An
// empty body decodes to the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return apperr.Validation("body", fmt.Sprintf("Malformed request body: %s", err))
	}
	return checkStruct(dst)
}

func checkStruct(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Unexpected(err)
	}
	var list apperr.FieldErrors
	for _, fe := range verrs {
		list.Add(apperr.Validation(fe.Field(), messageOf(fe)))
	}
	return list.Err()
}

func messageOf(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s long", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadMessageNamesStep(t *testing.T) {
	err := Upload("Screenshot", errors.New("network error"))
	assert.Equal(t, "Screenshot upload failed: network error", err.Error())
	assert.Equal(t, KindRemote, KindOf(err))
	assert.Equal(t, "Screenshot", err.Step)
}

func TestInsertMessage(t *testing.T) {
	err := Insert(errors.New("duplicate key"))
	assert.Equal(t, "Failed to create app: duplicate key", err.Error())
}

func TestKindOfThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", Precondition("You must be logged in to upload an app."))
	assert.Equal(t, KindPrecondition, KindOf(wrapped))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("boom")))
}

func TestUserMessageHidesUnexpected(t *testing.T) {
	assert.Equal(t, GenericMessage, UserMessage(errors.New("pq: relation missing")))
	assert.Equal(t, GenericMessage, UserMessage(Unexpected(errors.New("nil pointer"))))
	assert.Equal(t, "File size exceeds 5MB", UserMessage(Validation("logo", "File size exceeds 5MB")))
	assert.Empty(t, UserMessage(nil))
}

func TestFieldErrors(t *testing.T) {
	var errs FieldErrors
	require.NoError(t, errs.Err())

	errs.Add(nil)
	errs.Add(Validation("name", "App name must be at least 3 characters."))
	errs.Add(Validation("name", "second message"))
	errs.Add(errors.New("plain"))

	err := errs.Err()
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Len(t, errs, 3)
	assert.Equal(t, "App name must be at least 3 characters.", errs.ByField()["name"])
	assert.Equal(t, "plain", errs.ByField()[""])
}

package models

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAppError_ClassifiesUnknownErrors(t *testing.T) {
	t.Parallel()

	raw := errors.New("connection reset")
	appErr := AsAppError(raw)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeOperationFailed, appErr.Code)
	assert.ErrorIs(t, appErr, raw)

	notFound := NewNotFoundError("Post", "p1")
	assert.Same(t, notFound, AsAppError(notFound))
	assert.Nil(t, AsAppError(nil))
}

func TestStatusForCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code     string
		expected int
	}{
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodeUnauthorized, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeMediaUploadFailed, http.StatusBadGateway},
		{CodeOperationFailed, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, StatusForCode(tt.code), tt.code)
	}
}

func TestResult_Match(t *testing.T) {
	t.Parallel()

	ok := Ok("post")
	assert.True(t, ok.IsOk())
	var seen string
	require.NoError(t, ok.Match(
		func(v string) error { seen = v; return nil },
		func(*AppError) error { t.Fatal("unexpected failure branch"); return nil },
	))
	assert.Equal(t, "post", seen)

	failed := From[*Post](nil, NewUnauthorizedError("nope"))
	assert.False(t, failed.IsOk())
	_, appErr := failed.Value()
	require.NotNil(t, appErr)
	assert.Equal(t, CodeUnauthorized, appErr.Code)
}

func TestRespondWithError_HidesWrappedCause(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return RespondWithAppError(c, errors.New("pq: password authentication failed"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var payload ErrorResponse
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.False(t, payload.Success)
	assert.Equal(t, CodeOperationFailed, payload.Code)
	assert.NotContains(t, string(body), "password")
}

func TestEngagementNotifications(t *testing.T) {
	t.Parallel()

	like := &Like{UserID: "u2", PostID: "p1"}
	n := like.NotificationFor("u1")
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, "u2", n.CreatorID)
	assert.Equal(t, NotificationLike, n.Type)
	require.NotNil(t, n.PostID)
	assert.Equal(t, "p1", *n.PostID)
	assert.Nil(t, n.CommentID)

	comment := &Comment{ID: "c1", PostID: "p1", AuthorID: "u3"}
	n = comment.NotificationFor("u1")
	assert.Equal(t, NotificationComment, n.Type)
	assert.Equal(t, "u3", comment.Actor())
	require.NotNil(t, n.CommentID)
	assert.Equal(t, "c1", *n.CommentID)

	follow := &Follow{FollowerID: "u2", FollowingID: "u1"}
	n = follow.NotificationFor("u1")
	assert.Equal(t, NotificationFollow, n.Type)
	assert.Nil(t, n.PostID)
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-tracker/internal/model"
)

func (f *fixture) userToken(t *testing.T, name, email string) (model.User, string) {
	t.Helper()
	u := f.addUser(t, name, email, "Password1", model.RoleUser)
	token, _, err := f.tokens.Issue(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return u, token
}

func TestTaskCreateDefaultsToPending(t *testing.T) {
	f := newFixture(t)
	_, token := f.userToken(t, "Alice", "alice@example.com")

	rec := f.do(http.MethodPost, "/api/tasks", token, `{"title":"write report"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data taskPart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusPending, resp.Data.Status)
	assert.Equal(t, "write report", resp.Data.Title)
	assert.Nil(t, resp.Data.DueDate)
}

func TestTaskCreateRequiresTitle(t *testing.T) {
	f := newFixture(t)
	_, token := f.userToken(t, "Alice", "alice@example.com")

	rec := f.do(http.MethodPost, "/api/tasks", token, `{"description":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskCreateRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, token := f.userToken(t, "Alice", "alice@example.com")

	rec := f.do(http.MethodPost, "/api/tasks", token, `{"title":"x","status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskOwnerScoping(t *testing.T) {
	f := newFixture(t)
	_, aliceToken := f.userToken(t, "Alice", "alice@example.com")
	_, bobToken := f.userToken(t, "Bob", "bob@example.com")

	rec := f.do(http.MethodPost, "/api/tasks", aliceToken, `{"title":"alice's task"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data taskPart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	target := fmt.Sprintf("/api/tasks/%d", resp.Data.ID)

	// The owner sees the task.
	rec = f.do(http.MethodGet, target, aliceToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another user gets a 404 — indistinguishable from a missing task.
	rec = f.do(http.MethodGet, target, bobToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// And cannot delete it either.
	rec = f.do(http.MethodDelete, target, bobToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskListOnlyOwn(t *testing.T) {
	f := newFixture(t)
	_, aliceToken := f.userToken(t, "Alice", "alice@example.com")
	_, bobToken := f.userToken(t, "Bob", "bob@example.com")

	require.Equal(t, http.StatusCreated,
		f.do(http.MethodPost, "/api/tasks", aliceToken, `{"title":"a1"}`).Code)
	require.Equal(t, http.StatusCreated,
		f.do(http.MethodPost, "/api/tasks", aliceToken, `{"title":"a2"}`).Code)
	require.Equal(t, http.StatusCreated,
		f.do(http.MethodPost, "/api/tasks", bobToken, `{"title":"b1"}`).Code)

	rec := f.do(http.MethodGet, "/api/tasks", aliceToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []taskPart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestTaskUpdateDueDateValidation(t *testing.T) {
	f := newFixture(t)
	_, token := f.userToken(t, "Alice", "alice@example.com")

	rec := f.do(http.MethodPost, "/api/tasks", token, `{"title":"with deadline"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Data taskPart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	target := fmt.Sprintf("/api/tasks/%d", resp.Data.ID)

	rec = f.do(http.MethodPut, target, token, `{"due_date":"next tuesday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, target, token, `{"due_date":"2026-09-15 12:00:00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.DueDate)
	assert.Equal(t, "2026-09-15 12:00:00", *resp.Data.DueDate)

	// An explicit empty string clears the deadline.
	rec = f.do(http.MethodPut, target, token, `{"due_date":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Data.DueDate)
}

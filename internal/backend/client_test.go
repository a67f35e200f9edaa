package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/task-portal/internal/config"
	"github.com/spec-kit/task-portal/internal/domain"
)

type recorded struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type fakeBackend struct {
	t      *testing.T
	mu     sync.Mutex
	calls  []recorded
	routes map[string]func(w http.ResponseWriter)
	url    string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	fb := &fakeBackend{t: t, routes: map[string]func(http.ResponseWriter){}}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)
	fb.url = srv.URL

	client := NewClient(config.BackendConfig{
		AuthURL:        srv.URL + "/api/auth",
		UserURL:        srv.URL + "/api/user",
		AdminURL:       srv.URL + "/api/admin",
		TimeoutSeconds: 5,
	}, nil)
	return fb, client
}

func (fb *fakeBackend) on(method, path string, status int, body string) {
	fb.routes[method+" "+path] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	rec := recorded{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}
	fb.mu.Lock()
	fb.calls = append(fb.calls, rec)
	fb.mu.Unlock()

	handler, ok := fb.routes[r.Method+" "+r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	handler(w)
}

func (fb *fakeBackend) last() recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.NotEmpty(fb.t, fb.calls)
	return fb.calls[len(fb.calls)-1]
}

func TestLogin(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.on(http.MethodPost, "/api/auth/login", http.StatusOK,
		`{"token":"jwt-1","user":{"_id":"u-1","email":"ada@example.com","name":"Ada","role":"ADMIN"}}`)

	cred, identity, err := client.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, domain.Credential("jwt-1"), cred)
	assert.Equal(t, "u-1", identity.ID)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
	assert.Empty(t, identity.Status)

	call := fb.last()
	assert.Equal(t, "ada@example.com", call.Body["email"])
	assert.Equal(t, "secret", call.Body["password"])
	assert.Empty(t, call.Auth)
}

func TestLoginRejected(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.on(http.MethodPost, "/api/auth/login", http.StatusUnauthorized, `{"message":"Invalid credentials"}`)

	_, _, err := client.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Invalid credentials", MessageOr(err, "fallback"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, apiErr.Transport)
}

func TestRecoveryCalls(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.on(http.MethodPost, "/api/auth/forgot-password", http.StatusOK, `{"message":"OTP sent","resetToken":"rt-1"}`)
	fb.on(http.MethodPost, "/api/auth/verify-otp", http.StatusBadRequest, `{"error":"Invalid OTP"}`)
	fb.on(http.MethodPost, "/api/auth/reset-password", http.StatusOK, `{"message":"Password updated"}`)

	msg, token, err := client.RequestPasswordReset(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "OTP sent", msg)
	assert.Equal(t, "rt-1", token)

	_, err = client.VerifyOTP(context.Background(), "rt-1", "000000")
	require.Error(t, err)
	assert.Equal(t, "Invalid OTP", MessageOr(err, "OTP verification failed."))
	assert.Equal(t, "rt-1", fb.last().Body["resetToken"])
	assert.NotErrorIs(t, err, ErrUnauthorized)

	msg, err = client.ResetPassword(context.Background(), "rt-1", "123456", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Password updated", msg)
	assert.Equal(t, "secret1", fb.last().Body["newPassword"])
	assert.Equal(t, "123456", fb.last().Body["otp"])
}

func TestSignupReportsServerMessage(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.on(http.MethodPost, "/api/auth/signup", http.StatusConflict, `{"error":{"message":"Email already registered"}}`)

	_, err := client.Signup(context.Background(), "Ada", "ada@example.com", "secret")
	assert.Equal(t, "Email already registered", MessageOr(err, "Registration failed. Please try again."))
}

func TestUserTasks(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/user/tasks", http.StatusOK, `[
		{"_id":"t-1","title":"Write docs","description":"API","status":"PENDING","dueDate":"2026-03-01","createdAt":"2026-01-02T10:00:00.000Z"},
		{"id":"t-2","title":"Ship","description":"","status":"IN_PROGRESS","dueDate":null,"createdAt":"2026-01-03T10:00:00Z","assignedTo":{"_id":"u-1","name":"Ada"}}
	]`)
	fb.on(http.MethodPut, "/api/user/tasks-status/t-1", http.StatusOK, `{"message":"ok"}`)

	tasks, err := client.FetchUserTasks(context.Background(), "jwt-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t-1", tasks[0].ID)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, time.March, tasks[0].DueDate.Month())
	assert.Equal(t, 2026, tasks[0].CreatedAt.Year())
	assert.Nil(t, tasks[1].DueDate)
	assert.Equal(t, "u-1", tasks[1].AssignedTo)
	assert.Equal(t, "Ada", tasks[1].AssigneeName)
	assert.Equal(t, "Bearer jwt-1", fb.last().Auth)

	require.NoError(t, client.UpdateTaskStatus(context.Background(), "jwt-1", "t-1", domain.TaskStatusInProgress))
	call := fb.last()
	assert.Equal(t, http.MethodPut, call.Method)
	assert.Equal(t, "IN_PROGRESS", call.Body["status"])
}

func TestAdminCalls(t *testing.T) {
	fb, client := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/admin/tasks", http.StatusOK, `{"tasks":[{"id":"t-1","title":"A","status":"COMPLETED"}]}`)
	fb.on(http.MethodGet, "/api/admin/pending-users", http.StatusOK, `[{"_id":"u-2","name":"Bob","email":"bob@example.com","role":"USER","status":"PENDING"}]`)
	fb.on(http.MethodGet, "/api/admin/approved-users", http.StatusOK, `{"users":[]}`)
	fb.on(http.MethodPut, "/api/admin/approve-user/u-2", http.StatusOK, `{"message":"User approved"}`)
	fb.on(http.MethodPut, "/api/admin/reject-user/u-3", http.StatusOK, `{}`)
	fb.on(http.MethodPost, "/api/admin/create-task", http.StatusCreated, `{"_id":"t-9","title":"New"}`)
	fb.on(http.MethodPut, "/api/admin/update-task/t-9", http.StatusOK, `{"message":"Task updated"}`)

	ctx := context.Background()
	tasks, err := client.FetchAllTasks(ctx, "jwt")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusCompleted, tasks[0].Status)

	pending, err := client.FetchPendingUsers(ctx, "jwt")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u-2", pending[0].ID)
	assert.Equal(t, domain.UserStatusPending, pending[0].Status)

	approved, err := client.FetchApprovedUsers(ctx, "jwt")
	require.NoError(t, err)
	assert.Empty(t, approved)

	msg, err := client.ApproveUser(ctx, "jwt", "u-2")
	require.NoError(t, err)
	assert.Equal(t, "User approved", msg)

	_, err = client.RejectUser(ctx, "jwt", "u-3")
	require.NoError(t, err)

	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err = client.CreateTask(ctx, "jwt", domain.TaskDraft{Title: "New", Description: "d", AssignedTo: "u-2", DueDate: &due})
	require.NoError(t, err)
	body := fb.last().Body
	assert.Equal(t, "2026-04-01", body["dueDate"])
	assert.Equal(t, "u-2", body["assignedTo"])
	assert.NotContains(t, body, "status")

	msg, err = client.UpdateTask(ctx, "jwt", "t-9", domain.TaskDraft{Title: "New", Status: domain.TaskStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, "Task updated", msg)
	assert.Equal(t, "IN_PROGRESS", fb.last().Body["status"])
}

func TestNonMessageAnswerIsLogged(t *testing.T) {
	fb, _ := newFakeBackend(t)
	fb.on(http.MethodPut, "/api/admin/reject-user/u-3", http.StatusOK, `User rejected`)

	core, logs := observer.New(zapcore.DebugLevel)
	client := NewClient(config.BackendConfig{
		AdminURL:       fb.url + "/api/admin",
		TimeoutSeconds: 5,
	}, zap.New(core))

	msg, err := client.RejectUser(context.Background(), "jwt", "u-3")
	require.NoError(t, err)
	assert.Empty(t, msg)

	entries := logs.FilterMessage("backend answer without message").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Contains(t, entries[0].ContextMap()["url"], "/api/admin/reject-user/u-3")
}

func TestTransportFailure(t *testing.T) {
	client := NewClient(config.BackendConfig{AuthURL: "http://127.0.0.1:1/api/auth", TimeoutSeconds: 1}, nil)

	_, _, err := client.Login(context.Background(), "a@b.co", "pw")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Transport)
	assert.Equal(t, "Login failed. Please check your credentials.", MessageOr(err, "Login failed. Please check your credentials."))
}

func TestCancelledContextSkipsCall(t *testing.T) {
	fb, client := newFakeBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchUserTasks(ctx, "jwt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, fb.calls)
}

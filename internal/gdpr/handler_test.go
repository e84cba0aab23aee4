package gdpr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoreline/scoreline/internal/audit"
	"github.com/scoreline/scoreline/internal/rbac"
	"github.com/scoreline/scoreline/internal/shared"
)

type adminDirectory struct{}

func (adminDirectory) Subject(ctx context.Context, userID int64) (rbac.Subject, error) {
	return rbac.Subject{ID: userID, Role: rbac.RoleAdmin}, nil
}

type noResources struct{}

func (noResources) Ownership(ctx context.Context, resourceType rbac.ResourceType, resourceID int64) (rbac.Ownership, error) {
	return rbac.Ownership{}, nil
}

func newTestServer(t *testing.T, store Store) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, audit.NewRecorder(nopInserter{}, logger), logger)
	handler := NewHandler(logger, svc)

	guard := rbac.Middleware{
		Evaluator: rbac.NewEvaluator(adminDirectory{}, noResources{}, logger),
		Logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithIdentity(req.Context(), shared.Identity{UserID: 1, Role: "admin"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/gdpr", func(r chi.Router) {
		handler.MountRoutes(r, guard)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleAccessDefaultsToCaller(t *testing.T) {
	store := newStubStore()
	store.subject.ID = 1
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/gdpr/data-access")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var bundle AccessBundle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bundle))
	assert.Equal(t, int64(1), bundle.Subject.ID)
}

func TestHandleErasureReportsRetention(t *testing.T) {
	store := newStubStore()
	store.evaluations = []EvaluationSummary{
		{ID: 1, EvaluatedAt: time.Now().UTC().AddDate(-1, 0, 0)},
	}
	srv := newTestServer(t, store)

	resp := postJSON(t, srv.URL+"/gdpr/data-erasure", map[string]any{"userId": 42})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result ErasureResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Erased)
	require.NotNil(t, result.RetainedData)
}

func TestHandleRectificationRejectsDisallowedOnly(t *testing.T) {
	srv := newTestServer(t, newStubStore())

	resp := postJSON(t, srv.URL+"/gdpr/data-rectification", map[string]any{
		"userId":      42,
		"corrections": map[string]string{"email": "x@example.com"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleSubjectRequestDispatch(t *testing.T) {
	store := newStubStore()
	srv := newTestServer(t, store)

	resp := postJSON(t, srv.URL+"/gdpr/data-subject-request", map[string]any{
		"userId":          42,
		"type":            "restriction",
		"restrictionType": "storage",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, store.restrictions, 1)
	assert.Equal(t, RestrictStorage, store.restrictions[0].Type)
}

func TestHandleSubjectRequestUnknownType(t *testing.T) {
	srv := newTestServer(t, newStubStore())

	resp := postJSON(t, srv.URL+"/gdpr/data-subject-request", map[string]any{
		"userId": 42,
		"type":   "deletion",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleMissingUserID(t *testing.T) {
	srv := newTestServer(t, newStubStore())

	resp := postJSON(t, srv.URL+"/gdpr/data-erasure", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

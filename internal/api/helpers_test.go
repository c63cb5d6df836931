package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sfzman/indextts-server/internal/task"
	"github.com/stretchr/testify/require"
)

// mockTaskService is a mock implementation of the TaskService interface
type mockTaskService struct {
	submitFn func(ctx context.Context, req task.SynthesisRequest) (uuid.UUID, error)
	getFn    func(id uuid.UUID) (task.Task, bool)
	listFn   func(filter task.ListFilter) []task.Task
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTaskService) Submit(ctx context.Context, req task.SynthesisRequest) (uuid.UUID, error) {
	return m.submitFn(ctx, req)
}

func (m *mockTaskService) GetTask(id uuid.UUID) (task.Task, bool) {
	return m.getFn(id)
}

func (m *mockTaskService) ListTasks(filter task.ListFilter) []task.Task {
	return m.listFn(filter)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

// mockReferences resolves names listed in paths and reports others as missing.
type mockReferences struct {
	paths map[string]string
	err   error
}

func (m *mockReferences) Lookup(key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if p, ok := m.paths[key]; ok {
		return p, nil
	}
	return "", os.ErrNotExist
}

type mockRunnerStatus struct {
	ready  bool
	active int
	qlen   int
	qcap   int
}

func (m mockRunnerStatus) IsEngineReady() bool { return m.ready }
func (m mockRunnerStatus) ActiveCount() int    { return m.active }
func (m mockRunnerStatus) QueueLen() int       { return m.qlen }
func (m mockRunnerStatus) QueueCap() int       { return m.qcap }

type mockMetrics map[string]int64

func (m mockMetrics) GetSnapshot() map[string]int64 { return m }

// newTestRouter mounts the handlers on the same paths the server uses.
func newTestRouter(tts *TTSHandler, results *ResultHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		if tts != nil {
			r.Post("/tts", tts.CreateTask)
			r.Get("/tasks", tts.ListTasks)
			r.Get("/tasks/{id}", tts.GetTask)
			r.Delete("/tasks/{id}", tts.DeleteTask)
		}
		if results != nil {
			r.Get("/results/{filename}", results.Download)
		}
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

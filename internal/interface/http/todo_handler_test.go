package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	filerepo "github.com/hijjiri/todo-rest/internal/infrastructure/file"
	todo_usecase "github.com/hijjiri/todo-rest/internal/usecase/todo"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	router  *gin.Engine
	metrics *Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo, err := filerepo.Open(filepath.Join(t.TempDir(), "todo_data.json"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return newTestServerWith(todo_usecase.New(repo, nil, zap.NewNop()), time.Second)
}

func newTestServerWith(uc todo_usecase.Usecase, timeout time.Duration) *testServer {
	metrics := NewMetrics(prometheus.NewRegistry())
	return &testServer{
		router: NewRouter(RouterConfig{
			Usecase:        uc,
			Logger:         zap.NewNop(),
			Metrics:        metrics,
			RequestTimeout: timeout,
		}),
		metrics: metrics,
	}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) todoResponse {
	t.Helper()

	var got todoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode todo from %q: %v", rec.Body.String(), err)
	}
	return got
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var got errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode error from %q: %v", rec.Body.String(), err)
	}
	return got.Detail
}

func TestTodoAPI_Scenario(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/todos/", `{"text":"buy milk"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/todos/1" {
		t.Errorf("expected Location=/todos/1, got %q", loc)
	}
	if got := decodeTodo(t, rec); got != (todoResponse{ID: 1, Text: "buy milk", Done: false}) {
		t.Errorf("unexpected created todo: %#v", got)
	}

	rec = s.do(http.MethodPost, "/todos/", `{"text":"walk dog"}`)
	if got := decodeTodo(t, rec); got.ID != 2 {
		t.Fatalf("expected id=2, got %#v", got)
	}

	rec = s.do(http.MethodPut, "/todos/1", `{"text":"buy milk","done":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/todos/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeTodo(t, rec); got != (todoResponse{ID: 1, Text: "buy milk", Done: true}) {
		t.Errorf("unexpected todo: %#v", got)
	}

	rec = s.do(http.MethodDelete, "/todos/2", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/todos/", "")
	var list []todoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0] != (todoResponse{ID: 1, Text: "buy milk", Done: true}) {
		t.Errorf("unexpected list: %#v", list)
	}
}

func TestListTodos_EmptyIsArray(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/todos/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected [], got %q", body)
	}
}

func TestGetTodo_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/todos/99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "Todo not found" {
		t.Errorf("unexpected detail %q", detail)
	}
}

func TestGetTodo_NonIntegerID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/todos/abc", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestCreateTodo_InvalidBody(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`{}`, `{"text":""}`, `{"text":"   "}`, `{oops`, `{"text":1}`} {
		rec := s.do(http.MethodPost, "/todos/", body)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("body %s: expected 422, got %d", body, rec.Code)
		}
	}

	rec := s.do(http.MethodGet, "/todos/", "")
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("invalid creates must not store anything, got %s", body)
	}
}

func TestUpdateTodo_NotFoundLeavesCollection(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/todos/", `{"text":"keep"}`)

	rec := s.do(http.MethodPut, "/todos/5", `{"text":"nope","done":true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/todos/1", "")
	if got := decodeTodo(t, rec); got != (todoResponse{ID: 1, Text: "keep"}) {
		t.Errorf("unexpected todo after failed update: %#v", got)
	}
}

func TestDeleteTodo_Twice(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/todos/", `{"text":"gone"}`)

	if rec := s.do(http.MethodDelete, "/todos/1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/todos/1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/todos/1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestOptions(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/todos/", `{"text":"x"}`)

	rec := s.do(http.MethodOptions, "/todos/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET,POST,OPTIONS" {
		t.Errorf("unexpected collection Allow %q", allow)
	}

	rec = s.do(http.MethodOptions, "/todos/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET,PUT,DELETE,OPTIONS" {
		t.Errorf("unexpected item Allow %q", allow)
	}

	rec = s.do(http.MethodOptions, "/todos/2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing item, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPatch, "/todos/1", `{"text":"x"}`)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "Not Found" {
		t.Errorf("unexpected detail %q", detail)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"emperror.dev/errors"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/priyxstudio/examination/module"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errors.WithMessage(module.ErrValidation, "bad"), http.StatusBadRequest},
		{errors.WithMessage(module.ErrNotFound, "missing"), http.StatusNotFound},
		{errors.WithMessage(module.ErrPermission, "nope"), http.StatusForbidden},
		{errors.WithMessage(module.ErrConflict, "again"), http.StatusConflict},
		{NewError(errors.New("bad body"), http.StatusUnprocessableEntity), http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.status {
			t.Fatalf("expected %d for %q, got %d", tc.status, tc.err, got)
		}
	}
}

func TestCaptureAndAbort_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "abc")

	CaptureAndAbort(c, errors.New("database password is hunter2"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["request_id"] != "abc" {
		t.Fatalf("expected request id in body, got %v", body)
	}
	if body["error"] == "database password is hunter2" {
		t.Fatalf("internal error message leaked to the client")
	}
	if !c.IsAborted() {
		t.Fatalf("expected the context to be aborted")
	}
}

func TestRequestPipeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachRequestID(), CaptureErrors())
	r.GET("/pushed", func(c *gin.Context) {
		_ = c.Error(errors.WithMessage(module.ErrNotFound, "no such module"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pushed", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	id := w.Header().Get("X-Request-Id")
	if id == "" {
		t.Fatalf("expected X-Request-Id header")
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !strings.HasPrefix(body["error"], "no such module") || body["request_id"] != id {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(0.001, 2))
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}

	// A different client has its own budget.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected second client to pass, got %d", w.Code)
	}
}

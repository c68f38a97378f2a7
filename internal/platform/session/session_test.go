package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager([]byte("test-key"), time.Hour)
	id := uuid.New()

	token, err := m.Issue(id, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != id {
		t.Errorf("parsed id = %s, want %s", got, id)
	}
}

func TestParse_RejectsWrongKey(t *testing.T) {
	token, err := NewManager([]byte("key-a"), time.Hour).Issue(uuid.New(), time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewManager([]byte("key-b"), time.Hour).Parse(token); err == nil {
		t.Error("expected error for token signed with a different key")
	}
}

func TestParse_RejectsExpired(t *testing.T) {
	m := NewManager([]byte("test-key"), time.Minute)
	token, err := m.Issue(uuid.New(), time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestMiddleware(t *testing.T) {
	m := NewManager([]byte("test-key"), time.Hour)
	id := uuid.New()
	token, _ := m.Issue(id, time.Now())

	e := echo.New()
	handler := m.Middleware()(func(c echo.Context) error {
		got, ok := FromContext(c)
		if !ok {
			t.Error("session id missing from context")
		}
		if got != id {
			t.Errorf("context id = %s, want %s", got, id)
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMiddleware_RejectsMissingAndBadTokens(t *testing.T) {
	m := NewManager([]byte("test-key"), time.Hour)
	e := echo.New()
	handler := m.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, auth := range []string{"", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		err := handler(e.NewContext(req, rec))
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: expected 401, got %v", auth, err)
		}
	}
}

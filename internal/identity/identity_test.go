package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func runMiddleware(t *testing.T, cookie string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	h := Middleware(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraineeIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func TestMiddlewareMintsIdentity(t *testing.T) {
	rec, seen := runMiddleware(t, "")
	if !isValidAnonID(seen) {
		t.Errorf("minted id %q does not match the anon format", seen)
	}

	var minted *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == AnonCookieName {
			minted = c
		}
	}
	if minted == nil {
		t.Fatal("no identity cookie set")
	}
	if minted.Value != seen {
		t.Errorf("cookie %q != context id %q", minted.Value, seen)
	}
	if !minted.HttpOnly {
		t.Error("identity cookie is not HttpOnly")
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	const id = "anon_0123456789abcdef0123456789abcdef"
	rec, seen := runMiddleware(t, id)
	if seen != id {
		t.Errorf("context id = %q, want %q", seen, id)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == AnonCookieName {
			t.Errorf("valid cookie was reissued: %q", c.Value)
		}
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	_, seen := runMiddleware(t, "admin'; DROP TABLE sessions;--")
	if !isValidAnonID(seen) {
		t.Errorf("forged cookie accepted as identity: %q", seen)
	}
	if strings.Contains(seen, "DROP") {
		t.Error("forged value leaked into the identity")
	}
}

func TestGenerateAnonIDFormat(t *testing.T) {
	a, err := generateAnonID()
	if err != nil {
		t.Fatalf("generateAnonID: %v", err)
	}
	b, err := generateAnonID()
	if err != nil {
		t.Fatalf("generateAnonID: %v", err)
	}
	if !isValidAnonID(a) || !isValidAnonID(b) {
		t.Errorf("generated ids malformed: %q %q", a, b)
	}
	if a == b {
		t.Error("consecutive ids collided")
	}
}

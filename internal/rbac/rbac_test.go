package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"learner", "course:view", true},
		{"learner", "ministry:stats", false},
		{"ministry_admin", "ministry:stats", true},
		{"ministry_admin", "admin:policy", false},
		{"admin", "anything:at_all", true},
		{"", "course:view", false},
		{"unknown_role", "course:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerAnyAll(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("ministry_admin", "admin:policy", "ministry:stats") {
		t.Error("Any: one held permission must grant")
	}
	if c.Any("learner", "ministry:stats", "admin:policy") {
		t.Error("Any: no held permission must deny")
	}
	if !c.All("ministry_admin", "ministry:stats", "ministry:export") {
		t.Error("All: both held permissions must grant")
	}
	if c.All("ministry_admin", "ministry:stats", "admin:policy") {
		t.Error("All: one missing permission must deny")
	}
}

func TestWildcardPrefixPermission(t *testing.T) {
	c := NewChecker(map[string][]string{"reporter": {"ministry:*"}})
	if !c.Has("reporter", "ministry:export") {
		t.Error("prefix wildcard must match permissions under it")
	}
	if c.Has("reporter", "admin:policy") {
		t.Error("prefix wildcard must not match other namespaces")
	}
}

func serveWith(mw func(http.Handler) http.Handler, role string) int {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithRole(req.Context(), role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireMiddleware(t *testing.T) {
	if code := serveWith(Require("course:view"), "learner"); code != http.StatusNoContent {
		t.Errorf("held permission: status = %d", code)
	}
	if code := serveWith(Require("ministry:stats"), "learner"); code != http.StatusForbidden {
		t.Errorf("missing permission: status = %d", code)
	}
	if code := serveWith(Require("course:view"), ""); code != http.StatusForbidden {
		t.Errorf("no role in context: status = %d", code)
	}
}

func TestRequireAnyMiddleware(t *testing.T) {
	mw := RequireAny("ministry:stats", "admin:policy")
	if code := serveWith(mw, "ministry_admin"); code != http.StatusNoContent {
		t.Errorf("ministry_admin: status = %d", code)
	}
	if code := serveWith(mw, "admin"); code != http.StatusNoContent {
		t.Errorf("admin: status = %d", code)
	}
	if code := serveWith(mw, "learner"); code != http.StatusForbidden {
		t.Errorf("learner: status = %d", code)
	}
}

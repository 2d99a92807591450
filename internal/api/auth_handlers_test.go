package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func postJSON(ts *testServer, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	ts.ServeHTTP(rr, req)
	return rr
}

func TestSetupOnlyOnce(t *testing.T) {
	ts := newTestServer(t)

	rr := postJSON(ts, "/api/v1/setup", `{"username":"admin","password":"correct horse battery"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("first setup: status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = postJSON(ts, "/api/v1/setup", `{"username":"intruder","password":"also long enough"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("second setup: status = %d, want 403", rr.Code)
	}
}

func TestSetupRejectsShortPassword(t *testing.T) {
	ts := newTestServer(t)

	rr := postJSON(ts, "/api/v1/setup", `{"username":"admin","password":"short"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.loginOrganizer(t)

	rr := postJSON(ts, "/api/v1/auth/login", `{"username":"admin","password":"wrong password!"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	ts := newTestServer(t)
	ts.loginOrganizer(t)

	rr := postJSON(ts, "/api/v1/auth/login", `{"username":"nobody","password":"whatever this is"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestMeReturnsOrganizer(t *testing.T) {
	ts := newTestServer(t)
	org := ts.loginOrganizer(t)

	rr := ts.do(t, org, http.MethodGet, "/api/v1/auth/me", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var me struct {
		Username string `json:"username"`
	}
	decodeData(t, rr, &me)
	if me.Username != "admin" {
		t.Errorf("username = %q", me.Username)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	ts := newTestServer(t)
	org := ts.loginOrganizer(t)

	rr := ts.do(t, org, http.MethodPost, "/api/v1/auth/logout", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout: status = %d", rr.Code)
	}

	rr = ts.do(t, org, http.MethodGet, "/api/v1/auth/me", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: status = %d, want 401", rr.Code)
	}
}

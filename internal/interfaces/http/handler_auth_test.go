package http

import (
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "ana@loja.com", "password": "123456",
	}, "")
	expectStatus(t, rec, http.StatusCreated)
	body := decode(t, rec)
	if wa := body["whatsapp"].(map[string]any); wa["status"] != "succeeded" || wa["clientId"] != "ana@loja.com" {
		t.Errorf("whatsapp = %v", wa)
	}

	rec = s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@loja.com", "password": "123456"}, "")
	expectStatus(t, rec, http.StatusOK)
	body = decode(t, rec)
	if body["token"] == "" {
		t.Error("missing token")
	}
	if user := body["user"].(map[string]any); user["role"] != "user" || user["password"] != nil {
		t.Errorf("user = %v", user)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != body["token"] {
		t.Errorf("token cookie = %+v", cookie)
	}
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "Ana", "ana@loja.com", "user")

	rec := s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@loja.com", "password": "nope123"}, "")
	expectStatus(t, rec, http.StatusBadRequest)
	if decode(t, rec)["error"] != "Invalid credentials" {
		t.Errorf("body = %s", rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "not-an-email"}, "")
	expectStatus(t, rec, http.StatusBadRequest)
	if errs, ok := decode(t, rec)["errors"].([]any); !ok || len(errs) != 2 {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "Ana", "ana@loja.com", "user")

	rec := s.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Outra", "email": "ANA@LOJA.COM", "password": "123456",
	}, "")
	expectStatus(t, rec, http.StatusBadRequest)
}

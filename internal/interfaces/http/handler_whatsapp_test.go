package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"conexbot/internal/entities"
)

func TestWhatsAppEventsEndsIdleStream(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seed(t, "Ana", "ana@loja.com", "user")
	s.provider.status = entities.InstanceStatus{Status: entities.StatusDisconnected}

	rec := s.do(http.MethodGet, "/api/profile/whatsapp/events", nil, token)
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()

	if n := strings.Count(body, "event:status"); n != 1 {
		t.Errorf("status events = %d, body %q", n, body)
	}
	end := strings.Index(body, "event:end")
	if end < 0 {
		t.Fatalf("stream has no end event: %q", body)
	}
	if end < strings.Index(body, "event:status") {
		t.Error("end event must follow the status event")
	}
	if !strings.Contains(body[end:], `"phase":"disconnected"`) {
		t.Errorf("end event should carry the last state: %q", body[end:])
	}
}

func TestWhatsAppEventsNoEndWhenClientLeft(t *testing.T) {
	s := newTestServer(t)
	_, token := s.seed(t, "Ana", "ana@loja.com", "user")
	s.provider.status = entities.InstanceStatus{Status: entities.StatusDisconnected}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/profile/whatsapp/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "event:end") {
		t.Errorf("no end event expected after the client left: %q", rec.Body.String())
	}
}

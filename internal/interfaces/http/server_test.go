package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"conexbot/internal/entities"
	"conexbot/internal/infrastructure"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
)

type testServer struct {
	router   *gin.Engine
	users    *memUsers
	provider *stubProvider
	storage  *stubStorage
	auth     *usecases.AuthUsecase
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMemUsers()
	provider := &stubProvider{status: entities.InstanceStatus{Status: "connected", Connected: true}}
	storage := &stubStorage{}
	saga := usecases.NewInstanceSaga(provider)
	auth := usecases.NewAuthUsecase(users, saga, "test-secret", time.Hour)

	broadcast, err := usecases.NewBroadcastService(users, provider, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(broadcast.Close)

	flashes := infrastructure.NewFlashStore("flash-secret", false)
	middleware := NewMiddleware(auth, infrastructure.NewRateLimiter(100, 100), flashes)

	r := gin.New()
	SetupRoutes(r, Deps{
		Auth:      auth,
		Admin:     usecases.NewUserAdminUsecase(users, provider, saga),
		Profile:   usecases.NewProfileUsecase(users, infrastructure.ParseContactsFile),
		Media:     usecases.NewMediaUsecase(newMemMedia(), storage),
		WhatsApp:  usecases.NewWhatsAppUsecase(provider),
		Broadcast: broadcast,
		Flashes:   flashes,
	}, middleware)

	return &testServer{router: r, users: users, provider: provider, storage: storage, auth: auth}
}

// seed registers an account with the given role and returns it with a token.
func (s *testServer) seed(t *testing.T, name, email, role string) (*entities.User, string) {
	t.Helper()
	ctx := context.Background()
	user, _, err := s.auth.Register(ctx, name, email, "secret1")
	if err != nil {
		t.Fatalf("seed %s: %v", email, err)
	}
	if role != entities.RoleUser {
		if user, err = s.users.UpdateRole(ctx, user.ID, role); err != nil {
			t.Fatal(err)
		}
	}
	token, err := s.auth.IssueToken(user)
	if err != nil {
		t.Fatal(err)
	}
	return user, token
}

func (s *testServer) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(path, filename string, content []byte, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", filename)
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, want, rec.Body.String())
	}
}

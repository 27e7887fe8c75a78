package infrastructure

import (
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const flashSessionName = "conexbot_flash"

// FlashLevel is how a page renders a one-shot message.
type FlashLevel string

const (
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
	FlashInfo    FlashLevel = "info"
)

type Flash struct {
	Level   FlashLevel
	Message string
}

// FlashStore keeps one-shot page messages in a signed cookie.
type FlashStore struct {
	store *sessions.CookieStore
}

func NewFlashStore(secret string, secure bool) *FlashStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &FlashStore{store: store}
}

// Add queues a message for the next rendered page.
func (fs *FlashStore) Add(w http.ResponseWriter, r *http.Request, level FlashLevel, message string) {
	session, err := fs.store.Get(r, flashSessionName)
	if err != nil {
		// A cookie signed with an old secret; start over.
		zap.L().Debug("discarding unreadable flash session", zap.Error(err))
	}
	session.AddFlash(message, string(level))
	if err := session.Save(r, w); err != nil {
		zap.L().Warn("failed to save flash session", zap.Error(err))
	}
}

// Pop returns and clears every queued message.
func (fs *FlashStore) Pop(w http.ResponseWriter, r *http.Request) []Flash {
	session, err := fs.store.Get(r, flashSessionName)
	if err != nil {
		return nil
	}
	var out []Flash
	for _, level := range []FlashLevel{FlashError, FlashSuccess, FlashInfo} {
		for _, v := range session.Flashes(string(level)) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Level: level, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		if err := session.Save(r, w); err != nil {
			zap.L().Warn("failed to clear flash session", zap.Error(err))
		}
	}
	return out
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"conexbot/internal/entities"
	"conexbot/internal/infrastructure"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	identityKey  = "identity"
	requestIDKey = "request_id"
	tokenCookie  = "jwtToken"
)

// TokenParser verifies a signed session token.
type TokenParser interface {
	ParseToken(token string) (entities.Identity, error)
}

type Middleware struct {
	tokens  TokenParser
	limiter *infrastructure.RateLimiter
	flashes *infrastructure.FlashStore
}

func NewMiddleware(tokens TokenParser, limiter *infrastructure.RateLimiter, flashes *infrastructure.FlashStore) *Middleware {
	return &Middleware{tokens: tokens, limiter: limiter, flashes: flashes}
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		m.authenticateHeader(c, authHeader)
	}
}

// StreamAuth is AuthRequired that also takes the jwtToken cookie, since an
// EventSource cannot set headers.
func (m *Middleware) StreamAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			m.authenticateHeader(c, authHeader)
			return
		}
		token, err := c.Cookie(tokenCookie)
		if err != nil || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		m.authenticate(c, token)
	}
}

func (m *Middleware) authenticateHeader(c *gin.Context, authHeader string) {
	token, ok := bearerToken(authHeader)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Malformed authorization header"})
		return
	}
	m.authenticate(c, token)
}

func (m *Middleware) authenticate(c *gin.Context, token string) {
	who, err := m.tokens.ParseToken(token)
	switch {
	case err == nil:
	case errors.Is(err, usecases.ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
		return
	case errors.Is(err, usecases.ErrTokenInvalid):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	default:
		zap.L().Error("token verification failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify token"})
		return
	}

	c.Set(identityKey, who)
	c.Next()
}

// PageAuth guards server-rendered pages with the jwtToken cookie. Failures
// go back to the login page.
func (m *Middleware) PageAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(tokenCookie)
		if err != nil || token == "" {
			m.flashes.Add(c.Writer, c.Request, infrastructure.FlashInfo, "Please log in to continue")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		who, err := m.tokens.ParseToken(token)
		if err != nil {
			clearTokenCookie(c)
			m.flashes.Add(c.Writer, c.Request, infrastructure.FlashError, "Your session has expired, please log in again")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set(identityKey, who)
		c.Next()
	}
}

// RedirectIfAuthenticated sends visitors holding a valid cookie to their
// landing page.
func (m *Middleware) RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(tokenCookie); err == nil && token != "" {
			if who, err := m.tokens.ParseToken(token); err == nil {
				c.Redirect(http.StatusFound, landingPath(who))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

func landingPath(who entities.Identity) string {
	if who.IsAdmin() {
		return "/admin"
	}
	return "/dashboard"
}

func (m *Middleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentIdentity(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// ModeratorRequired lets admins and moderators through.
func (m *Middleware) ModeratorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := currentIdentity(c).Role
		if role != entities.RoleAdmin && role != entities.RoleModerator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin or moderator access required"})
			return
		}
		c.Next()
	}
}

// RateLimitPerUser limits requests per authenticated user (must follow AuthRequired)
func (m *Middleware) RateLimitPerUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := identity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User identity not found for rate limiting"})
			return
		}

		key := strconv.Itoa(who.ID)
		if !m.limiter.Allow(key) {
			wait := m.limiter.WaitTime(key)
			c.Header("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// CORSMiddleware allows Cross-Origin requests
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// QR codes are rendered from data: URLs.
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")

		c.Next()
	}
}

// RequestSizeLimiter limits request body size
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// RequestLogger logs one line per request and tags it with an id.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", requestID),
		}
		if who, ok := identity(c); ok {
			fields = append(fields, zap.Int("user_id", who.ID))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			zap.L().Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			zap.L().Warn("request", fields...)
		default:
			zap.L().Info("request", fields...)
		}
	}
}

func identity(c *gin.Context) (entities.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return entities.Identity{}, false
	}
	who, ok := v.(entities.Identity)
	return who, ok
}

func currentIdentity(c *gin.Context) entities.Identity {
	who, _ := identity(c)
	return who
}

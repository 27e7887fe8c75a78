package http

import (
	"net/http"

	"conexbot/internal/infrastructure"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Auth      *usecases.AuthUsecase
	Admin     *usecases.UserAdminUsecase
	Profile   *usecases.ProfileUsecase
	Media     *usecases.MediaUsecase
	WhatsApp  *usecases.WhatsAppUsecase
	Broadcast *usecases.BroadcastService
	Flashes   *infrastructure.FlashStore

	SecureCookies  bool
	MaxUploadBytes int64
}

type Handler struct {
	auth      *usecases.AuthUsecase
	admin     *usecases.UserAdminUsecase
	profile   *usecases.ProfileUsecase
	media     *usecases.MediaUsecase
	whatsapp  *usecases.WhatsAppUsecase
	broadcast *usecases.BroadcastService
	flashes   *infrastructure.FlashStore

	secureCookies  bool
	maxUploadBytes int64
}

func NewHandler(d Deps) *Handler {
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 16 << 20
	}
	return &Handler{
		auth:           d.Auth,
		admin:          d.Admin,
		profile:        d.Profile,
		media:          d.Media,
		whatsapp:       d.WhatsApp,
		broadcast:      d.Broadcast,
		flashes:        d.Flashes,
		secureCookies:  d.SecureCookies,
		maxUploadBytes: maxUpload,
	}
}

func SetupRoutes(r *gin.Engine, d Deps, middleware *Middleware) {
	h := NewHandler(d)
	r.SetHTMLTemplate(pageTemplates)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(h.maxUploadBytes + 1<<20))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Pages
	r.GET("/", middleware.RedirectIfAuthenticated(), h.IndexPage)
	r.GET("/login", middleware.RedirectIfAuthenticated(), h.LoginPage)
	r.GET("/logout", h.Logout)
	r.GET("/dashboard", middleware.PageAuth(), h.DashboardPage)
	r.GET("/admin", middleware.PageAuth(), h.AdminPage)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)
	}

	profile := r.Group("/api/profile")
	profile.Use(middleware.AuthRequired())
	profile.Use(middleware.RateLimitPerUser())
	{
		profile.GET("/me", h.GetMe)
		profile.PUT("/me", h.UpdateMe)

		profile.GET("/message", h.GetMessage)
		profile.POST("/message", h.SetMessage)

		profile.GET("/contacts", h.GetContacts)
		profile.POST("/contacts", h.SetContacts)
		profile.DELETE("/contacts", h.ClearContacts)
		profile.POST("/contacts/import", h.ImportContacts)

		profile.GET("/config", h.GetConfig)
		profile.POST("/config", h.SetConfig)

		profile.GET("/ia", h.GetIA)
		profile.POST("/ia", h.SetIA)

		profile.GET("/media", h.ListMedia)
		profile.POST("/media", h.UploadMedia)
		profile.DELETE("/media/:id", h.DeleteMedia)

		profile.GET("/broadcast", h.BroadcastProgress)
		profile.POST("/broadcast", h.StartBroadcast)
		profile.DELETE("/broadcast", h.CancelBroadcast)
		profile.GET("/usage", h.MessageUsage)

		wa := profile.Group("/whatsapp")
		wa.GET("/status", h.WhatsAppStatus)
		wa.GET("/qr", h.WhatsAppQR)
		wa.GET("/qr.png", h.WhatsAppQRImage)
		wa.POST("/logout", h.WhatsAppLogout)
		wa.POST("/create-instance", h.WhatsAppCreateInstance)
		wa.POST("/send", h.WhatsAppSend)
	}
	// The event stream is long lived and stays outside the rate limit.
	r.GET("/api/profile/whatsapp/events", middleware.StreamAuth(), h.WhatsAppEvents)

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	{
		readOnly := admin.Group("")
		readOnly.Use(middleware.ModeratorRequired())
		readOnly.GET("/dashboard", h.AdminDashboard)
		readOnly.GET("/users", h.ListUsers)
		readOnly.GET("/whatsapp/instances", h.ListInstances)
		readOnly.GET("/whatsapp/status/:email", h.InstanceStatus)

		write := admin.Group("")
		write.Use(middleware.AdminRequired())
		write.POST("/users", h.CreateUser)
		write.PUT("/users/:id", h.UpdateUser)
		write.PUT("/users/:id/role", h.UpdateUserRole)
		write.DELETE("/users/:id", h.DeleteUser)
		write.POST("/whatsapp/create-instance", h.CreateInstanceFor)
		write.DELETE("/whatsapp/delete-instance", h.DeleteInstanceFor)
	}
}

func (h *Handler) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, token, int(h.auth.TokenTTL().Seconds()), "/", "", h.secureCookies, true)
}

func clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)
}

// Login checks credentials, returns a bearer token and sets the page cookie.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), SanitizeString(req.Email), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.setTokenCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Register is the public signup.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	user, outcome, err := h.auth.Register(c.Request.Context(), SanitizeString(req.Name), SanitizeString(req.Email), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "User registered successfully",
		"user":     user,
		"whatsapp": outcome,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	clearTokenCookie(c)
	h.flashes.Add(c.Writer, c.Request, infrastructure.FlashSuccess, "You have been logged out")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

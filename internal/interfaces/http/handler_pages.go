package http

import (
	"embed"
	"html/template"
	"net/http"

	"conexbot/internal/infrastructure"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

func (h *Handler) IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"title": "ConexBot"})
}

func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"title":   "Login",
		"flashes": h.flashes.Pop(c.Writer, c.Request),
	})
}

func (h *Handler) DashboardPage(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"title": "Dashboard",
		"user":  currentIdentity(c),
	})
}

// AdminPage is rendered for admins only, anyone else gets an error page.
func (h *Handler) AdminPage(c *gin.Context) {
	who := currentIdentity(c)
	if !who.IsAdmin() {
		c.HTML(http.StatusForbidden, "error.html", gin.H{
			"title":   "Access denied",
			"status":  http.StatusForbidden,
			"message": "Only administrators can access this page.",
			"flashes": []infrastructure.Flash{},
		})
		return
	}
	c.HTML(http.StatusOK, "admin.html", gin.H{
		"title": "Admin",
		"user":  who,
	})
}

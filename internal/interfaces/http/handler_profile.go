package http

import (
	"net/http"

	"conexbot/internal/entities"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.profile.Me(c.Request.Context(), currentIdentity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe changes the self-service profile fields. Email, role and plan
// stay admin-only.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req struct {
		Name    *string `json:"name"`
		Company *string `json:"company"`
		Phone   *string `json:"phone"`
		CPF     *string `json:"cpf"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	upd := entities.ProfileUpdate{
		Name:    sanitizePtr(req.Name),
		Company: sanitizePtr(req.Company),
		Phone:   sanitizePtr(req.Phone),
		CPF:     sanitizePtr(req.CPF),
	}
	user, err := h.profile.UpdateProfile(c.Request.Context(), currentIdentity(c).ID, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.profile.Message(c.Request.Context(), currentIdentity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensagem": msg})
}

func (h *Handler) SetMessage(c *gin.Context) {
	var req struct {
		Mensagem *string `json:"mensagem"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Mensagem == nil {
		badRequest(c, "Field mensagem is required")
		return
	}
	msg := SanitizeString(*req.Mensagem)
	if err := h.profile.SetMessage(c.Request.Context(), currentIdentity(c).ID, msg); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message saved successfully", "mensagem": msg})
}

func (h *Handler) GetContacts(c *gin.Context) {
	contacts, err := h.profile.Contacts(c.Request.Context(), currentIdentity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if contacts == nil {
		contacts = []entities.Contact{}
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

func (h *Handler) SetContacts(c *gin.Context) {
	var req struct {
		Contacts []entities.Contact `json:"contacts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Contacts == nil {
		badRequest(c, "Field contacts must be a list")
		return
	}
	if err := h.profile.SetContacts(c.Request.Context(), currentIdentity(c).ID, req.Contacts); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contacts saved successfully", "count": len(req.Contacts)})
}

func (h *Handler) ClearContacts(c *gin.Context) {
	if err := h.profile.ClearContacts(c.Request.Context(), currentIdentity(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contacts cleared"})
}

// ImportContacts replaces the list with a CSV or XLSX upload.
func (h *Handler) ImportContacts(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Field file is required")
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	n, err := h.profile.ImportContacts(c.Request.Context(), currentIdentity(c).ID, fileHeader.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contacts imported successfully", "count": n})
}

func (h *Handler) GetConfig(c *gin.Context) {
	interval, err := h.profile.Interval(c.Request.Context(), currentIdentity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interval": interval})
}

func (h *Handler) SetConfig(c *gin.Context) {
	var req struct {
		Interval any `json:"interval"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	interval, err := h.profile.SetInterval(c.Request.Context(), currentIdentity(c).ID, req.Interval)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Configuration saved successfully", "interval": interval})
}

func (h *Handler) GetIA(c *gin.Context) {
	enabled, err := h.profile.IAEnabled(c.Request.Context(), currentIdentity(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

func (h *Handler) SetIA(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		badRequest(c, "Field enabled must be a boolean")
		return
	}
	if err := h.profile.SetIAEnabled(c.Request.Context(), currentIdentity(c).ID, *req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Setting saved successfully", "enabled": *req.Enabled})
}

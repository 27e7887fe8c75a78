package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"conexbot/internal/entities"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

func respondUserError(c *gin.Context, err error) {
	if errors.Is(err, entities.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	respondError(c, err)
}

// AdminDashboard returns account counts per role and the caller.
func (h *Handler) AdminDashboard(c *gin.Context) {
	counts, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": counts, "user": currentIdentity(c)})
}

// ListUsers returns every account, newest first
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.admin.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Company  string `json:"company"`
		Phone    string `json:"phone"`
		CPF      string `json:"cpf"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	user, outcome, err := h.admin.Create(c.Request.Context(), currentIdentity(c), usecases.CreateUserInput{
		Name:     SanitizeString(req.Name),
		Email:    SanitizeString(req.Email),
		Password: req.Password,
		Role:     SanitizeString(req.Role),
		Company:  SanitizeString(req.Company),
		Phone:    SanitizeString(req.Phone),
		CPF:      SanitizeString(req.CPF),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "User created successfully",
		"user":     user,
		"whatsapp": outcome,
	})
}

// UpdateUser edits an account. The password is only replaced when a new one
// is sent.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid user ID")
		return
	}
	var req struct {
		Name          string  `json:"name"`
		Email         string  `json:"email"`
		Role          string  `json:"role"`
		Password      string  `json:"password"`
		Company       *string `json:"company"`
		Phone         *string `json:"phone"`
		CPF           *string `json:"cpf"`
		PlanExpiresAt *string `json:"planExpiresAt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	in := usecases.UpdateUserInput{
		Name:     SanitizeString(req.Name),
		Email:    SanitizeString(req.Email),
		Role:     SanitizeString(req.Role),
		Password: req.Password,
		Company:  sanitizePtr(req.Company),
		Phone:    sanitizePtr(req.Phone),
		CPF:      sanitizePtr(req.CPF),
	}
	if req.PlanExpiresAt != nil {
		plan, clearPlan, err := parsePlanExpiry(*req.PlanExpiresAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Invalid plan expiration date",
				"errors": []entities.FieldError{{Field: "planExpiresAt", Message: "must be a date"}},
			})
			return
		}
		in.PlanExpiresAt, in.ClearPlan = plan, clearPlan
	}

	user, err := h.admin.Update(c.Request.Context(), currentIdentity(c), id, in)
	if err != nil {
		respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": user})
}

// parsePlanExpiry accepts any date layout cast understands. An empty value
// clears the plan.
func parsePlanExpiry(raw string) (*time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true, nil
	}
	t, err := cast.ToTimeE(raw)
	if err != nil {
		return nil, false, err
	}
	return &t, false, nil
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid user ID")
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	user, err := h.admin.UpdateRole(c.Request.Context(), currentIdentity(c), id, SanitizeString(req.Role))
	if err != nil {
		respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User role updated successfully", "user": user})
}

// DeleteUser removes the account and then, best effort, its WhatsApp instance.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		badRequest(c, "Invalid user ID")
		return
	}

	user, outcome, err := h.admin.Delete(c.Request.Context(), currentIdentity(c), id)
	if err != nil {
		respondUserError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "User deleted successfully",
		"user":     user,
		"whatsapp": outcome,
	})
}

func (h *Handler) ListInstances(c *gin.Context) {
	res := h.admin.ListInstances(c.Request.Context())
	if !res.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list WhatsApp instances", "details": res.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"instances": res.Instances})
}

func (h *Handler) InstanceStatus(c *gin.Context) {
	email := SanitizeString(c.Param("email"))
	res := h.admin.InstanceStatus(c.Request.Context(), email)
	if !res.Success {
		c.JSON(http.StatusNotFound, gin.H{"error": "WhatsApp instance not found", "details": res.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clientId": res.ClientID, "status": res.Status})
}

// CreateInstanceFor provisions an instance for an existing account.
func (h *Handler) CreateInstanceFor(c *gin.Context) {
	var req struct {
		Email   string                 `json:"email"`
		Options instanceOptionsRequest `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		badRequest(c, "Field email is required")
		return
	}

	res, err := h.admin.CreateInstanceFor(c.Request.Context(), SanitizeString(req.Email), req.Options.toEntity())
	if err != nil {
		respondUserError(c, err)
		return
	}
	if !res.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create WhatsApp instance", "details": res.Error})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "WhatsApp instance created successfully",
		"clientId":  res.ClientID,
		"qrCodeUrl": res.QRCodeURL,
	})
}

func (h *Handler) DeleteInstanceFor(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		badRequest(c, "Field email is required")
		return
	}

	res := h.admin.DeleteInstanceFor(c.Request.Context(), SanitizeString(req.Email))
	if !res.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete WhatsApp instance", "details": res.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "WhatsApp instance deleted successfully", "clientId": res.ClientID})
}

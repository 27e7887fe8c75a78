package http

import (
	"net/http"

	"conexbot/internal/entities"
	"conexbot/internal/infrastructure"
	"conexbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WhatsAppStatus reports the caller's own instance. A provider failure is a
// 404 since the instance is the subject of the request.
func (h *Handler) WhatsAppStatus(c *gin.Context) {
	who := currentIdentity(c)
	res := h.whatsapp.Status(c.Request.Context(), who)
	if !res.Success {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Your WhatsApp instance was not found or could not be checked",
			"details":  res.Error,
			"clientId": entities.ClientID(who.Email),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "WhatsApp status retrieved successfully",
		"clientId": res.ClientID,
		"status":   res.Status,
	})
}

func (h *Handler) WhatsAppQR(c *gin.Context) {
	res := h.whatsapp.QRCode(c.Request.Context(), currentIdentity(c))
	if !res.Success {
		c.JSON(http.StatusNotFound, gin.H{"error": "QR code not available", "details": res.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "QR code retrieved successfully",
		"clientId": res.ClientID,
		"qrCode":   res.QRCode,
		"status":   res.Status,
	})
}

// WhatsAppQRImage serves the current QR code as a PNG.
func (h *Handler) WhatsAppQRImage(c *gin.Context) {
	res := h.whatsapp.QRCode(c.Request.Context(), currentIdentity(c))
	if !res.Success {
		c.String(http.StatusNotFound, "QR code not available")
		return
	}

	mimeType, data, err := infrastructure.DecodeDataURL(res.QRCode)
	if err != nil {
		// Not an image yet, only the payload to encode.
		data, err = infrastructure.QRPNG(res.QRCode)
		mimeType = "image/png"
	}
	if err != nil {
		zap.L().Error("failed to render qr code", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, data)
}

func (h *Handler) WhatsAppLogout(c *gin.Context) {
	res := h.whatsapp.Logout(c.Request.Context(), currentIdentity(c))
	if !res.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to log out of WhatsApp", "details": res.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "WhatsApp logged out successfully", "clientId": res.ClientID})
}

// WhatsAppCreateInstance provisions the caller's own instance. Here the
// provider result is the point of the request, so a failure is a 500.
func (h *Handler) WhatsAppCreateInstance(c *gin.Context) {
	var req struct {
		Options instanceOptionsRequest `json:"options"`
	}
	// An empty body means default options.
	_ = c.ShouldBindJSON(&req)

	res := h.whatsapp.CreateInstance(c.Request.Context(), currentIdentity(c), req.Options.toEntity())
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

func (h *Handler) WhatsAppSend(c *gin.Context) {
	var req struct {
		Phone   string `json:"phone"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	res, err := h.whatsapp.SendText(c.Request.Context(), currentIdentity(c), SanitizeString(req.Phone), SanitizeString(req.Message))
	if err != nil {
		respondError(c, err)
		return
	}
	if !res.Success {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message", "details": res.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message sent successfully", "data": res.Data})
}

// WhatsAppEvents streams connection view states as server-sent events until
// the client goes away or polling stops. A stop on the server side ends with
// an "end" event carrying the last state.
func (h *Handler) WhatsAppEvents(c *gin.Context) {
	who := currentIdentity(c)
	initiated := c.Query("initiated") == "true"
	ctx := c.Request.Context()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var last usecases.ViewState
	h.whatsapp.Watch(ctx, who, initiated, func(state usecases.ViewState) bool {
		last = state
		c.SSEvent("status", state)
		c.Writer.Flush()
		return ctx.Err() == nil
	})
	if ctx.Err() != nil {
		return
	}
	// The page closes its EventSource on "end".
	c.SSEvent("end", last)
	c.Writer.Flush()
}

type instanceOptionsRequest struct {
	IgnoreGroups *bool  `json:"ignoreGroups"`
	WebhookURL   string `json:"webhookUrl"`
	ProxyURL     string `json:"proxyUrl"`
}

func (o instanceOptionsRequest) toEntity() entities.InstanceOptions {
	return entities.InstanceOptions{
		IgnoreGroups: o.IgnoreGroups,
		WebhookURL:   SanitizeString(o.WebhookURL),
		ProxyURL:     SanitizeString(o.ProxyURL),
	}
}

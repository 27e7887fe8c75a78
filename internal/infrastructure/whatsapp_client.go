package infrastructure

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"conexbot/internal/config"
	"conexbot/internal/entities"

	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const defaultTypingMillis = 1500

var errProviderNotConfigured = errors.New("WhatsApp provider not configured")

// WhatsAppClient talks to the hosted WhatsApp instance API. Each user owns one
// instance addressed by entities.ClientID(email).
type WhatsAppClient struct {
	baseURL      string
	apiKey       string
	webhookURL   string
	proxyURL     string
	ignoreGroups bool
	http         *http.Client
}

func NewWhatsAppClient(cfg config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		webhookURL:   cfg.WebhookURL,
		proxyURL:     cfg.ProxyURL,
		ignoreGroups: cfg.IgnoreGroups,
		http:         &http.Client{Timeout: cfg.Timeout},
	}
}

// call performs one round trip to {base}/api/whatsapp/{endpoint} and decodes
// a JSON object body. Non-2xx statuses become errors carrying the body.
func (w *WhatsAppClient) call(ctx context.Context, method, endpoint string, payload any) (map[string]any, error) {
	if w.baseURL == "" || w.apiKey == "" {
		return nil, errProviderNotConfigured
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+"/api/whatsapp/"+endpoint, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	start := time.Now()
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, endpoint)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	zap.L().Debug("whatsapp api call",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	parsed := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return parsed, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrap(err, "invalid JSON response")
	}
	switch v := decoded.(type) {
	case map[string]any:
		parsed = v
	case []any:
		parsed["items"] = v
	default:
		parsed["value"] = v
	}
	return parsed, nil
}

func (w *WhatsAppClient) CreateInstance(ctx context.Context, email string, opts entities.InstanceOptions) entities.InstanceResult {
	clientID := entities.ClientID(email)

	ignoreGroups := w.ignoreGroups
	if opts.IgnoreGroups != nil {
		ignoreGroups = *opts.IgnoreGroups
	}
	payload := map[string]any{
		"clientId":     clientID,
		"ignoreGroups": ignoreGroups,
	}
	if webhook := firstNonEmpty(opts.WebhookURL, w.webhookURL); webhook != "" {
		payload["webhookUrl"] = webhook
	}
	if proxy := firstNonEmpty(opts.ProxyURL, w.proxyURL); proxy != "" {
		payload["proxyUrl"] = proxy
	}

	data, err := w.call(ctx, http.MethodPost, "instance/init", payload)
	if err != nil {
		zap.L().Error("create whatsapp instance failed", zap.String("client_id", clientID), zap.Error(err))
		return entities.InstanceResult{ClientID: clientID, Error: err.Error()}
	}

	zap.L().Info("whatsapp instance created", zap.String("client_id", clientID))
	return entities.InstanceResult{
		Success:   true,
		ClientID:  clientID,
		QRCodeURL: w.baseURL + "/api/whatsapp/qr-image?clientId=" + url.QueryEscape(clientID),
		Data:      data,
	}
}

func (w *WhatsAppClient) DeleteInstance(ctx context.Context, email string) entities.InstanceResult {
	clientID := entities.ClientID(email)
	data, err := w.call(ctx, http.MethodDelete, "instance/delete", map[string]any{"clientId": clientID})
	if err != nil {
		zap.L().Error("delete whatsapp instance failed", zap.String("client_id", clientID), zap.Error(err))
		return entities.InstanceResult{ClientID: clientID, Error: err.Error()}
	}
	zap.L().Info("whatsapp instance deleted", zap.String("client_id", clientID))
	return entities.InstanceResult{Success: true, ClientID: clientID, Data: data}
}

func (w *WhatsAppClient) Status(ctx context.Context, email string) entities.StatusResult {
	clientID := entities.ClientID(email)
	data, err := w.call(ctx, http.MethodGet, "status?clientId="+url.QueryEscape(clientID), nil)
	if err != nil {
		zap.L().Warn("whatsapp status check failed", zap.String("client_id", clientID), zap.Error(err))
		return entities.StatusResult{ClientID: clientID, Error: err.Error()}
	}
	return entities.StatusResult{Success: true, ClientID: clientID, Status: normalizeStatus(data)}
}

func (w *WhatsAppClient) ListInstances(ctx context.Context) entities.InstanceListResult {
	data, err := w.call(ctx, http.MethodGet, "instances", nil)
	if err != nil {
		zap.L().Error("list whatsapp instances failed", zap.Error(err))
		return entities.InstanceListResult{Error: err.Error(), Instances: []map[string]any{}}
	}

	instances := []map[string]any{}
	var items []any
	switch v := data["instances"].(type) {
	case []any:
		items = v
	default:
		if list, ok := data["items"].([]any); ok {
			items = list
		}
	}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			instances = append(instances, m)
		}
	}
	return entities.InstanceListResult{Success: true, Instances: instances}
}

func (w *WhatsAppClient) QRCode(ctx context.Context, email string) entities.QRResult {
	clientID := entities.ClientID(email)
	data, err := w.call(ctx, http.MethodGet, "qr?clientId="+url.QueryEscape(clientID), nil)
	if err != nil {
		zap.L().Warn("whatsapp qr fetch failed", zap.String("client_id", clientID), zap.Error(err))
		return entities.QRResult{ClientID: clientID, Error: err.Error()}
	}

	status, _ := data["status"].(string)
	code, _ := data["qrCode"].(string)
	if code == "" {
		return entities.QRResult{ClientID: clientID, Status: status, Error: "QR code not available"}
	}

	if !strings.HasPrefix(code, "data:") {
		rendered, err := QRDataURL(code)
		if err != nil {
			return entities.QRResult{ClientID: clientID, Status: status, Error: err.Error()}
		}
		code = rendered
	}
	return entities.QRResult{Success: true, ClientID: clientID, QRCode: code, Status: status}
}

func (w *WhatsAppClient) Logout(ctx context.Context, email string) entities.InstanceResult {
	clientID := entities.ClientID(email)
	data, err := w.call(ctx, http.MethodPost, "logout", map[string]any{"clientId": clientID})
	if err != nil {
		zap.L().Error("whatsapp logout failed", zap.String("client_id", clientID), zap.Error(err))
		return entities.InstanceResult{ClientID: clientID, Error: err.Error()}
	}
	zap.L().Info("whatsapp instance logged out", zap.String("client_id", clientID))
	return entities.InstanceResult{Success: true, ClientID: clientID, Data: data}
}

func (w *WhatsAppClient) SendText(ctx context.Context, email, phone, message string, opts entities.SendTextOptions) entities.InstanceResult {
	clientID := entities.ClientID(email)
	typing := opts.TypingMillis
	if typing <= 0 {
		typing = defaultTypingMillis
	}
	data, err := w.call(ctx, http.MethodPost, "send/text", map[string]any{
		"clientId":         clientID,
		"phoneNumber":      phone,
		"message":          message,
		"simulateTyping":   opts.SimulateTyping,
		"typingDurationMs": typing,
	})
	if err != nil {
		zap.L().Error("whatsapp send failed",
			zap.String("client_id", clientID), zap.String("phone", phone), zap.Error(err))
		return entities.InstanceResult{ClientID: clientID, Error: err.Error()}
	}
	return entities.InstanceResult{Success: true, ClientID: clientID, Data: data}
}

// normalizeStatus accepts {status:"open"}, {status:{status:"open"}} and
// {state:"open"} shapes. An explicit connected flag, top level or nested,
// must also be true for the instance to count as connected.
func normalizeStatus(data map[string]any) entities.InstanceStatus {
	var state string
	flag, hasFlag := data["connected"].(bool)
	switch v := data["status"].(type) {
	case string:
		state = v
	case map[string]any:
		state, _ = v["status"].(string)
		if state == "" {
			state, _ = v["state"].(string)
		}
		if c, ok := v["connected"].(bool); ok {
			flag, hasFlag = c, true
		}
	}
	if state == "" {
		state, _ = data["state"].(string)
	}
	state = strings.ToLower(strings.TrimSpace(state))
	if state == "" {
		state = entities.StatusDisconnected
	}

	connected := entities.IsConnectedStatus(state)
	if hasFlag {
		connected = connected && flag
	}
	return entities.InstanceStatus{Status: state, Connected: connected}
}

// QRPNG renders a raw QR payload as a PNG image.
func QRPNG(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Wrap(err, "render qr code")
	}
	return png, nil
}

// QRDataURL renders a raw QR payload as a base64 PNG data URL.
func QRDataURL(payload string) (string, error) {
	png, err := QRPNG(payload)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeDataURL extracts the bytes of a base64 data URL.
func DecodeDataURL(dataURL string) (mimeType string, data []byte, err error) {
	header, encoded, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, errors.New("not a base64 data URL")
	}
	mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, errors.Wrap(err, "decode data URL")
	}
	return mimeType, data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package entities

import "strings"

// ClientID derives the provider instance key from an email. Characters
// outside [a-zA-Z0-9@.-] become "_" and the result is lower-cased. Runes
// outside the BMP count as two characters, so they yield "__".
func ClientID(email string) string {
	var b strings.Builder
	b.Grow(len(email))
	for _, r := range email {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '@', r == '.', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r > 0xFFFF:
			b.WriteString("__")
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Provider connection states as reported by the WhatsApp API.
const (
	StatusDisconnected = "disconnected"
	StatusConnecting   = "connecting"
	StatusQR           = "qr"
	StatusQRCode       = "qr_code"
	StatusOpen         = "open"
	StatusConnected    = "connected"
	StatusClose        = "close"
	StatusClosed       = "closed"
)

func IsConnectedStatus(s string) bool {
	return s == StatusOpen || s == StatusConnected
}

type InstanceOptions struct {
	IgnoreGroups *bool  `json:"ignoreGroups,omitempty"`
	WebhookURL   string `json:"webhookUrl,omitempty"`
	ProxyURL     string `json:"proxyUrl,omitempty"`
}

// InstanceResult is the normalized outcome of a provider call. Provider calls
// never return Go errors; callers branch on Success.
type InstanceResult struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	ClientID  string         `json:"clientId,omitempty"`
	QRCodeURL string         `json:"qrCodeUrl,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type InstanceStatus struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
}

// Live reports whether the provider both flags the instance as connected and
// reports an open or connected status.
func (s InstanceStatus) Live() bool {
	return s.Connected && IsConnectedStatus(s.Status)
}

type StatusResult struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	ClientID string         `json:"clientId,omitempty"`
	Status   InstanceStatus `json:"status"`
}

type QRResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	QRCode   string `json:"qrCode,omitempty"`
	Status   string `json:"status,omitempty"`
}

type InstanceListResult struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	Instances []map[string]any `json:"instances"`
}

type SendTextOptions struct {
	SimulateTyping bool
	TypingMillis   int
}

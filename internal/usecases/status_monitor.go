package usecases

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"conexbot/internal/entities"
)

const DefaultPollInterval = 3 * time.Second

type Phase string

const (
	PhaseDisconnected       Phase = "disconnected"
	PhaseConnectingProvider Phase = "connecting_provider"
	PhaseAwaitingQR         Phase = "awaiting_qr"
	PhaseConnected          Phase = "connected"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// ViewState is what the dashboard renders after one poll.
type ViewState struct {
	Phase  Phase   `json:"phase"`
	Status string  `json:"status"`
	QRCode string  `json:"qrCode,omitempty"`
	Notice *Notice `json:"notice,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// StatusSource is the slice of the provider the monitor polls.
type StatusSource interface {
	Status(ctx context.Context, email string) entities.StatusResult
	QRCode(ctx context.Context, email string) entities.QRResult
	Logout(ctx context.Context, email string) entities.InstanceResult
}

// StatusMonitor reconciles the provider's view of one user's instance into
// dashboard states. It is safe for overlapping ticks.
type StatusMonitor struct {
	source StatusSource
	email  string

	fetchingQR atomic.Bool

	mu            sync.Mutex
	userInitiated bool
	firstTick     bool
	hasPrevious   bool
	wasConnected  bool
	stopped       bool
	stopCh        chan struct{}
}

func NewStatusMonitor(source StatusSource, email string, userInitiated bool) *StatusMonitor {
	return &StatusMonitor{
		source:        source,
		email:         email,
		userInitiated: userInitiated,
		firstTick:     true,
		stopCh:        make(chan struct{}),
	}
}

func (m *StatusMonitor) UserInitiated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userInitiated
}

// Tick polls the provider once and returns the state to render.
func (m *StatusMonitor) Tick(ctx context.Context) ViewState {
	res := m.source.Status(ctx, m.email)

	status := entities.StatusDisconnected
	var errMsg string
	if res.Success {
		status = res.Status.Status
	} else {
		errMsg = res.Error
	}
	live := res.Success && res.Status.Live()

	m.mu.Lock()
	var phase Phase
	switch {
	case m.firstTick && status == entities.StatusConnecting:
		// Nothing has been asked for yet, a stale "connecting" reads as idle.
		status = entities.StatusDisconnected
		phase = PhaseDisconnected
	case entities.IsConnectedStatus(status) && !live:
		phase = PhaseDisconnected
	default:
		phase = phaseFor(status, m.userInitiated)
	}
	m.firstTick = false

	state := ViewState{Phase: phase, Status: status, Error: errMsg}
	connected := phase == PhaseConnected
	wasConnected := m.hasPrevious && m.wasConnected
	switch {
	case connected && m.hasPrevious && !wasConnected:
		state.Notice = &Notice{Level: NoticeSuccess, Message: "WhatsApp connected successfully"}
	case !connected && wasConnected:
		state.Notice = &Notice{Level: NoticeWarning, Message: "WhatsApp was disconnected"}
	}
	if connected {
		m.userInitiated = false
	}
	m.wasConnected = connected
	m.hasPrevious = true
	fetchQR := phase == PhaseAwaitingQR && m.userInitiated
	m.mu.Unlock()

	if fetchQR && m.fetchingQR.CompareAndSwap(false, true) {
		defer m.fetchingQR.Store(false)
		qr := m.source.QRCode(ctx, m.email)
		if qr.Success {
			state.QRCode = qr.QRCode
		} else if state.Error == "" {
			state.Error = qr.Error
		}
	}
	return state
}

func phaseFor(status string, userInitiated bool) Phase {
	switch status {
	case entities.StatusOpen, entities.StatusConnected:
		return PhaseConnected
	case entities.StatusQR, entities.StatusQRCode:
		return PhaseAwaitingQR
	case entities.StatusConnecting:
		if userInitiated {
			return PhaseAwaitingQR
		}
		return PhaseDisconnected
	case entities.StatusDisconnected, "disconnect":
		if userInitiated {
			return PhaseConnectingProvider
		}
		return PhaseDisconnected
	default:
		return PhaseDisconnected
	}
}

// Run ticks immediately, then keeps polling every interval while the user is
// connecting or the instance is connected. It returns when ctx ends, Stop is
// called or emit returns false.
func (m *StatusMonitor) Run(ctx context.Context, interval time.Duration, emit func(ViewState) bool) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if m.isStopped() {
		return
	}

	state := m.Tick(ctx)
	if !emit(state) {
		return
	}
	if state.Phase != PhaseConnected && !m.UserInitiated() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if !emit(m.Tick(ctx)) {
				return
			}
		}
	}
}

// Stop ends polling. Safe to call more than once.
func (m *StatusMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.stopped = true
		close(m.stopCh)
	}
	m.firstTick = true
	m.userInitiated = false
}

func (m *StatusMonitor) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Disconnect logs the instance out and stops polling.
func (m *StatusMonitor) Disconnect(ctx context.Context) entities.InstanceResult {
	res := m.source.Logout(ctx, m.email)
	m.Stop()
	return res
}

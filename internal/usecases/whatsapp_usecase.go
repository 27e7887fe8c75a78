package usecases

import (
	"context"
	"strings"
	"sync"
	"time"

	"conexbot/internal/entities"
	"conexbot/internal/interfaces"

	"go.uber.org/zap"
)

// WhatsAppUsecase serves a user's own instance and keeps track of the live
// status monitors so an explicit logout can stop them.
type WhatsAppUsecase struct {
	provider     interfaces.InstanceProvider
	pollInterval time.Duration

	mu       sync.Mutex
	monitors map[int]map[*StatusMonitor]struct{}
}

func NewWhatsAppUsecase(provider interfaces.InstanceProvider) *WhatsAppUsecase {
	return &WhatsAppUsecase{
		provider:     provider,
		pollInterval: DefaultPollInterval,
		monitors:     make(map[int]map[*StatusMonitor]struct{}),
	}
}

func (uc *WhatsAppUsecase) SetPollInterval(d time.Duration) {
	if d > 0 {
		uc.pollInterval = d
	}
}

func (uc *WhatsAppUsecase) Status(ctx context.Context, who entities.Identity) entities.StatusResult {
	return uc.provider.Status(ctx, who.Email)
}

func (uc *WhatsAppUsecase) QRCode(ctx context.Context, who entities.Identity) entities.QRResult {
	return uc.provider.QRCode(ctx, who.Email)
}

func (uc *WhatsAppUsecase) CreateInstance(ctx context.Context, who entities.Identity, opts entities.InstanceOptions) entities.InstanceResult {
	return uc.provider.CreateInstance(ctx, who.Email, opts)
}

// Logout disconnects the instance and stops every status monitor the user
// has open.
func (uc *WhatsAppUsecase) Logout(ctx context.Context, who entities.Identity) entities.InstanceResult {
	res := uc.provider.Logout(ctx, who.Email)

	uc.mu.Lock()
	active := make([]*StatusMonitor, 0, len(uc.monitors[who.ID]))
	for m := range uc.monitors[who.ID] {
		active = append(active, m)
	}
	uc.mu.Unlock()
	for _, m := range active {
		m.Stop()
	}
	return res
}

func (uc *WhatsAppUsecase) SendText(ctx context.Context, who entities.Identity, phone, message string) (entities.InstanceResult, error) {
	phone, message = strings.TrimSpace(phone), strings.TrimSpace(message)
	verr := &entities.ValidationError{}
	if phone == "" {
		verr.Add("phone", "phone is required")
	}
	if message == "" {
		verr.Add("message", "message is required")
	}
	if err := verr.OrNil(); err != nil {
		return entities.InstanceResult{}, err
	}
	return uc.provider.SendText(ctx, who.Email, phone, message, entities.SendTextOptions{SimulateTyping: true}), nil
}

// Watch streams view states for the user's instance until ctx ends, the
// monitor stops or emit returns false.
func (uc *WhatsAppUsecase) Watch(ctx context.Context, who entities.Identity, userInitiated bool, emit func(ViewState) bool) {
	m := NewStatusMonitor(uc.provider, who.Email, userInitiated)

	uc.mu.Lock()
	if uc.monitors[who.ID] == nil {
		uc.monitors[who.ID] = make(map[*StatusMonitor]struct{})
	}
	uc.monitors[who.ID][m] = struct{}{}
	uc.mu.Unlock()

	defer func() {
		m.Stop()
		uc.mu.Lock()
		delete(uc.monitors[who.ID], m)
		if len(uc.monitors[who.ID]) == 0 {
			delete(uc.monitors, who.ID)
		}
		uc.mu.Unlock()
	}()

	zap.L().Debug("status watch started", zap.Int("user_id", who.ID), zap.Bool("initiated", userInitiated))
	m.Run(ctx, uc.pollInterval, emit)
}

func (uc *WhatsAppUsecase) activeMonitors(userID int) int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return len(uc.monitors[userID])
}

package usecases

import (
	"context"

	"conexbot/internal/entities"
	"conexbot/internal/interfaces"

	"go.uber.org/zap"
)

type SagaStep string

const (
	StepProvision   SagaStep = "provision"
	StepDeprovision SagaStep = "deprovision"
)

type OutcomeStatus string

const (
	OutcomeSucceeded      OutcomeStatus = "succeeded"
	OutcomeFailedNonFatal OutcomeStatus = "failed_non_fatal"
	OutcomeSkipped        OutcomeStatus = "skipped"
)

// InstanceOutcome records how the WhatsApp side of an account write went.
// The account write itself is authoritative and never depends on it.
type InstanceOutcome struct {
	Step      SagaStep      `json:"step"`
	Status    OutcomeStatus `json:"status"`
	ClientID  string        `json:"clientId"`
	QRCodeURL string        `json:"qrCodeUrl,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func (o InstanceOutcome) Succeeded() bool { return o.Status == OutcomeSucceeded }

// InstanceSaga runs the second step of account create/delete against the
// WhatsApp provider.
type InstanceSaga struct {
	provider interfaces.InstanceProvider
}

func NewInstanceSaga(provider interfaces.InstanceProvider) *InstanceSaga {
	return &InstanceSaga{provider: provider}
}

func (s *InstanceSaga) Provision(ctx context.Context, email string, opts entities.InstanceOptions) InstanceOutcome {
	out := InstanceOutcome{Step: StepProvision, ClientID: entities.ClientID(email)}
	if s == nil || s.provider == nil {
		out.Status = OutcomeSkipped
		return out
	}

	res := s.provider.CreateInstance(ctx, email, opts)
	if !res.Success {
		out.Status = OutcomeFailedNonFatal
		out.Error = res.Error
		zap.L().Warn("whatsapp instance provisioning failed, account kept",
			zap.String("email", email), zap.String("error", res.Error))
		return out
	}
	out.Status = OutcomeSucceeded
	out.QRCodeURL = res.QRCodeURL
	return out
}

func (s *InstanceSaga) Deprovision(ctx context.Context, email string) InstanceOutcome {
	out := InstanceOutcome{Step: StepDeprovision, ClientID: entities.ClientID(email)}
	if s == nil || s.provider == nil {
		out.Status = OutcomeSkipped
		return out
	}

	res := s.provider.DeleteInstance(ctx, email)
	if !res.Success {
		out.Status = OutcomeFailedNonFatal
		out.Error = res.Error
		zap.L().Warn("whatsapp instance removal failed, account already deleted",
			zap.String("email", email), zap.String("error", res.Error))
		return out
	}
	out.Status = OutcomeSucceeded
	return out
}

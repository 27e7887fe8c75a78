package interfaces

import (
	"context"
	"io"

	"conexbot/internal/entities"
)

// UserStore persists accounts. Lookups return (nil, nil) when no row matches.
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id int) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	List(ctx context.Context) ([]entities.User, error)
	Update(ctx context.Context, user *entities.User, passwordHash string) error
	UpdateRole(ctx context.Context, id int, role string) (*entities.User, error)
	UpdateProfile(ctx context.Context, id int, upd entities.ProfileUpdate) (*entities.User, error)
	Delete(ctx context.Context, id int) (*entities.User, error)
	CountByRole(ctx context.Context) (entities.RoleCounts, error)

	SetMessageTemplate(ctx context.Context, id int, message string) error
	SetContacts(ctx context.Context, id int, contacts []entities.Contact) error
	SetMessageInterval(ctx context.Context, id int, seconds int) error
	SetIAEnabled(ctx context.Context, id int, enabled bool) error
}

type MediaStore interface {
	Create(ctx context.Context, m *entities.Media) error
	ListByUser(ctx context.Context, userID int) ([]entities.Media, error)
	GetForUser(ctx context.Context, id, userID int) (*entities.Media, error)
	Delete(ctx context.Context, id, userID int) error
}

// UsageStore keeps per-day broadcast send counters.
type UsageStore interface {
	RecordSend(ctx context.Context, userID int, delivered bool) error
	Summary(ctx context.Context, userID int, days int) (entities.UsageSummary, error)
}

// InstanceProvider is the remote WhatsApp instance API. Every method reports
// failure inside its result instead of returning an error.
type InstanceProvider interface {
	CreateInstance(ctx context.Context, email string, opts entities.InstanceOptions) entities.InstanceResult
	DeleteInstance(ctx context.Context, email string) entities.InstanceResult
	Status(ctx context.Context, email string) entities.StatusResult
	ListInstances(ctx context.Context) entities.InstanceListResult
	QRCode(ctx context.Context, email string) entities.QRResult
	Logout(ctx context.Context, email string) entities.InstanceResult
	SendText(ctx context.Context, email, phone, message string, opts entities.SendTextOptions) entities.InstanceResult
}

// MediaStorage is the remote object store that owns uploaded files.
type MediaStorage interface {
	Upload(ctx context.Context, ownerEmail, filename, mimeType string, body io.Reader) (*entities.StoredObject, error)
	Delete(ctx context.Context, remoteID string) error
}

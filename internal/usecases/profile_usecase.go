package usecases

import (
	"context"
	"fmt"
	"io"
	"strings"

	"conexbot/internal/entities"
	"conexbot/internal/interfaces"

	"go.uber.org/zap"
)

const (
	MaxMessageLength = 4096
	MaxContacts      = 10000
)

// ContactsError rejects a whole contact batch and lists the offending rows.
type ContactsError struct {
	Rows []int
}

func (e *ContactsError) Error() string {
	return fmt.Sprintf("every contact needs a name and a phone (invalid rows: %v)", e.Rows)
}

func (e *ContactsError) Unwrap() error { return entities.ErrValidation }

// ContactParser turns an uploaded file into contacts in file order.
type ContactParser func(filename string, r io.Reader) ([]entities.Contact, error)

// ProfileUsecase serves self-service settings. Every method is scoped by the
// authenticated user id.
type ProfileUsecase struct {
	users       interfaces.UserStore
	parseImport ContactParser
}

func NewProfileUsecase(users interfaces.UserStore, parser ContactParser) *ProfileUsecase {
	return &ProfileUsecase{users: users, parseImport: parser}
}

func (uc *ProfileUsecase) Me(ctx context.Context, userID int) (*entities.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, entities.ErrNotFound
	}
	return user, nil
}

func (uc *ProfileUsecase) UpdateProfile(ctx context.Context, userID int, upd entities.ProfileUpdate) (*entities.User, error) {
	upd.Name, upd.Company = trimPtr(upd.Name), trimPtr(upd.Company)
	upd.Phone, upd.CPF = trimPtr(upd.Phone), trimPtr(upd.CPF)

	verr := &entities.ValidationError{}
	if upd.Name != nil {
		if *upd.Name == "" {
			verr.Add("name", "name cannot be empty")
		}
		checkLength(verr, "name", *upd.Name, entities.MaxNameLength)
	}
	checkProfileLengths(verr, upd.Company, upd.Phone, upd.CPF)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return uc.users.UpdateProfile(ctx, userID, upd)
}

func (uc *ProfileUsecase) Message(ctx context.Context, userID int) (string, error) {
	user, err := uc.Me(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.MessageTemplate, nil
}

func (uc *ProfileUsecase) SetMessage(ctx context.Context, userID int, message string) error {
	if len(message) > MaxMessageLength {
		return &entities.ValidationError{Fields: []entities.FieldError{{Field: "mensagem", Message: "message is too long"}}}
	}
	return uc.users.SetMessageTemplate(ctx, userID, message)
}

func (uc *ProfileUsecase) Contacts(ctx context.Context, userID int) ([]entities.Contact, error) {
	user, err := uc.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Contacts, nil
}

// SetContacts replaces the contact list. One invalid entry rejects the batch.
func (uc *ProfileUsecase) SetContacts(ctx context.Context, userID int, contacts []entities.Contact) error {
	if err := checkContactCount(len(contacts)); err != nil {
		return err
	}
	if rows := entities.InvalidContactRows(contacts); len(rows) > 0 {
		return &ContactsError{Rows: rows}
	}
	clean := make([]entities.Contact, len(contacts))
	for i, c := range contacts {
		clean[i] = entities.Contact{Name: strings.TrimSpace(c.Name), Phone: strings.TrimSpace(c.Phone)}
	}
	return uc.users.SetContacts(ctx, userID, clean)
}

func (uc *ProfileUsecase) ClearContacts(ctx context.Context, userID int) error {
	return uc.users.SetContacts(ctx, userID, []entities.Contact{})
}

// ImportContacts parses an uploaded file and replaces the list with it. Row
// numbers in a ContactsError count the header as row 1.
func (uc *ProfileUsecase) ImportContacts(ctx context.Context, userID int, filename string, r io.Reader) (int, error) {
	contacts, err := uc.parseImport(filename, r)
	if err != nil {
		return 0, &entities.ValidationError{Fields: []entities.FieldError{{Field: "file", Message: err.Error()}}}
	}
	if len(contacts) == 0 {
		return 0, &entities.ValidationError{Fields: []entities.FieldError{{Field: "file", Message: "file has no contacts"}}}
	}
	if err := checkContactCount(len(contacts)); err != nil {
		return 0, err
	}
	if rows := entities.InvalidContactRows(contacts); len(rows) > 0 {
		for i := range rows {
			rows[i]++
		}
		return 0, &ContactsError{Rows: rows}
	}
	if err := uc.SetContacts(ctx, userID, contacts); err != nil {
		return 0, err
	}
	zap.L().Info("contacts imported", zap.Int("user_id", userID), zap.Int("count", len(contacts)))
	return len(contacts), nil
}

func (uc *ProfileUsecase) Interval(ctx context.Context, userID int) (int, error) {
	user, err := uc.Me(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.MessageInterval, nil
}

// SetInterval stores the broadcast spacing. raw is the decoded JSON value.
func (uc *ProfileUsecase) SetInterval(ctx context.Context, userID int, raw any) (int, error) {
	seconds, ok := ParsePositiveInt(raw)
	if !ok {
		return 0, &entities.ValidationError{Fields: []entities.FieldError{{Field: "interval", Message: "interval must be a positive integer"}}}
	}
	if err := uc.users.SetMessageInterval(ctx, userID, seconds); err != nil {
		return 0, err
	}
	return seconds, nil
}

func (uc *ProfileUsecase) IAEnabled(ctx context.Context, userID int) (bool, error) {
	user, err := uc.Me(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IAEnabled, nil
}

func (uc *ProfileUsecase) SetIAEnabled(ctx context.Context, userID int, enabled bool) error {
	return uc.users.SetIAEnabled(ctx, userID, enabled)
}

func checkContactCount(n int) error {
	if n > MaxContacts {
		return &entities.ValidationError{Fields: []entities.FieldError{{
			Field:   "contacts",
			Message: fmt.Sprintf("at most %d contacts are allowed", MaxContacts),
		}}}
	}
	return nil
}

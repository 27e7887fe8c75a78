package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"conexbot/internal/entities"
	"conexbot/internal/infrastructure"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password, role, company, phone, cpf, plan_expires_at,
	message_template, message_interval, ia_enabled, contacts, created_at, updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var (
		u        entities.User
		contacts []byte
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Company, &u.Phone, &u.CPF, &u.PlanExpiresAt,
		&u.MessageTemplate, &u.MessageInterval, &u.IAEnabled, &contacts,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Contacts = []entities.Contact{}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &u.Contacts); err != nil {
			return nil, fmt.Errorf("decode contacts of user %d: %w", u.ID, err)
		}
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ensureEmailAvailable rejects emails already used by another row, compared
// case-insensitively, and emails whose WhatsApp client id another row already
// maps to.
func ensureEmailAvailable(ctx context.Context, q querier, email string, exceptID int) error {
	var id int
	err := q.QueryRow(ctx,
		"SELECT id FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1",
		email, exceptID).Scan(&id)
	if err == nil {
		return entities.ErrEmailTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check email: %w", err)
	}

	rows, err := q.Query(ctx, "SELECT email FROM users WHERE id <> $1", exceptID)
	if err != nil {
		return fmt.Errorf("check client id: %w", err)
	}
	others, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("check client id: %w", err)
	}
	if clientIDClash(email, others) {
		return entities.ErrClientIDTaken
	}
	return nil
}

// clientIDClash reports whether any of others maps to the same provider
// instance key as email.
func clientIDClash(email string, others []string) bool {
	id := entities.ClientID(email)
	for _, other := range others {
		if entities.ClientID(other) == id {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	contacts, err := json.Marshal(nonNilContacts(user.Contacts))
	if err != nil {
		return err
	}
	if user.MessageInterval <= 0 {
		user.MessageInterval = entities.DefaultMessageInterval
	}

	err = infrastructure.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := ensureEmailAvailable(ctx, tx, user.Email, 0); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO users (name, email, password, role, company, phone, cpf, plan_expires_at,
				message_template, message_interval, ia_enabled, contacts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at`,
			user.Name, user.Email, user.PasswordHash, user.Role, user.Company, user.Phone, user.CPF,
			user.PlanExpiresAt, user.MessageTemplate, user.MessageInterval, user.IAEnabled, contacts,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	})
	if isUniqueViolation(err) {
		return entities.ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*entities.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER($1)", email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) List(ctx context.Context) ([]entities.User, error) {
	rows, err := r.db.Query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Update writes identity and profile columns. The stored hash is replaced
// only when passwordHash is non-empty.
func (r *UserRepository) Update(ctx context.Context, user *entities.User, passwordHash string) error {
	err := infrastructure.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := ensureEmailAvailable(ctx, tx, user.Email, user.ID); err != nil {
			return err
		}
		updated, err := scanUser(tx.QueryRow(ctx, `
			UPDATE users SET name = $1, email = $2, role = $3, company = $4, phone = $5, cpf = $6,
				plan_expires_at = $7, password = COALESCE(NULLIF($8, ''), password),
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $9
			RETURNING `+userColumns,
			user.Name, user.Email, user.Role, user.Company, user.Phone, user.CPF,
			user.PlanExpiresAt, passwordHash, user.ID))
		if errors.Is(err, pgx.ErrNoRows) {
			return entities.ErrNotFound
		}
		if err != nil {
			return err
		}
		*user = *updated
		return nil
	})
	if isUniqueViolation(err) {
		return entities.ErrEmailTaken
	}
	return err
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int, role string) (*entities.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 RETURNING `+userColumns, role, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	return u, err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int, upd entities.ProfileUpdate) (*entities.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($1, name),
			company = COALESCE($2, company),
			phone = COALESCE($3, phone),
			cpf = COALESCE($4, cpf),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $5 RETURNING `+userColumns,
		upd.Name, upd.Company, upd.Phone, upd.CPF, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	return u, err
}

func (r *UserRepository) Delete(ctx context.Context, id int) (*entities.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, "DELETE FROM users WHERE id = $1 RETURNING "+userColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entities.ErrNotFound
	}
	return u, err
}

func (r *UserRepository) CountByRole(ctx context.Context) (entities.RoleCounts, error) {
	var c entities.RoleCounts
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE role = 'admin'),
			COUNT(*) FILTER (WHERE role = 'user'),
			COUNT(*) FILTER (WHERE role = 'moderator')
		FROM users`).Scan(&c.Total, &c.Admins, &c.Users, &c.Moderators)
	return c, err
}

func (r *UserRepository) SetMessageTemplate(ctx context.Context, id int, message string) error {
	return r.setColumn(ctx, "message_template", id, message)
}

func (r *UserRepository) SetContacts(ctx context.Context, id int, contacts []entities.Contact) error {
	data, err := json.Marshal(nonNilContacts(contacts))
	if err != nil {
		return err
	}
	return r.setColumn(ctx, "contacts", id, data)
}

func (r *UserRepository) SetMessageInterval(ctx context.Context, id int, seconds int) error {
	return r.setColumn(ctx, "message_interval", id, seconds)
}

func (r *UserRepository) SetIAEnabled(ctx context.Context, id int, enabled bool) error {
	return r.setColumn(ctx, "ia_enabled", id, enabled)
}

// setColumn updates a single settings column. column is always a constant
// from this file, never user input.
func (r *UserRepository) setColumn(ctx context.Context, column string, id int, value any) error {
	tag, err := r.db.Exec(ctx,
		fmt.Sprintf("UPDATE users SET %s = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2", column),
		value, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func nonNilContacts(c []entities.Contact) []entities.Contact {
	if c == nil {
		return []entities.Contact{}
	}
	return c
}

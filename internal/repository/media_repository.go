package repository

import (
	"context"
	"errors"

	"conexbot/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const mediaColumns = "id, user_id, filename, original_name, url, mimetype, size, remote_id, created_at"

type MediaRepository struct {
	db *pgxpool.Pool
}

func NewMediaRepository(db *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{db: db}
}

func scanMedia(row pgx.Row) (*entities.Media, error) {
	var m entities.Media
	err := row.Scan(&m.ID, &m.UserID, &m.Filename, &m.OriginalName, &m.URL,
		&m.MimeType, &m.Size, &m.RemoteID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MediaRepository) Create(ctx context.Context, m *entities.Media) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO media (user_id, filename, original_name, url, mimetype, size, remote_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		m.UserID, m.Filename, m.OriginalName, m.URL, m.MimeType, m.Size, m.RemoteID,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *MediaRepository) ListByUser(ctx context.Context, userID int) ([]entities.Media, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+mediaColumns+" FROM media WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []entities.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

func (r *MediaRepository) GetForUser(ctx context.Context, id, userID int) (*entities.Media, error) {
	m, err := scanMedia(r.db.QueryRow(ctx,
		"SELECT "+mediaColumns+" FROM media WHERE id = $1 AND user_id = $2", id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *MediaRepository) Delete(ctx context.Context, id, userID int) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM media WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

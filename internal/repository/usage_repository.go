package repository

import (
	"context"
	"errors"
	"time"

	"conexbot/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db, now: time.Now}
}

func (r *UsageRepository) today() time.Time {
	y, m, d := r.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordSend bumps today's sent or failed counter for the user.
func (r *UsageRepository) RecordSend(ctx context.Context, userID int, delivered bool) error {
	sent, failed := 0, 1
	if delivered {
		sent, failed = 1, 0
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (user_id, date, messages_sent, messages_failed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, date)
		DO UPDATE SET messages_sent = message_usage.messages_sent + EXCLUDED.messages_sent,
			messages_failed = message_usage.messages_failed + EXCLUDED.messages_failed
	`, userID, r.today(), sent, failed)
	return err
}

func (r *UsageRepository) dayUsage(ctx context.Context, userID int, day time.Time) (sent, failed int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT messages_sent, messages_failed
		FROM message_usage WHERE user_id = $1 AND date = $2
	`, userID, day).Scan(&sent, &failed)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil
	}
	return sent, failed, err
}

func (r *UsageRepository) sinceUsage(ctx context.Context, userID int, from time.Time) (sent, failed int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(messages_sent), 0), COALESCE(SUM(messages_failed), 0)
		FROM message_usage WHERE user_id = $1 AND date >= $2
	`, userID, from).Scan(&sent, &failed)
	return sent, failed, err
}

// History returns the last days of usage, oldest first. Days without sends
// are omitted.
func (r *UsageRepository) History(ctx context.Context, userID int, days int) ([]entities.DailyUsage, error) {
	from := r.today().AddDate(0, 0, -days)
	rows, err := r.db.Query(ctx, `
		SELECT date, messages_sent, messages_failed
		FROM message_usage
		WHERE user_id = $1 AND date >= $2
		ORDER BY date ASC
	`, userID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []entities.DailyUsage{}
	for rows.Next() {
		var u entities.DailyUsage
		if err := rows.Scan(&u.Date, &u.Sent, &u.Failed); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

func (r *UsageRepository) Summary(ctx context.Context, userID int, days int) (entities.UsageSummary, error) {
	var s entities.UsageSummary
	today := r.today()

	var err error
	if s.TodaySent, s.TodayFailed, err = r.dayUsage(ctx, userID, today); err != nil {
		return s, err
	}
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if s.MonthSent, s.MonthFailed, err = r.sinceUsage(ctx, userID, firstOfMonth); err != nil {
		return s, err
	}
	if s.History, err = r.History(ctx, userID, days); err != nil {
		return s, err
	}
	return s, nil
}

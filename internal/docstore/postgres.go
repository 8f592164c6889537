package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sandeepkv93/ritualcal/internal/model"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyPostgres(fmt.Errorf("ping database: %w", err))
	}
	return pool, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return classifyPostgres(p.pool.Ping(ctx))
}

func (p *Postgres) Load(ctx context.Context, id string) (model.Document, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = $1`, id)
	doc, err := scanPostgresCalendar(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, fmt.Errorf("%w: calendar %q", ErrNotFound, id)
		}
		return model.Document{}, classifyPostgres(err)
	}
	return doc, nil
}

func (p *Postgres) Mutate(ctx context.Context, id string, create bool, fn func(*model.Document) error) (model.Document, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return model.Document{}, classifyPostgres(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = $1 FOR UPDATE`, id)
	doc, err := scanPostgresCalendar(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if !create {
			return model.Document{}, fmt.Errorf("%w: calendar %q", ErrNotFound, id)
		}
		doc = model.Document{ID: id}
	case err != nil:
		return model.Document{}, classifyPostgres(err)
	}

	if err := fn(&doc); err != nil {
		return model.Document{}, err
	}
	doc.ID = id
	if doc.Tokens == nil {
		doc.Tokens = []string{}
	}

	cols, err := encodeColumns(doc)
	if err != nil {
		return model.Document{}, err
	}
	var lastUpdated *time.Time
	if !doc.LastUpdated.IsZero() {
		at := doc.LastUpdated.UTC()
		lastUpdated = &at
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO calendars (id, daily, weekly, master, rules, bans, fcm_tokens, last_updated, last_reminder_notification_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			daily = EXCLUDED.daily,
			weekly = EXCLUDED.weekly,
			master = EXCLUDED.master,
			rules = EXCLUDED.rules,
			bans = EXCLUDED.bans,
			fcm_tokens = EXCLUDED.fcm_tokens,
			last_updated = EXCLUDED.last_updated,
			last_reminder_notification_date = EXCLUDED.last_reminder_notification_date,
			updated_at = now()`,
		id, string(cols.daily), string(cols.weekly), string(cols.master), string(cols.rules), string(cols.bans),
		doc.Tokens, lastUpdated, string(doc.LastBroadcastDate),
	)
	if err != nil {
		return model.Document{}, classifyPostgres(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Document{}, classifyPostgres(err)
	}
	return doc, nil
}

func (p *Postgres) List(ctx context.Context) ([]model.Document, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+calendarColumns+` FROM calendars ORDER BY id`)
	if err != nil {
		return nil, classifyPostgres(err)
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		doc, scanErr := scanPostgresCalendar(rows)
		if scanErr != nil {
			return nil, classifyPostgres(scanErr)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgres(err)
	}
	return out, nil
}

func scanPostgresCalendar(row pgx.Row) (model.Document, error) {
	var doc model.Document
	var daily, weekly, master, rules, bans []byte
	var lastUpdated *time.Time
	var broadcast string
	if err := row.Scan(&doc.ID, &daily, &weekly, &master, &rules, &bans, &doc.Tokens, &lastUpdated, &broadcast); err != nil {
		return model.Document{}, err
	}
	if err := decodeColumns(&doc, daily, weekly, master, rules, bans); err != nil {
		return model.Document{}, err
	}
	if lastUpdated != nil {
		doc.LastUpdated = lastUpdated.UTC()
	}
	doc.LastBroadcastDate = model.Date(broadcast)
	return doc, nil
}

func classifyPostgres(err error) error {
	if err == nil || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrDeadlineExceeded, err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), pgErr.Code == "57P01", pgErr.Code == "57P03":
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		case strings.HasPrefix(pgErr.Code, "28"), pgErr.Code == "42501":
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		case strings.HasPrefix(pgErr.Code, "22"):
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
	}
	return err
}

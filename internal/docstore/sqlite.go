package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sandeepkv93/ritualcal/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

const calendarColumns = `id, daily, weekly, master, rules, bans, fcm_tokens, last_updated, last_reminder_notification_date`

type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) (*SQLite, error) {
	if db == nil {
		return nil, errors.New("docstore: nil db")
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLite{db: db}, nil
}

// OpenSQLite opens path with immediate transactions so concurrent writers
// serialise on BEGIN instead of failing on lock upgrade.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := "file:" + path + "?" + url.Values{"_txlock": {"immediate"}}.Encode()
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	store, err := NewSQLite(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Load(ctx context.Context, id string) (model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = ?`, id)
	doc, err := scanCalendar(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Document{}, fmt.Errorf("%w: calendar %q", ErrNotFound, id)
		}
		return model.Document{}, classifySQLite(err)
	}
	return doc, nil
}

func (s *SQLite) Mutate(ctx context.Context, id string, create bool, fn func(*model.Document) error) (model.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, classifySQLite(err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+calendarColumns+` FROM calendars WHERE id = ?`, id)
	doc, err := scanCalendar(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if !create {
			return model.Document{}, fmt.Errorf("%w: calendar %q", ErrNotFound, id)
		}
		doc = model.Document{ID: id}
	case err != nil:
		return model.Document{}, classifySQLite(err)
	}

	if err := fn(&doc); err != nil {
		return model.Document{}, err
	}
	doc.ID = id

	cols, err := encodeColumns(doc)
	if err != nil {
		return model.Document{}, err
	}
	now := time.Now().UTC().Format(sqliteTimeLayout)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO calendars (id, daily, weekly, master, rules, bans, fcm_tokens, last_updated, last_reminder_notification_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			daily = excluded.daily,
			weekly = excluded.weekly,
			master = excluded.master,
			rules = excluded.rules,
			bans = excluded.bans,
			fcm_tokens = excluded.fcm_tokens,
			last_updated = excluded.last_updated,
			last_reminder_notification_date = excluded.last_reminder_notification_date,
			updated_at = excluded.updated_at`,
		id, cols.daily, cols.weekly, cols.master, cols.rules, cols.bans, cols.tokens,
		nullTime(doc.LastUpdated), string(doc.LastBroadcastDate), now, now,
	)
	if err != nil {
		return model.Document{}, classifySQLite(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Document{}, classifySQLite(err)
	}
	return doc, nil
}

func (s *SQLite) List(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+calendarColumns+` FROM calendars ORDER BY id`)
	if err != nil {
		return nil, classifySQLite(err)
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		doc, scanErr := scanCalendar(rows)
		if scanErr != nil {
			return nil, classifySQLite(scanErr)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLite(err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

type encodedColumns struct {
	daily, weekly, master, rules, bans, tokens []byte
}

func encodeColumns(doc model.Document) (encodedColumns, error) {
	var out encodedColumns
	var err error
	if out.daily, err = marshalList(doc.Daily); err != nil {
		return out, err
	}
	if out.weekly, err = marshalList(doc.Weekly); err != nil {
		return out, err
	}
	if out.master, err = marshalList(doc.Master); err != nil {
		return out, err
	}
	if out.rules, err = marshalList(doc.Rules); err != nil {
		return out, err
	}
	if out.bans, err = marshalList(doc.Bans); err != nil {
		return out, err
	}
	if out.tokens, err = marshalList(doc.Tokens); err != nil {
		return out, err
	}
	return out, nil
}

func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return raw, nil
}

func scanCalendar(s scanner) (model.Document, error) {
	var doc model.Document
	var daily, weekly, master, rules, bans, tokens []byte
	var lastUpdated sql.NullString
	var broadcast string
	if err := s.Scan(&doc.ID, &daily, &weekly, &master, &rules, &bans, &tokens, &lastUpdated, &broadcast); err != nil {
		return model.Document{}, err
	}
	if err := decodeColumns(&doc, daily, weekly, master, rules, bans); err != nil {
		return model.Document{}, err
	}
	if err := json.Unmarshal(tokens, &doc.Tokens); err != nil {
		return model.Document{}, fmt.Errorf("%w: fcm_tokens: %v", ErrInvalidArgument, err)
	}
	if lastUpdated.Valid && lastUpdated.String != "" {
		t, err := time.Parse(sqliteTimeLayout, lastUpdated.String)
		if err != nil {
			return model.Document{}, fmt.Errorf("%w: last_updated: %v", ErrInvalidArgument, err)
		}
		doc.LastUpdated = t
	}
	doc.LastBroadcastDate = model.Date(broadcast)
	return doc, nil
}

func decodeColumns(doc *model.Document, daily, weekly, master, rules, bans []byte) error {
	fields := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"daily", daily, &doc.Daily},
		{"weekly", weekly, &doc.Weekly},
		{"master", master, &doc.Master},
		{"rules", rules, &doc.Rules},
		{"bans", bans, &doc.Bans},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidArgument, f.name, err)
		}
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func classifySQLite(err error) error {
	if err == nil || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrDeadlineExceeded, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		case sqlite3.ErrPerm, sqlite3.ErrReadonly, sqlite3.ErrAuth:
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
	}
	return err
}

package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

const (
	keyCalendarID         = "calendar-id"
	keyLastToken          = "last-token"
	keyLastISOWeek        = "last-iso-week"
	keyLastBroadcastShown = "last-broadcast-shown"
	listsKeyPrefix        = "lists-"
)

var ErrInvalidKey = errors.New("localcache: invalid key")

// Cache is a directory of small JSON files, one per key. Writes go through a
// temp file and a rename so a crash never leaves a torn entry.
type Cache struct {
	mu  sync.Mutex
	dir string
}

func Open(dir string) (*Cache, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: empty cache dir", ErrInvalidKey)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(c.dir, key+".json"), nil
}

// Get decodes the entry for key into v. It reports false when the entry is
// absent or empty.
func (c *Cache) Get(key string, v any) (bool, error) {
	p, err := c.path(key)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Put(key string, v any) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (c *Cache) Delete(key string) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Lists returns the cached five-list document of a calendar.
func (c *Cache) Lists(calendarID string) (model.Document, bool, error) {
	var doc model.Document
	ok, err := c.Get(listsKeyPrefix+calendarID, &doc)
	if ok {
		doc.ID = calendarID
	}
	return doc, ok, err
}

// SaveLists stores only the list fields of doc; tokens and markers are owned
// by the remote document.
func (c *Cache) SaveLists(calendarID string, doc model.Document) error {
	return c.Put(listsKeyPrefix+calendarID, model.Document{
		Daily:       doc.Daily,
		Weekly:      doc.Weekly,
		Master:      doc.Master,
		Rules:       doc.Rules,
		Bans:        doc.Bans,
		LastUpdated: doc.LastUpdated,
	})
}

func (c *Cache) CalendarID() (string, error) {
	var id string
	_, err := c.Get(keyCalendarID, &id)
	return id, err
}

func (c *Cache) SetCalendarID(id string) error {
	return c.Put(keyCalendarID, id)
}

func (c *Cache) LastToken() (string, error) {
	var tok string
	_, err := c.Get(keyLastToken, &tok)
	return tok, err
}

func (c *Cache) SetLastToken(tok string) error {
	return c.Put(keyLastToken, tok)
}

// ISOWeek identifies one ISO week, for weekly reset bookkeeping.
type ISOWeek struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

func WeekOf(d model.Date) ISOWeek {
	y, w := d.ISOWeek()
	return ISOWeek{Year: y, Week: w}
}

func (c *Cache) LastISOWeek() (ISOWeek, bool, error) {
	var w ISOWeek
	ok, err := c.Get(keyLastISOWeek, &w)
	return w, ok, err
}

func (c *Cache) SetLastISOWeek(w ISOWeek) error {
	return c.Put(keyLastISOWeek, w)
}

func (c *Cache) LastBroadcastShown() (model.Date, error) {
	var d model.Date
	_, err := c.Get(keyLastBroadcastShown, &d)
	return d, err
}

func (c *Cache) SetLastBroadcastShown(d model.Date) error {
	return c.Put(keyLastBroadcastShown, d)
}

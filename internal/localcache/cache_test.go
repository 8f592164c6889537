package localcache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

func TestCacheRoundTripEntries(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if id, err := c.CalendarID(); err != nil || id != "" {
		t.Fatalf("expected empty calendar id, got %q %v", id, err)
	}
	if err := c.SetCalendarID("cal-1"); err != nil {
		t.Fatalf("set calendar id: %v", err)
	}
	if err := c.SetLastToken("tok-1"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := c.SetLastISOWeek(WeekOf("2024-03-06")); err != nil {
		t.Fatalf("set week: %v", err)
	}
	if err := c.SetLastBroadcastShown("2024-03-06"); err != nil {
		t.Fatalf("set broadcast: %v", err)
	}

	reopened, err := Open(c.Dir())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	id, _ := reopened.CalendarID()
	tok, _ := reopened.LastToken()
	week, ok, _ := reopened.LastISOWeek()
	shown, _ := reopened.LastBroadcastShown()
	if id != "cal-1" || tok != "tok-1" || !ok || week != (ISOWeek{Year: 2024, Week: 10}) || shown != "2024-03-06" {
		t.Fatalf("unexpected persisted values: %q %q %+v %q", id, tok, week, shown)
	}
}

func TestListsKeepOnlyListFields(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok, err := c.Lists("cal"); ok || err != nil {
		t.Fatalf("expected cache miss, got ok=%v err=%v", ok, err)
	}
	doc := model.Document{
		Daily:  []model.Record{{ID: "d1", Name: "Read"}},
		Rules:  []model.Entry{{ID: "r1", Text: "Walk"}},
		Tokens: []string{"secret"},
	}
	if err := c.SaveLists("cal", doc); err != nil {
		t.Fatalf("save lists: %v", err)
	}
	got, ok, err := c.Lists("cal")
	if err != nil || !ok {
		t.Fatalf("load lists: ok=%v err=%v", ok, err)
	}
	if got.ID != "cal" || len(got.Daily) != 1 || len(got.Rules) != 1 || len(got.Tokens) != 0 {
		t.Fatalf("unexpected cached document: %#v", got)
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), "lists-cal.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestRejectsPathLikeKeys(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b"} {
		if err := c.Put(key, 1); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", key, err)
		}
	}
	if _, ok, err := c.Lists("../x"); ok || !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected invalid calendar key, got ok=%v err=%v", ok, err)
	}
}

func TestCorruptEntryIsReported(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := os.WriteFile(filepath.Join(c.Dir(), "calendar-id.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CalendarID(); err == nil {
		t.Fatal("expected decode error for corrupt entry")
	}
	if err := c.Delete("calendar-id"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if id, err := c.CalendarID(); err != nil || id != "" {
		t.Fatalf("expected empty after delete, got %q %v", id, err)
	}
}

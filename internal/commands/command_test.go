package commands

import (
	"errors"
	"testing"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/add daily Morning run time:07:30 remind", TypeAdd},
		{"edit weekly 2 time:10:00", TypeEdit},
		{"toggle daily 1", TypeToggle},
		{"delete master abc", TypeDelete},
		{"activate 3", TypeActivate},
		{"deactivate 3", TypeDeactivate},
		{"rule Sleep by 23:00", TypeRule},
		{"ban Doomscrolling", TypeBan},
		{"show calendar", TypeShow},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseAddFields(t *testing.T) {
	cmd, err := Parse("add weekly Clean the flat day:Sunday time:11:00 remind | kitchen first")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := cmd.Add.Fields
	if cmd.Add.Kind != model.KindWeekly || f.Name != "Clean the flat" {
		t.Fatalf("unexpected add: %+v", cmd.Add)
	}
	if f.Day == nil || *f.Day != model.Sunday || f.Time == nil || *f.Time != "11:00" {
		t.Fatalf("unexpected schedule fields: %+v", f)
	}
	if f.Reminder == nil || !*f.Reminder || f.Description == nil || *f.Description != "kitchen first" {
		t.Fatalf("unexpected flags: %+v", f)
	}
}

func TestParseRuleKeepsTextVerbatim(t *testing.T) {
	cmd, err := Parse("add rules No screens after 22:00 | really")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.Add.Kind != model.KindRules || cmd.Add.Fields.Name != "No screens after 22:00 | really" {
		t.Fatalf("unexpected rule: %+v", cmd.Add)
	}
}

func TestParseToggleDate(t *testing.T) {
	cmd, err := Parse("toggle daily d1 2024-03-05")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmd.Toggle.Date != "2024-03-05" || cmd.Toggle.Ref != "d1" {
		t.Fatalf("unexpected toggle: %+v", cmd.Toggle)
	}
	cmd, err = Parse("toggle master 1 today")
	if err != nil || cmd.Toggle.Date != "" {
		t.Fatalf("expected today to map to empty date, got %+v (%v)", cmd.Toggle, err)
	}
}

func TestParseRejectsInvalidArguments(t *testing.T) {
	for _, in := range []string{
		"add daily",
		"add daily Run time:7:30",
		"add weekly Laundry day:someday",
		"toggle rules 1",
		"toggle daily 1 05/03/2024",
		"edit daily 1",
		"delete daily",
		"activate",
		"ban",
		"show nothing",
		"add chores Sweep",
	} {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("parse %q: expected invalid argument, got %v", in, err)
		}
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("/unknown do x")
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if _, err := Parse("  /  "); !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
		t.Fatalf("expected empty input error, got %v", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/add master Call the bank")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Add: func(a AddArgs) (Result, error) {
			called = true
			if a.Fields.Name != "Call the bank" || a.Kind != model.KindMaster {
				t.Fatalf("unexpected add: %+v", a)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("deactivate 1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}

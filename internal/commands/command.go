package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

type Type string

const (
	TypeAdd        Type = "add"
	TypeEdit       Type = "edit"
	TypeToggle     Type = "toggle"
	TypeDelete     Type = "delete"
	TypeActivate   Type = "activate"
	TypeDeactivate Type = "deactivate"
	TypeRule       Type = "rule"
	TypeBan        Type = "ban"
	TypeShow       Type = "show"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Fields are the task attributes a command sets. Nil pointers are left
// unchanged by edit.
type Fields struct {
	Name        string
	Description *string
	Time        *model.ClockTime
	Day         *model.Weekday
	Reminder    *bool
}

type AddArgs struct {
	Kind   model.Kind
	Fields Fields
}

// EditArgs targets a task by id or by its 1-based position in the list.
type EditArgs struct {
	Kind   model.Kind
	Ref    string
	Fields Fields
}

type ToggleArgs struct {
	Kind model.Kind
	Ref  string
	// Date is empty for today.
	Date model.Date
}

type DeleteArgs struct {
	Kind model.Kind
	Ref  string
}

type ActivateArgs struct {
	Ref    string
	Active bool
}

type EntryArgs struct {
	Kind model.Kind
	Text string
}

type ShowArgs struct {
	Subject string
}

// Show subjects beyond the five list kinds.
const (
	SubjectCalendar = "calendar"
	SubjectShare    = "share"
	SubjectHelp     = "help"
)

type Command struct {
	Type     Type
	Raw      string
	Add      *AddArgs
	Edit     *EditArgs
	Toggle   *ToggleArgs
	Delete   *DeleteArgs
	Activate *ActivateArgs
	Entry    *EntryArgs
	Show     *ShowArgs
}

// Parse reads one palette command. Task attributes are given as key:value
// words (time:07:30, day:monday) plus the bare word "remind"; text after a
// " | " separator becomes the description.
//
//	add daily Morning run time:07:30 remind | five kilometres
//	toggle weekly 2 2024-03-06
func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	rest := strings.TrimSpace(raw[len(parts[0]):])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, rest)
	case TypeEdit:
		return parseEdit(input, rest)
	case TypeToggle:
		return parseToggle(input, args)
	case TypeDelete:
		return parseDelete(input, args)
	case TypeActivate, TypeDeactivate:
		if len(args) != 1 {
			return Command{}, invalid("%s requires a daily task", head)
		}
		return Command{Type: Type(head), Raw: input, Activate: &ActivateArgs{Ref: args[0], Active: head == string(TypeActivate)}}, nil
	case TypeRule, TypeBan:
		if rest == "" {
			return Command{}, invalid("%s requires text", head)
		}
		kind := model.KindRules
		if head == string(TypeBan) {
			kind = model.KindBans
		}
		return Command{Type: Type(head), Raw: input, Entry: &EntryArgs{Kind: kind, Text: rest}}, nil
	case TypeShow:
		return parseShow(input, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseKind(raw string, scheduledOnly bool) (model.Kind, error) {
	kind, err := model.ParseKind(raw)
	if err != nil {
		return "", invalid("unknown list %q", raw)
	}
	if scheduledOnly && !kind.Scheduled() {
		return "", invalid("%s entries have no schedule", kind)
	}
	return kind, nil
}

func splitHead(rest string) (string, string) {
	rest = strings.TrimSpace(rest)
	if i := strings.IndexFunc(rest, func(r rune) bool { return r == ' ' || r == '\t' }); i >= 0 {
		return rest[:i], strings.TrimSpace(rest[i+1:])
	}
	return rest, ""
}

func parseAdd(raw, rest string) (Command, error) {
	head, rest := splitHead(rest)
	if head == "" {
		return Command{}, invalid("add requires a list and a name")
	}
	kind, err := parseKind(head, false)
	if err != nil {
		return Command{}, err
	}
	if !kind.Scheduled() {
		if rest == "" {
			return Command{}, invalid("add %s requires text", kind)
		}
		return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Kind: kind, Fields: Fields{Name: rest}}}, nil
	}
	fields, err := parseFields(rest)
	if err != nil {
		return Command{}, err
	}
	if fields.Name == "" {
		return Command{}, invalid("add requires a name")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Kind: kind, Fields: fields}}, nil
}

func parseEdit(raw, rest string) (Command, error) {
	head, rest := splitHead(rest)
	ref, rest := splitHead(rest)
	if head == "" || ref == "" {
		return Command{}, invalid("edit requires a list and a task")
	}
	kind, err := parseKind(head, false)
	if err != nil {
		return Command{}, err
	}
	var fields Fields
	if kind.Scheduled() {
		if fields, err = parseFields(rest); err != nil {
			return Command{}, err
		}
	} else {
		fields.Name = rest
	}
	if fields == (Fields{}) {
		return Command{}, invalid("edit requires at least one change")
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &EditArgs{Kind: kind, Ref: ref, Fields: fields}}, nil
}

func parseFields(rest string) (Fields, error) {
	var f Fields
	if i := strings.Index(rest, "|"); i >= 0 {
		desc := strings.TrimSpace(rest[i+1:])
		f.Description = &desc
		rest = rest[:i]
	}
	var name []string
	for _, word := range strings.Fields(rest) {
		lower := strings.ToLower(word)
		switch {
		case strings.HasPrefix(lower, "time:"):
			c, err := model.ParseClock(word[len("time:"):])
			if err != nil {
				return Fields{}, invalid("time must be HH:MM, got %q", word[len("time:"):])
			}
			f.Time = &c
		case strings.HasPrefix(lower, "day:"):
			w, err := model.ParseWeekday(lower[len("day:"):])
			if err != nil {
				return Fields{}, invalid("unknown weekday %q", word[len("day:"):])
			}
			f.Day = &w
		case lower == "remind" || lower == "noremind":
			on := lower == "remind"
			f.Reminder = &on
		default:
			name = append(name, word)
		}
	}
	f.Name = strings.Join(name, " ")
	return f, nil
}

func parseToggle(raw string, args []string) (Command, error) {
	if len(args) < 2 || len(args) > 3 {
		return Command{}, invalid("toggle requires a list, a task and an optional date")
	}
	kind, err := parseKind(args[0], true)
	if err != nil {
		return Command{}, err
	}
	out := &ToggleArgs{Kind: kind, Ref: args[1]}
	if len(args) == 3 && strings.ToLower(args[2]) != "today" {
		d, err := model.ParseDate(args[2])
		if err != nil {
			return Command{}, invalid("date must be YYYY-MM-DD, got %q", args[2])
		}
		out.Date = d
	}
	return Command{Type: TypeToggle, Raw: raw, Toggle: out}, nil
}

func parseDelete(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("delete requires a list and a task")
	}
	kind, err := parseKind(args[0], false)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeDelete, Raw: raw, Delete: &DeleteArgs{Kind: kind, Ref: args[1]}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("show requires a subject")
	}
	subject := strings.ToLower(args[0])
	switch subject {
	case SubjectCalendar, SubjectShare, SubjectHelp:
	default:
		if _, err := model.ParseKind(subject); err != nil {
			return Command{}, invalid("nothing to show for %q", subject)
		}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject}}, nil
}

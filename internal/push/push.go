package push

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Permanent failure codes. A token reported with one of these will never
// accept a delivery again.
const (
	CodeNotRegistered   = "registration-token-not-registered"
	CodeInvalidToken    = "invalid-registration-token"
	CodeInvalidArgument = "invalid-argument"
	CodeUnavailable     = "unavailable"
)

type Message struct {
	Token    string            `json:"token"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Calendar string            `json:"calendar,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

type Result struct {
	Token     string `json:"token"`
	Success   bool   `json:"success"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Sender delivers a batch and reports one Result per message, in order. An
// error means the batch as a whole could not be attempted.
type Sender interface {
	SendBatch(ctx context.Context, msgs []Message) ([]Result, error)
}

// IsInvalidToken reports whether code marks the token as permanently
// unusable. Codes may carry a "messaging/" namespace prefix.
func IsInvalidToken(code string) bool {
	code = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(code)), "messaging/")
	switch code {
	case CodeNotRegistered, CodeInvalidToken, CodeInvalidArgument:
		return true
	default:
		return false
	}
}

// InvalidTokens returns the tokens of results that failed permanently.
func InvalidTokens(results []Result) []string {
	var out []string
	for _, r := range results {
		if !r.Success && r.Token != "" && IsInvalidToken(r.ErrorCode) {
			out = append(out, r.Token)
		}
	}
	return out
}

// LogSender writes every message to the log and reports success. It is the
// default transport when no gateway is configured.
type LogSender struct {
	Logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSender{Logger: logger}
}

func (s *LogSender) SendBatch(_ context.Context, msgs []Message) ([]Result, error) {
	out := make([]Result, len(msgs))
	for i, m := range msgs {
		s.Logger.Info("notification", "calendar", m.Calendar, "token", redact(m.Token), "title", m.Title, "body", m.Body)
		out[i] = Result{Token: m.Token, Success: true}
	}
	return out, nil
}

func redact(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:4] + "…" + token[len(token)-4:]
}

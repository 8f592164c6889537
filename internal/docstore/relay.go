package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultRelayChannel = "ritualcal:calendar-changes"

type changeNotice struct {
	Origin   string `json:"origin"`
	Calendar string `json:"calendar"`
}

// Relay carries change notices between processes sharing one backend, so a
// subscriber in one process sees writes made by another. Notices carry only
// the calendar id; receivers re-read the document.
type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	log     *slog.Logger
}

func NewRelay(redisURL string, logger *slog.Logger) (*Relay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis: %w", ErrUnavailable, err)
	}
	return NewRelayWithClient(client, DefaultRelayChannel, logger), nil
}

func NewRelayWithClient(client *redis.Client, channel string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Relay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     logger,
	}
}

func (r *Relay) Publish(ctx context.Context, calendarID string) error {
	payload, err := json.Marshal(changeNotice{Origin: r.origin, Calendar: calendarID})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Listen calls fn for every notice published by another process until ctx
// ends.
func (r *Relay) Listen(ctx context.Context, fn func(calendarID string)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("%w: subscribe %s: %w", ErrUnavailable, r.channel, err)
	}
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var notice changeNotice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				r.log.Warn("dropping malformed change notice", "error", err)
				continue
			}
			if notice.Origin == r.origin || notice.Calendar == "" {
				continue
			}
			fn(notice.Calendar)
		}
	}
}

func (r *Relay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Relay) Close() error {
	return r.client.Close()
}

package goSession

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LoginEvent is emitted once per successful one-time code login.
type LoginEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	SessionID  string    `json:"session_id"`
}

// LoginSink receives login events from the Manager's dispatcher goroutine.
type LoginSink interface {
	Emit(ctx context.Context, event LoginEvent)
}

// NoOpLoginSink drops login events.
type NoOpLoginSink struct{}

func (NoOpLoginSink) Emit(context.Context, LoginEvent) {}

// ChannelLoginSink writes login events into a buffered channel.
type ChannelLoginSink struct {
	events chan LoginEvent
}

func NewChannelLoginSink(buffer int) *ChannelLoginSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelLoginSink{
		events: make(chan LoginEvent, buffer),
	}
}

func (s *ChannelLoginSink) Emit(ctx context.Context, event LoginEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelLoginSink) Events() <-chan LoginEvent {
	return s.events
}

// LogLoginSink writes one structured log line per login event.
type LogLoginSink struct {
	logger zerolog.Logger
}

func NewLogLoginSink(logger zerolog.Logger) *LogLoginSink {
	return &LogLoginSink{logger: logger}
}

func (s *LogLoginSink) Emit(_ context.Context, event LoginEvent) {
	s.logger.Info().
		Str("event", "user_logged_in").
		Str("user_id", event.UserID).
		Str("remote_addr", event.RemoteAddr).
		Str("sid", event.SessionID).
		Time("at", event.Timestamp).
		Msg("login")
}

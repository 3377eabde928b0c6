// Package notify delivers user-facing success and failure notices.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/foodshare/internal/logging"
)

type Level int

const (
	Info Level = iota
	Success
	Failure
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "info"
	}
}

type Notice struct {
	Level   Level
	Message string
	Err     error
}

func (n Notice) String() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %v", n.Message, n.Err)
	}
	return n.Message
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Writer prints notices one per line, prefixed by their level.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Notify(_ context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", notice.Level, notice)
}

// Log forwards notices to a logger.
type Log struct {
	Logger logging.Logger
}

func (n Log) Notify(ctx context.Context, notice Notice) {
	switch notice.Level {
	case Failure:
		n.Logger.Warn(ctx, notice.Message, "error", notice.Err)
	default:
		n.Logger.Info(ctx, notice.Message, "level", notice.Level.String())
	}
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, x := range m {
		x.Notify(ctx, n)
	}
}

// Memory keeps every notice. Useful in tests.
type Memory struct {
	mu      sync.Mutex
	notices []Notice
}

func (m *Memory) Notify(_ context.Context, n Notice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices = append(m.notices, n)
}

func (m *Memory) Notices() []Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notice, len(m.notices))
	copy(out, m.notices)
	return out
}

// Discard drops every notice.
type Discard struct{}

func (Discard) Notify(context.Context, Notice) {}

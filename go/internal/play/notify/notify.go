package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// Level of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier shows short user-facing messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Console prints notifications as lines on a writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Success(msg string) {
	c.print(LevelSuccess, msg)
}

func (c *Console) Error(msg string) {
	c.print(LevelError, msg)
}

func (c *Console) print(level Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mark := "✔"
	if level == LevelError {
		mark = "✖"
	}
	fmt.Fprintf(c.out, "%s %s\n", mark, msg)
	log.Debug().Str("level", string(level)).Str("message", msg).Msg("notification shown")
}

// Entry is a recorded notification.
type Entry struct {
	Level   Level
	Message string
}

// Memory keeps notifications in memory, for tests and headless runs.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func (m *Memory) Success(msg string) {
	m.add(LevelSuccess, msg)
}

func (m *Memory) Error(msg string) {
	m.add(LevelError, msg)
}

func (m *Memory) add(level Level, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: level, Message: msg})
}

// Entries returns a copy of what was recorded so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Errors returns the recorded error messages.
func (m *Memory) Errors() []string {
	var out []string
	for _, e := range m.Entries() {
		if e.Level == LevelError {
			out = append(out, e.Message)
		}
	}
	return out
}

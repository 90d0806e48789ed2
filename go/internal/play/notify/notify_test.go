package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Success("Game started")
	c.Error("Cannot connect server!")

	assert.Equal(t, "✔ Game started\n✖ Cannot connect server!\n", buf.String())
}

func TestMemory(t *testing.T) {
	var m Memory
	m.Success("ok")
	m.Error("bad")

	assert.Equal(t, []Entry{{LevelSuccess, "ok"}, {LevelError, "bad"}}, m.Entries())
	assert.Equal(t, []string{"bad"}, m.Errors())
}

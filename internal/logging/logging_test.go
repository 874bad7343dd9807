package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRespectsVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger := New(false, &buf)
	logger.Debug("hidden")
	logger.Info("shown")
	_ = logger.Sync()

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")

	buf.Reset()
	logger = New(true, &buf)
	logger.Debug("now visible")
	_ = logger.Sync()
	assert.Contains(t, buf.String(), "now visible")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{strings.Repeat("a", 12), 10, strings.Repeat("a", 10) + "..."},
		{"anything", 0, "anything"},
		{"注册成功，获得积分", 4, "注册成功..."},
		{"注册成功", 4, "注册成功"},
		{"ok: 藏品", 5, "ok: 藏..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
	}
}

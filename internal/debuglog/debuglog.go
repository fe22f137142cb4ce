// Package debuglog mirrors log milestones on a serial line.
//
// A Hook is added to a logrus logger; every entry at or above its level is
// written to the underlying writer as a single CRLF terminated line, which
// is what a terminal attached to a USB serial adapter expects.
package debuglog

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

// Hook is a logrus.Hook writing entries to w.
type Hook struct {
	mu     sync.Mutex
	w      io.Writer
	levels []logrus.Level
}

// New returns a Hook writing entries of level lvl and above to w.
func New(w io.Writer, lvl logrus.Level) *Hook {
	levels := make([]logrus.Level, 0, lvl+1)
	for _, l := range logrus.AllLevels {
		if l <= lvl {
			levels = append(levels, l)
		}
	}
	return &Hook{w: w, levels: levels}
}

// Open opens the serial port name at baud and returns a Hook writing info
// entries and above to it.
func Open(name string, baud int) (*Hook, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		Size:        8,
		ReadTimeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("debuglog: failed to open serial port %s: %w", name, err)
	}
	return New(p, logrus.InfoLevel), nil
}

// Levels implements logrus.Hook.
func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

// Fire implements logrus.Hook.
func (h *Hook) Fire(e *logrus.Entry) error {
	var b strings.Builder
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteByte(' ')
	b.WriteString(strings.TrimRight(e.Message, "\r\n"))
	for _, k := range sortedKeys(e.Data) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteString("\r\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// Close closes the underlying writer when it is an io.Closer.
func (h *Hook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func sortedKeys(f logrus.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

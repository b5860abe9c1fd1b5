// Package display is the terminal counterpart of the page's info area:
// every received line is appended followed by a CRLF pair.
package display

import (
	"io"
	"sync"
	"time"
)

// LineEnding terminates every appended line.
const LineEnding = "\r\n"

// DefaultHistory is the number of lines kept for Lines.
const DefaultHistory = 500

// Line is one received message.
type Line struct {
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Display appends received text to a writer and remembers recent lines.
//
// History is a fixed ring: once full, each new line replaces the oldest.
type Display struct {
	mu    sync.Mutex
	w     io.Writer
	lines []Line
	next  int // slot the next line is stored in
	count int
	now   func() time.Time
}

// New creates a display writing to w that keeps the last history lines.
// A nil writer only records history.
func New(w io.Writer, history int) *Display {
	if history <= 0 {
		history = DefaultHistory
	}
	if w == nil {
		w = io.Discard
	}
	return &Display{
		w:     w,
		lines: make([]Line, history),
		now:   time.Now,
	}
}

// Append writes text followed by LineEnding. The text is written as is.
func (d *Display) Append(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lines[d.next] = Line{Text: text, ReceivedAt: d.now()}
	d.next = (d.next + 1) % len(d.lines)
	if d.count < len(d.lines) {
		d.count++
	}

	_, err := io.WriteString(d.w, text+LineEnding)
	return err
}

// Lines returns the remembered lines, oldest first.
func (d *Display) Lines() []Line {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.count == 0 {
		return nil
	}
	oldest := (d.next - d.count + len(d.lines)) % len(d.lines)
	out := make([]Line, 0, d.count)
	for i := 0; i < d.count; i++ {
		out = append(out, d.lines[(oldest+i)%len(d.lines)])
	}
	return out
}

// Len returns the number of remembered lines.
func (d *Display) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

// Clear forgets all remembered lines.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	clear(d.lines)
	d.next = 0
	d.count = 0
}

package events

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/mcoot/quill/internal/api/response"
)

// EventConnected is sent once when a stream opens
const EventConnected = "connected"

// Frame is one parsed SSE message
type Frame struct {
	Event string
	Data  string
}

// Reader parses an SSE stream into frames
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next complete frame. Comments and keepalives are
// skipped. It returns io.EOF when the stream ends cleanly.
func (r *Reader) Next() (Frame, error) {
	var frame Frame
	var data []string
	seen := false
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case line == "":
			if seen {
				frame.Data = strings.Join(data, "\n")
				return frame, nil
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			seen = true
		case strings.HasPrefix(line, "data:"):
			value := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(value, " "))
			seen = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// Decode parses a session event frame
func Decode(frame Frame) (response.SessionEvent, error) {
	var event response.SessionEvent
	err := json.Unmarshal([]byte(frame.Data), &event)
	return event, err
}

package events

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ParsesFramesAndSkipsComments(t *testing.T) {
	input := ": keepalive\n\n" +
		"event: connected\ndata: {\"status\":\"connected\"}\n\n" +
		": keepalive\n\n" +
		"event: signed_out\ndata: {\"type\":\"signed_out\",\ndata: \"session_id\":\"s1\"}\n\n"

	reader := NewReader(strings.NewReader(input))

	frame, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "connected", frame.Event)
	assert.Equal(t, `{"status":"connected"}`, frame.Data)

	frame, err = reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "signed_out", frame.Event)

	event, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "signed_out", event.Type)
	assert.Equal(t, "s1", event.SessionID)

	_, err = reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_IncompleteTrailingFrameIsDropped(t *testing.T) {
	reader := NewReader(strings.NewReader("event: signed_in\ndata: {}"))
	_, err := reader.Next()
	assert.ErrorIs(t, err, io.EOF)
}

package stomp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"workchat/client/internal/stomp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame := stomp.NewFrame(stomp.CommandSend, []byte(`{"content":"hello"}`))
	frame.Set(stomp.HeaderDestination, "/app/chat")
	frame.Set(stomp.HeaderContentType, "application/json")

	decoded, err := stomp.Decode(frame.Encode())

	assert.NoError(t, err)
	assert.Equal(t, stomp.CommandSend, decoded.Command)
	assert.Equal(t, "/app/chat", decoded.Get(stomp.HeaderDestination))
	assert.Equal(t, "application/json", decoded.Get(stomp.HeaderContentType))
	assert.Equal(t, []byte(`{"content":"hello"}`), decoded.Body)
}

func TestDecodeEmptyBody(t *testing.T) {
	frame := stomp.NewFrame(stomp.CommandDisconnect, nil)

	decoded, err := stomp.Decode(frame.Encode())

	assert.NoError(t, err)
	assert.Equal(t, stomp.CommandDisconnect, decoded.Command)
	assert.Empty(t, decoded.Body)
}

func TestDecodeMissingTerminator(t *testing.T) {
	_, err := stomp.Decode([]byte("SEND\ndestination:/app/chat\n\nbody"))

	assert.ErrorIs(t, err, stomp.ErrMissingNul)
}

func TestDecodeEmptyInput(t *testing.T) {
	_, err := stomp.Decode(nil)

	assert.ErrorIs(t, err, stomp.ErrEmptyFrame)
}

func TestDecodeMalformedHeaderLine(t *testing.T) {
	_, err := stomp.Decode([]byte("SEND\nno-colon-here\n\nbody\x00"))

	assert.ErrorIs(t, err, stomp.ErrMalformedHeader)
}

func TestHeaderEscaping(t *testing.T) {
	frame := stomp.NewFrame(stomp.CommandMessage, nil)
	frame.Set("subscription", "sub:0\nwith\\weird")

	decoded, err := stomp.Decode(frame.Encode())

	assert.NoError(t, err)
	assert.Equal(t, "sub:0\nwith\\weird", decoded.Get("subscription"))
}

func TestRepeatedHeaderFirstWins(t *testing.T) {
	raw := []byte("MESSAGE\ndestination:first\ndestination:second\n\n\x00")

	decoded, err := stomp.Decode(raw)

	assert.NoError(t, err)
	assert.Equal(t, "first", decoded.Get("destination"))
}

func TestDecodeTrimsCarriageReturns(t *testing.T) {
	decoded, err := stomp.Decode([]byte("CONNECTED\r\nversion:1.2\r\n\n\x00"))
	assert.NoError(t, err)
	assert.Equal(t, "1.2", decoded.Get("version"))
}

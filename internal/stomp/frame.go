// Package stomp implements the STOMP 1.2 frame format used by the chat
// messaging service. Frames travel one-per-WebSocket-text-message, so
// the codec works on whole byte slices rather than a stream.
package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Frame commands exchanged with the messaging service.
const (
	CommandConnect    = "CONNECT"
	CommandConnected  = "CONNECTED"
	CommandSubscribe  = "SUBSCRIBE"
	CommandSend       = "SEND"
	CommandMessage    = "MESSAGE"
	CommandError      = "ERROR"
	CommandDisconnect = "DISCONNECT"
)

// Standard header names.
const (
	HeaderAcceptVersion = "accept-version"
	HeaderVersion       = "version"
	HeaderHost          = "host"
	HeaderDestination   = "destination"
	HeaderID            = "id"
	HeaderContentType   = "content-type"
	HeaderAuthorization = "Authorization"
	HeaderMessage       = "message"
)

var (
	ErrEmptyFrame      = errors.New("stomp: empty frame")
	ErrMissingNul      = errors.New("stomp: frame not NUL-terminated")
	ErrMalformedHeader = errors.New("stomp: malformed header line")
)

// Frame is one STOMP frame: a command, a header map, and an optional body.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame with an empty header set.
func NewFrame(command string, body []byte) *Frame {
	return &Frame{
		Command: command,
		Headers: make(map[string]string),
		Body:    body,
	}
}

// Set assigns a header value.
func (f *Frame) Set(key, value string) {
	if f.Headers == nil {
		f.Headers = make(map[string]string)
	}
	f.Headers[key] = value
}

// Get returns a header value, or "" when absent.
func (f *Frame) Get(key string) string {
	return f.Headers[key]
}

// Encode serializes the frame. Headers are written in sorted order so
// encoding is deterministic.
func (f *Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	keys := make([]string, 0, len(f.Headers))
	for k := range f.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(escapeHeader(k))
		buf.WriteByte(':')
		buf.WriteString(escapeHeader(f.Headers[k]))
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode parses one complete frame. The body runs from the blank line
// after the headers to the trailing NUL octet.
func Decode(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	nul := bytes.LastIndexByte(data, 0)
	if nul < 0 {
		return nil, ErrMissingNul
	}
	data = data[:nul]

	headerEnd := bytes.Index(data, []byte("\n\n"))
	if headerEnd < 0 {
		return nil, fmt.Errorf("stomp: no header/body separator: %w", ErrMalformedHeader)
	}
	head := string(data[:headerEnd])
	body := data[headerEnd+2:]

	lines := strings.Split(head, "\n")
	command := strings.TrimRight(lines[0], "\r")
	if command == "" {
		return nil, ErrEmptyFrame
	}

	frame := NewFrame(command, body)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, fmt.Errorf("stomp: %q: %w", line, ErrMalformedHeader)
		}
		key := unescapeHeader(line[:colon])
		// First occurrence of a repeated header wins (STOMP 1.2 rule).
		if _, seen := frame.Headers[key]; !seen {
			frame.Headers[key] = unescapeHeader(line[colon+1:])
		}
	}
	return frame, nil
}

var headerEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\r", `\r`,
	"\n", `\n`,
	":", `\c`,
)

func escapeHeader(s string) string {
	return headerEscaper.Replace(s)
}

func unescapeHeader(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

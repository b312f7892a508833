// Package sse implements the Server-Sent Events wire format used by
// /api/discovery/stream: event/data framing plus idle keep-alive comments.
// Adapted from Tangerg-lynx's sse package, trimmed to the encode-only path
// this server needs (no client-side decoder — the orchestrator only
// produces events, it never consumes them).
package sse

import (
	"bytes"
	"strconv"
	"strings"
)

var lineBreakReplacer = strings.NewReplacer("\n", "\\n", "\r", "\\r")

var (
	byteLF        = []byte("\n")
	byteCR        = []byte("\r")
	byteEscapedCR = []byte("\\r")
)

const (
	fieldID    = "id"
	fieldEvent = "event"
	fieldData  = "data"
	delimiter  = ":"
	whitespace = " "
)

var (
	fieldPrefixID    = []byte(fieldID + delimiter + whitespace)
	fieldPrefixEvent = []byte(fieldEvent + delimiter + whitespace)
	fieldPrefixData  = []byte(fieldData + delimiter + whitespace)
)

// Message is one Server-Sent Event.
type Message struct {
	ID    string
	Event string
	Data  []byte
}

package sse

import (
	"bytes"
	"errors"
)

// ErrMessageNoContent is returned when a Message has no ID, Event, or Data.
var ErrMessageNoContent = errors.New("sse: message has no content")

// Encoder converts Messages to SSE wire format. It holds no mutable state
// and is safe for concurrent use.
type Encoder struct{}

// NewEncoder builds an SSE encoder.
func NewEncoder() *Encoder { return &Encoder{} }

func (e *Encoder) isValid(msg *Message) bool {
	return len(msg.ID) != 0 || len(msg.Event) != 0 || len(msg.Data) != 0
}

func (e *Encoder) writeID(id string, buf *bytes.Buffer) {
	if len(id) == 0 {
		return
	}
	buf.Write(fieldPrefixID)
	buf.WriteString(lineBreakReplacer.Replace(id))
	buf.Write(byteLF)
}

func (e *Encoder) writeEvent(event string, buf *bytes.Buffer) {
	if len(event) == 0 {
		return
	}
	buf.Write(fieldPrefixEvent)
	buf.WriteString(lineBreakReplacer.Replace(event))
	buf.Write(byteLF)
}

func (e *Encoder) writeData(data []byte, buf *bytes.Buffer) {
	if len(data) == 0 {
		return
	}
	processed := bytes.ReplaceAll(data, byteCR, byteEscapedCR)
	for _, line := range bytes.Split(processed, byteLF) {
		buf.Write(fieldPrefixData)
		buf.Write(line)
		buf.Write(byteLF)
	}
}

// Encode renders msg into SSE wire bytes, terminated by a blank line.
func (e *Encoder) Encode(msg *Message) ([]byte, error) {
	if !e.isValid(msg) {
		return nil, ErrMessageNoContent
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(msg.ID)+len(msg.Event)+2*len(msg.Data)+8))
	e.writeID(msg.ID, buf)
	e.writeEvent(msg.Event, buf)
	e.writeData(msg.Data, buf)
	buf.Write(byteLF)
	return buf.Bytes(), nil
}

// KeepAliveComment is sent when no event has been emitted for longer than
// the idle threshold, so intermediate proxies don't close the connection.
func KeepAliveComment() []byte {
	return []byte(": keep-alive\n\n")
}

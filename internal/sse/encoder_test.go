package sse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiSchool-Admin/quran-miracles/internal/sse"
)

func TestEncoder_EmptyMessageIsRejected(t *testing.T) {
	enc := sse.NewEncoder()
	_, err := enc.Encode(&sse.Message{})
	assert.ErrorIs(t, err, sse.ErrMessageNoContent)
}

func TestEncoder_EncodesIDEventAndDataFields(t *testing.T) {
	enc := sse.NewEncoder()
	out, err := enc.Encode(&sse.Message{ID: "1", Event: "quran_search", Data: []byte(`{"q":"x"}`)})
	require.NoError(t, err)

	assert.Equal(t, "id: 1\nevent: quran_search\ndata: {\"q\":\"x\"}\n\n", string(out))
}

func TestEncoder_MultilineDataGetsOneDataFieldPerLine(t *testing.T) {
	enc := sse.NewEncoder()
	out, err := enc.Encode(&sse.Message{Data: []byte("line1\nline2")})
	require.NoError(t, err)

	assert.Equal(t, "data: line1\ndata: line2\n\n", string(out))
}

func TestEncoder_CarriageReturnsInDataAreEscaped(t *testing.T) {
	enc := sse.NewEncoder()
	out, err := enc.Encode(&sse.Message{Data: []byte("a\rb")})
	require.NoError(t, err)

	assert.Contains(t, string(out), `a\rb`)
}

func TestEncoder_NewlinesInIDAndEventAreEscapedNotSplit(t *testing.T) {
	enc := sse.NewEncoder()
	out, err := enc.Encode(&sse.Message{ID: "a\nb", Event: "evt"})
	require.NoError(t, err)

	assert.Contains(t, string(out), `id: a\nb`)
}

func TestKeepAliveComment_IsACommentLine(t *testing.T) {
	assert.Equal(t, []byte(": keep-alive\n\n"), sse.KeepAliveComment())
}

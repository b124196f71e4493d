package feed

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Feed: "thinkingmachines", Field: "item", Selector: "li a.post-item-link"}
	assert.Equal(t, `feed thinkingmachines: parse item (selector "li a.post-item-link"): no matching elements`, err.Error())

	wrapped := fmt.Errorf("generate: %w", &ParseError{Feed: "x", Field: "html", Err: io.ErrUnexpectedEOF})
	var pe *ParseError
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "html", pe.Field)
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)
}

func TestSerializationErrorMessage(t *testing.T) {
	err := error(&SerializationError{Feed: "research", Index: 3, Field: "link"})
	assert.Equal(t, "feed research: record 3 is missing link", err.Error())

	var se *SerializationError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &se))

	channel := &SerializationError{Feed: "research", Index: -1, Field: "link"}
	assert.Equal(t, "feed research: channel is missing link", channel.Error())
}

func TestLinks(t *testing.T) {
	got := Links([]PostRecord{{Link: "https://a"}, {Link: "https://b"}})
	assert.Equal(t, []string{"https://a", "https://b"}, got)
}

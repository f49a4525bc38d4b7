package errors

import (
	"github.com/stretchr/testify/require"
	"log/slog"
	"slices"
	"testing"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "wrapping", slog.String("id", "123"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "wrapping: test error", wrapped.Error())

	// Ensure log values are coming through.
	group := err.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.GreaterOrEqual(t, sourceIdx, 0)
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestSlogError(t *testing.T) {
	annotated := Wrap(NewSentinel("boom"), "save document")
	attr := SlogError(annotated)
	require.Equal(t, "error", attr.Key)

	plain := NewSentinel("boom")
	attr = SlogError(plain)
	require.Equal(t, "boom", attr.Value.String())
}

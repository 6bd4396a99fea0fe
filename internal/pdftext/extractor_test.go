package pdftext

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error
}

func (f fakeRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	return f.stdout, f.stderr, f.err
}

func testExtractor(r Runner) *Extractor {
	e := NewExtractor("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.runner = r
	return e
}

func TestExtractJoinsPagesWithNewlines(t *testing.T) {
	e := testExtractor(fakeRunner{stdout: []byte("page one\fpage two\f")})
	text, ok, err := e.Extract(context.Background(), "slip.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "page one\npage two", text)
}

func TestExtractEmptyDocumentIsAbsentNotError(t *testing.T) {
	e := testExtractor(fakeRunner{stdout: []byte("\f\f")})
	text, ok, err := e.Extract(context.Background(), "slip.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestExtractCommandFailure(t *testing.T) {
	e := testExtractor(fakeRunner{stderr: []byte("broken pdf"), err: errors.New("exit status 1")})
	_, ok, err := e.Extract(context.Background(), "slip.pdf")
	require.Error(t, err)
	assert.False(t, ok)
}

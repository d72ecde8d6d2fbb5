package download_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/demostf/go-client/download"
)

func TestTimeout_Scaling(t *testing.T) {
	base := 15 * time.Second

	tests := []struct {
		name     string
		duration uint16
		want     time.Duration
	}{
		{"zero duration", 0, base},
		{"one minute", 60, base},
		{"under floor", 600, base},
		{"at floor", 900, base},
		{"thirty minutes", 1800, 2 * base},
		{"one hour", 3600, 4 * base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := download.Timeout(base, tt.duration); got != tt.want {
				t.Errorf("Timeout(%v, %d) = %v, want %v", base, tt.duration, got, tt.want)
			}
		})
	}
}

func TestTimeout_ScalesConfiguredBase(t *testing.T) {
	// a longer configured base scales by the same factor
	if got, want := download.Timeout(time.Minute, 1800), 2*time.Minute; got != want {
		t.Errorf("Timeout = %v, want %v", got, want)
	}
}

func TestSave_Verified(t *testing.T) {
	content := []byte("demo file content")

	var sink bytes.Buffer
	if err := download.Save(bytes.NewReader(content), &sink, md5.Sum(content)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bytes.Equal(sink.Bytes(), content) {
		t.Error("sink content does not match")
	}
}

func TestSave_HashMismatch(t *testing.T) {
	content := []byte("demo file content")

	var sink bytes.Buffer
	err := download.Save(bytes.NewReader(content), &sink, [md5.Size]byte{0xde, 0xad})
	if !errors.Is(err, download.ErrHashMismatch) {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}

	// the transfer itself succeeded, so every byte reached the sink
	if !bytes.Equal(sink.Bytes(), content) {
		t.Error("received bytes should be preserved in the sink")
	}

	var detail *download.Error
	if !errors.As(err, &detail) {
		t.Fatalf("expected *download.Error, got %T", err)
	}
	if !strings.Contains(detail.Detail, "dead") {
		t.Errorf("detail should name the expected digest, got %q", detail.Detail)
	}
}

func TestSave_WriteFailure(t *testing.T) {
	content := []byte("demo file content")

	err := download.Save(bytes.NewReader(content), failingWriter{}, md5.Sum(content))

	var writeErr *download.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if writeErr.Unwrap() == nil {
		t.Error("WriteError should carry the sink's error")
	}
}

func TestSave_ReadFailurePreservesPartialBytes(t *testing.T) {
	partial := []byte("partial demo bytes")
	body := io.MultiReader(bytes.NewReader(partial), failingReader{})

	var sink bytes.Buffer
	err := download.Save(body, &sink, [md5.Size]byte{})
	if err == nil {
		t.Fatal("expected error from failing body")
	}
	if errors.Is(err, download.ErrHashMismatch) {
		t.Fatalf("read failure should surface before verification, got %v", err)
	}

	if !bytes.Equal(sink.Bytes(), partial) {
		t.Error("bytes received before the failure should be in the sink")
	}
}

func TestSave_TimeoutTranslated(t *testing.T) {
	body := io.MultiReader(bytes.NewReader([]byte("x")), timeoutReader{})

	var sink bytes.Buffer
	err := download.Save(body, &sink, [md5.Size]byte{})
	if !errors.Is(err, download.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestStream_Chunks(t *testing.T) {
	content := bytes.Repeat([]byte("abcd"), 20000) // spans multiple chunks

	stream := download.NewStream(io.NopCloser(bytes.NewReader(content)), func() {})

	var got []byte
	for chunk, err := range stream.Chunks() {
		if err != nil {
			t.Fatalf("unexpected chunk error: %v", err)
		}
		got = append(got, chunk...)
	}

	if !bytes.Equal(got, content) {
		t.Errorf("chunks reassembled to %d bytes, want %d", len(got), len(content))
	}
}

func TestStream_ChunksError(t *testing.T) {
	body := io.MultiReader(bytes.NewReader([]byte("partial")), failingReader{})
	stream := download.NewStream(io.NopCloser(body), func() {})

	var got []byte
	var gotErr error
	for chunk, err := range stream.Chunks() {
		if err != nil {
			gotErr = err
			continue
		}
		got = append(got, chunk...)
	}

	if gotErr == nil {
		t.Fatal("expected an error chunk")
	}
	if !bytes.Equal(got, []byte("partial")) {
		t.Errorf("got %q before the failure", got)
	}
}

func TestStream_CloseCancels(t *testing.T) {
	cancelled := false
	stream := download.NewStream(io.NopCloser(strings.NewReader("data")), func() { cancelled = true })

	if err := stream.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cancelled {
		t.Error("closing the stream should release its deadline")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

type timeoutReader struct{}

func (timeoutReader) Read([]byte) (int, error) {
	return 0, context.DeadlineExceeded
}

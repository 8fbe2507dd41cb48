package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer guards a bytes.Buffer written by the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerWritesMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinnerWithContext(context.Background(), &out, "Resolving app")
	s.Start()
	time.Sleep(3 * spinnerInterval)
	s.Stop()

	if got := out.String(); !strings.Contains(got, "Resolving app") {
		t.Errorf("spinner output = %q, want the message", got)
	}
	if got := out.String(); !strings.HasSuffix(got, "\r") {
		t.Errorf("spinner output = %q, want the line cleared", got)
	}
}

func TestSpinnerCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerWithContext(ctx, io.Discard, "Resolving")
	s.Start()
	cancel()
	s.Stop()

	if !s.Cancelled() {
		t.Error("Cancelled() = false after the context ended")
	}
}

func TestSpinnerTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), spinnerInterval)
	defer cancel()
	s := newSpinnerWithContext(ctx, io.Discard, "Rendering")
	s.Start()
	<-ctx.Done()
	s.Stop()

	if !s.Cancelled() {
		t.Error("Cancelled() = false after the timeout")
	}
}

func TestSpinnerStopTwice(t *testing.T) {
	s := newSpinnerWithContext(context.Background(), io.Discard, "Resolving")
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var out syncBuffer
	s := newSpinnerWithContext(context.Background(), &out, "Never started")
	s.Stop()

	if got := out.String(); strings.Contains(got, "Never started") {
		t.Errorf("spinner output = %q, want only a cleared line", got)
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a one-line progress message on w until it is stopped or
// its context ends.
type spinner struct {
	w       io.Writer
	message string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	start    sync.Once
	stop     sync.Once
	finished chan struct{}
	running  bool
}

func newSpinnerWithContext(ctx context.Context, w io.Writer, message string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &spinner{w: w, message: message, ctx: ctx, cancel: cancel, finished: make(chan struct{})}
}

// Start begins the animation. Calls after the first are ignored.
func (s *spinner) Start() {
	s.start.Do(func() {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()
		go s.loop()
	})
}

func (s *spinner) loop() {
	defer close(s.finished)
	tick := time.NewTicker(spinnerInterval)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-tick.C:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), StyleDim.Render(s.message))
			s.mu.Unlock()
		}
	}
}

// Stop ends the animation and clears the line. It may be called more than
// once, and on a spinner that never started.
func (s *spinner) Stop() {
	s.stop.Do(func() {
		s.cancel()
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if running {
			<-s.finished
		}
		s.clear()
	})
}

// Cancelled reports whether the spinner's context has ended.
func (s *spinner) Cancelled() bool { return s.ctx.Err() != nil }

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

package cli

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestSpinnerDrawsMessageAndElapsed(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Rendering arith.json...")
	s.Start()
	time.Sleep(3 * spinnerInterval)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Rendering arith.json...") {
		t.Errorf("spinner output %q should contain the message", out)
	}
	if !regexp.MustCompile(`\.\.\. [0-9.]+m?s`).MatchString(out) {
		t.Errorf("spinner output %q should contain the elapsed time", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("Stop should leave the cursor at the start of a cleared line, got %q", out)
	}
	if !s.Cancelled() {
		t.Error("Cancelled() should report true after Stop")
	}
}

func TestSpinnerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, io.Discard, "Waiting...")
	s.Start()

	select {
	case <-s.stopped:
	case <-time.After(time.Second):
		t.Fatal("spinner goroutine did not exit after the context ended")
	}
	if !s.Cancelled() {
		t.Error("spinner should be cancelled after context timeout")
	}
	s.Stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(io.Discard, "Stopping...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Never started")

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a spinner that never started")
	}
	if buf.Len() != 0 {
		t.Errorf("unstarted spinner wrote %q", buf.String())
	}
}

func TestSpinnerStopWithStatus(t *testing.T) {
	out := captureUI(t)

	s := newSpinner(io.Discard, "Rendering...")
	s.Start()
	s.StopWithSuccess("Done")
	newSpinner(io.Discard, "Rendering...").StopWithError("Failed")

	if !strings.Contains(out.String(), "Done") || !strings.Contains(out.String(), "Failed") {
		t.Errorf("status output = %q", out.String())
	}
}

package cmd

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/stream"
)

func TestProgressPrinterLifecycle(t *testing.T) {
	printer := newProgressPrinter(0, "PQC")
	if printer.total != 1 {
		t.Fatalf("expected total to be clamped to 1, got %d", printer.total)
	}

	output := captureStdout(t, func() {
		printer.out = os.Stdout
		printer.Start()
		printer.Emit(stream.RoundStart{Header: stream.Header{Type: stream.TypeRoundStart, Totals: stream.Totals{Total: 2}}, Round: 1})
		printer.Emit(stream.DomainComplete{
			Header:   stream.Header{Type: stream.TypeDomainComplete, Totals: stream.Totals{Total: 2, Completed: 1, Successful: 1}},
			Status:   stream.StatusCompleted,
			Duration: 0.5,
		})
		printer.Emit(stream.DomainComplete{
			Header:   stream.Header{Type: stream.TypeDomainComplete, Totals: stream.Totals{Total: 2, Completed: 2, Successful: 1, Failed: 1}},
			Status:   stream.StatusFailed,
			Duration: 1.0,
		})
		time.Sleep(350 * time.Millisecond) // allow ticker to tick at least once
		printer.Stop()
	})

	if !strings.Contains(output, "Round 1 Progress: 2/2") {
		t.Fatalf("expected summary progress, got %q", output)
	}
	if !strings.Contains(output, "OK:1") || !strings.Contains(output, "Fail:1") {
		t.Fatalf("expected OK/Fail counts in output, got %q", output)
	}
	if !strings.Contains(output, "Avg:0.75s") {
		t.Fatalf("expected average duration in output, got %q", output)
	}
}

func TestProgressPrinterUsesRunTotals(t *testing.T) {
	var buf strings.Builder
	printer := newProgressPrinter(3, "PQC")
	printer.out = &buf

	// A domain failing in round 1 and succeeding in round 2 is counted once.
	printer.Emit(stream.DomainComplete{Header: stream.Header{Totals: stream.Totals{Total: 3, Completed: 1, Failed: 1}}, Duration: 1})
	printer.Emit(stream.DomainComplete{Header: stream.Header{Totals: stream.Totals{Total: 3, Completed: 1, Successful: 1}}, Duration: 1})
	printer.Stop()

	if !strings.Contains(buf.String(), "Progress: 1/3") || !strings.Contains(buf.String(), "OK:1 Fail:0") {
		t.Fatalf("unexpected progress line %q", buf.String())
	}
}

// countingWriter counts writes and flags overlapping ones.
type countingWriter struct {
	mu      sync.Mutex
	busy    bool
	writes  int
	overlap bool
}

func (w *countingWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	if w.busy {
		w.overlap = true
	}
	w.busy = true
	w.writes++
	w.mu.Unlock()

	time.Sleep(time.Millisecond)

	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
	return len(b), nil
}

func (w *countingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

func TestProgressPrinterStopWaitsForLoop(t *testing.T) {
	w := &countingWriter{}
	printer := newProgressPrinter(2, "PQC")
	printer.out = w
	printer.Start()
	for i := 0; i < 20; i++ {
		printer.Emit(stream.DomainComplete{Header: stream.Header{Totals: stream.Totals{Total: 2, Completed: 1, Successful: 1}}, Duration: 1})
	}
	printer.Stop()

	select {
	case <-printer.stopped:
	default:
		t.Fatal("Stop returned before the redraw loop exited")
	}
	after := w.count()
	time.Sleep(400 * time.Millisecond)
	if w.count() != after {
		t.Error("progress line was redrawn after Stop")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.overlap {
		t.Error("redraws overlapped")
	}
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/stream"
)

// progressPrinter renders a single status line from run events.
type progressPrinter struct {
	total    int
	name     string
	out      io.Writer
	mu       sync.Mutex
	ok       int
	fail     int
	round    int
	scans    int
	duration float64
	updates  chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	started  bool
	stopOnce sync.Once
}

func newProgressPrinter(total int, name string) *progressPrinter {
	if total <= 0 {
		total = 1
	}
	return &progressPrinter{
		total:   total,
		name:    name,
		out:     os.Stdout,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	p.started = true
	go p.loop()
}

// Emit implements stream.Emitter.
func (p *progressPrinter) Emit(e stream.Event) {
	p.mu.Lock()
	switch ev := e.(type) {
	case stream.RoundStart:
		p.round = ev.Round
		p.setTotals(ev.Totals)
	case stream.DomainComplete:
		p.scans++
		p.duration += ev.Duration
		p.setTotals(ev.Totals)
	case stream.DomainOffline:
		p.setTotals(ev.Totals)
	case stream.Complete:
		p.setTotals(ev.Totals)
	}
	p.mu.Unlock()

	select {
	case p.updates <- struct{}{}:
	default:
	}
}

// setTotals must be called with mu held.
func (p *progressPrinter) setTotals(t stream.Totals) {
	p.ok = t.Successful
	p.fail = t.Failed
	if t.Total > p.total {
		p.total = t.Total
	}
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	// The final redraw must not interleave with a tick.
	if p.started {
		<-p.stopped
	}
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
	p.print()
	fmt.Fprintln(p.out)
}

func (p *progressPrinter) loop() {
	defer close(p.stopped)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) print() {
	p.mu.Lock()
	ok := p.ok
	fail := p.fail
	round := p.round
	scans := p.scans
	dur := p.duration
	total := p.total
	p.mu.Unlock()

	completed := ok + fail
	if completed > total {
		total = completed
	}

	percent := (float64(completed) / float64(total)) * 100
	avg := 0.0
	if scans > 0 {
		avg = dur / float64(scans)
	}

	line := fmt.Sprintf("\r[%s] Round %d Progress: %d/%d (%.1f%%) OK:%d Fail:%d Avg:%.2fs",
		p.name, round, completed, total, percent, ok, fail, avg)
	fmt.Fprint(p.out, line)
}

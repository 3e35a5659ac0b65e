package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/srg/humitemp/internal/groutine"
)

const (
	progressUpdateInterval = 100 * time.Millisecond
	clearLineSequence      = "\r\033[K"
)

// ProgressPrinter keeps one status line updated with the current phase and
// the seconds spent in it.
//
// Usage:
//
//	p := NewProgressPrinter(os.Stderr, "Starting")
//	p.Start()
//	defer p.Stop()
//
// Stop must be called to release the ticker goroutine. Print can be used to
// write a regular line without the status line getting in the way.
type ProgressPrinter struct {
	w          io.Writer
	mu         sync.Mutex
	phase      string
	phaseStart time.Time
	ticker     atomic.Pointer[time.Ticker]
	stopChan   chan struct{}
	done       chan struct{}
	started    atomic.Bool
}

func NewProgressPrinter(w io.Writer, phase string) *ProgressPrinter {
	return &ProgressPrinter{w: w, phase: phase}
}

// Start begins redrawing the status line in the background.
// Panics if called more than once.
func (p *ProgressPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic("ProgressPrinter.Start called more than once")
	}

	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})
	ticker := time.NewTicker(progressUpdateInterval)
	p.ticker.Store(ticker)

	p.mu.Lock()
	p.phaseStart = time.Now()
	p.drawLocked()
	p.mu.Unlock()

	groutine.Go(context.Background(), "progress", func(ctx context.Context) {
		defer close(p.done)
		for {
			select {
			case <-p.stopChan:
				return
			case <-ticker.C:
				p.mu.Lock()
				p.drawLocked()
				p.mu.Unlock()
			}
		}
	})
}

// SetPhase switches the status line to a new phase and restarts its timer
func (p *ProgressPrinter) SetPhase(phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if phase == p.phase {
		return
	}
	p.phase = phase
	p.phaseStart = time.Now()
	if p.ticker.Load() != nil {
		p.drawLocked()
	}
}

// Print writes a full line above the status line
func (p *ProgressPrinter) Print(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	active := p.ticker.Load() != nil
	if active {
		fmt.Fprint(p.w, clearLineSequence)
	}
	fmt.Fprintln(p.w, line)
	if active {
		p.drawLocked()
	}
}

// Stop stops redrawing and clears the status line. Safe to call more than once.
func (p *ProgressPrinter) Stop() {
	ticker := p.ticker.Swap(nil)
	if ticker == nil {
		return
	}
	ticker.Stop()
	close(p.stopChan)
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, clearLineSequence)
}

func (p *ProgressPrinter) drawLocked() {
	seconds := int(time.Since(p.phaseStart).Seconds())
	if seconds > 0 {
		fmt.Fprintf(p.w, "%s%s (%ds)", clearLineSequence, p.phase, seconds)
		return
	}
	fmt.Fprintf(p.w, "%s%s", clearLineSequence, p.phase)
}

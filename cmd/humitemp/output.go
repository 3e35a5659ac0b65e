package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/term"

	"github.com/srg/humitemp/internal/receiver"
	"github.com/srg/humitemp/internal/sensor"
	"github.com/srg/humitemp/pkg/config"
	"github.com/srg/humitemp/pkg/resource"
)

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readingPrinter renders readings as colored text or JSON lines
type readingPrinter struct {
	format string
	now    func() time.Time

	temp, humidity, muted, warn *color.Color
}

func newReadingPrinter(format string, colored bool) *readingPrinter {
	p := &readingPrinter{
		format:   format,
		now:      time.Now,
		temp:     color.New(color.FgHiRed, color.Bold),
		humidity: color.New(color.FgHiCyan, color.Bold),
		muted:    color.New(color.Faint),
		warn:     color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.temp, p.humidity, p.muted, p.warn} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Line renders one resource as a single line
func (p *readingPrinter) Line(r receiver.Reading) (string, error) {
	if p.format == config.FormatJSON {
		return p.jsonLine(r)
	}

	ts := p.muted.Sprint(p.now().Format("15:04:05"))
	switch r.Kind {
	case resource.KindSuccess:
		if r.Data.ConnectionState == sensor.Disconnected {
			return fmt.Sprintf("%s %s", ts, p.warn.Sprint("sensor disconnected")), nil
		}
		return fmt.Sprintf("%s %s  %s",
			ts,
			p.temp.Sprintf("%6.1f°C", r.Data.Temperature),
			p.humidity.Sprintf("%5.1f%%", r.Data.Humidity),
		), nil
	case resource.KindError:
		return fmt.Sprintf("%s %s", ts, p.warn.Sprint(r.Message)), nil
	default:
		return r.Message, nil
	}
}

func (p *readingPrinter) jsonLine(r receiver.Reading) (string, error) {
	doc := orderedmap.New[string, any]()
	doc.Set("time", p.now().Format(time.RFC3339))
	doc.Set("kind", r.Kind.String())
	if r.Kind == resource.KindSuccess {
		doc.Set("temperature", r.Data.Temperature)
		doc.Set("humidity", r.Data.Humidity)
		doc.Set("state", r.Data.ConnectionState.String())
	} else {
		doc.Set("message", r.Message)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode reading: %w", err)
	}
	return string(b), nil
}

package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"
)

// Mode selects how progress is displayed
type Mode int

const (
	// ModeAuto redraws in place on a terminal and prints lines elsewhere
	ModeAuto Mode = iota
	// ModeInteractive always redraws in place
	ModeInteractive
	// ModeLines prints one line per milestone, for CI logs and pipes
	ModeLines
	// ModeQuiet prints nothing
	ModeQuiet
)

// Config holds configuration for progress displays
type Config struct {
	Writer io.Writer
	Label  string
	Mode   Mode
}

// resolveMode turns ModeAuto into a concrete mode for w
func resolveMode(mode Mode, w io.Writer) Mode {
	if mode != ModeAuto {
		return mode
	}
	if IsCI() {
		return ModeLines
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return ModeInteractive
	}
	return ModeLines
}

// IsCI reports whether the process runs in a CI environment
func IsCI() bool {
	return os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// milestoneStep is the percentage between lines in ModeLines
const milestoneStep = 25

// Bar renders upload progress. Update may be called from any goroutine.
type Bar struct {
	writer    io.Writer
	label     string
	mode      Mode
	model     progress.Model
	startTime time.Time

	mu            sync.Mutex
	percent       float64
	lastMilestone int
	finished      bool
}

// NewBar creates an upload progress bar
func NewBar(cfg Config) *Bar {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	return &Bar{
		writer:    cfg.Writer,
		label:     cfg.Label,
		mode:      resolveMode(cfg.Mode, cfg.Writer),
		model:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		startTime: time.Now(),
	}
}

// Update records progress as a percentage in [0,100].
// Values that do not advance the bar are ignored.
func (b *Bar) Update(percent float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished || percent <= b.percent {
		return
	}
	if percent > 100 {
		percent = 100
	}
	b.percent = percent

	switch b.mode {
	case ModeInteractive:
		fmt.Fprintf(b.writer, "\r%s %s", b.label, b.model.ViewAs(percent/100))
	case ModeLines:
		milestone := int(percent) / milestoneStep * milestoneStep
		if milestone > b.lastMilestone {
			b.lastMilestone = milestone
			fmt.Fprintf(b.writer, "%s %d%%\n", b.label, milestone)
		}
	}
}

// Percent returns the last recorded percentage
func (b *Bar) Percent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.percent
}

// Finish ends the display. ok reports whether the upload succeeded.
func (b *Bar) Finish(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return
	}
	b.finished = true

	elapsed := formatDuration(time.Since(b.startTime))
	switch b.mode {
	case ModeInteractive:
		if ok {
			fmt.Fprintf(b.writer, "\r%s %s %s\n", b.label, b.model.ViewAs(1), elapsed)
		} else {
			fmt.Fprintf(b.writer, "\r%s\r", strings.Repeat(" ", 80))
		}
	case ModeLines:
		if ok {
			fmt.Fprintf(b.writer, "%s done in %s\n", b.label, elapsed)
		}
	}
}

// Spinner shows that a blocking operation is in flight
type Spinner struct {
	writer     io.Writer
	label      string
	mode       Mode
	mu         sync.Mutex
	spinnerIdx int
	stopChan   chan struct{}
	done       chan struct{}
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewSpinner creates a spinner
func NewSpinner(cfg Config) *Spinner {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	return &Spinner{
		writer:   cfg.Writer,
		label:    cfg.Label,
		mode:     resolveMode(cfg.Mode, cfg.Writer),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the display
func (s *Spinner) Start() {
	s.startOnce.Do(func() {
		switch s.mode {
		case ModeInteractive:
			go s.spinnerLoop()
			return
		case ModeLines:
			fmt.Fprintf(s.writer, "%s...\n", s.label)
		}
		close(s.done)
	})
}

// Stop ends the display and clears the spinner line
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.startOnce.Do(func() { close(s.done) })
		<-s.done
		if s.mode == ModeInteractive {
			fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", 80))
		}
	})
}

func (s *Spinner) spinnerLoop() {
	defer close(s.done)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	s.render()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, "\r%s %s", spinnerFrames[s.spinnerIdx], s.label)
	s.spinnerIdx = (s.spinnerIdx + 1) % len(spinnerFrames)
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

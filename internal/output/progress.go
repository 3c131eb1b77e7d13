package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// spinnerFrames animate at ~10 fps.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a single-line activity indicator for long-running fleet
// operations. Start and Stop are idempotent; Update may be called
// while the spinner is running.
type Spinner struct {
	mu         sync.Mutex
	writer     io.Writer
	title      string
	width      int
	active     bool
	quit       chan struct{}
	frameColor *color.Color
	titleColor *color.Color
	noColor    bool
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(title string, noColor bool) *Spinner {
	return &Spinner{
		writer:     os.Stderr,
		title:      title,
		frameColor: color.New(color.FgCyan),
		titleColor: color.New(color.FgWhite),
		noColor:    noColor,
	}
}

// Start begins the animation. Starting a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return
	}
	s.active = true
	s.quit = make(chan struct{})
	go s.spin(s.quit)
}

func (s *Spinner) spin(quit chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-quit:
			return
		case <-ticker.C:
			s.draw(spinnerFrames[i%len(spinnerFrames)])
		}
	}
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}

	line := frame + " " + s.title
	if n := len(line); n > s.width {
		s.width = n
	}
	if !s.noColor {
		line = s.frameColor.Sprint(frame) + " " + s.titleColor.Sprint(s.title)
	}
	fmt.Fprintf(s.writer, "\r%s", line)
}

// Update swaps the title without stopping the animation.
func (s *Spinner) Update(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// Stop halts the animation and clears the spinner's line. Stopping a
// stopped spinner does nothing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false
	close(s.quit)

	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", s.width))
}

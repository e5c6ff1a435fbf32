package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressBar draws a bar with percentage and count, e.g.
// [=========>          ]  45% Indexing packages (45,000/100,000)
//
// On a non-TTY writer nothing is drawn until the bar completes, so logs get
// a single line.
type ProgressBar struct {
	mu          sync.Mutex
	total       int
	current     int
	description string
	width       int
	writer      io.Writer
	tty         bool
	lastPercent int
	finished    bool
}

// NewProgress creates a progress bar writing to w.
func NewProgress(w io.Writer, total int, description string) *ProgressBar {
	return &ProgressBar{
		total:       total,
		description: description,
		width:       40,
		writer:      w,
		tty:         writerIsTTY(w),
		lastPercent: -1,
	}
}

// Set moves the bar to current of total. Redraws happen only when the
// percentage changes, so per-record calls stay cheap.
func (p *ProgressBar) Set(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = min(current, total)

	if pct := p.percent(); pct != p.lastPercent {
		p.lastPercent = pct
		p.render()
	}
}

// Finish completes the bar and ends its line. Calling it twice is a no-op.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished {
		return
	}
	p.finished = true

	if p.tty {
		p.current = p.total
		p.render()
		fmt.Fprintln(p.writer)
		return
	}
	// Non-TTY: render already printed the completed line.
	if p.current != p.total {
		p.current = p.total
		p.render()
	}
}

func (p *ProgressBar) percent() int {
	if p.total <= 0 {
		return 100
	}
	return p.current * 100 / p.total
}

// render draws the bar. Must be called with the lock held.
func (p *ProgressBar) render() {
	filled := p.width
	if p.total > 0 {
		filled = p.current * p.width / p.total
	}

	var bar strings.Builder
	bar.WriteByte('[')
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteByte('=')
		case i == filled-1:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}
	bar.WriteByte(']')

	line := fmt.Sprintf("%s %3d%% %s (%s/%s)", bar.String(), p.percent(), p.description,
		humanize.Comma(int64(p.current)), humanize.Comma(int64(p.total)))

	if p.tty {
		fmt.Fprintf(p.writer, "\r%s", line)
	} else if p.current == p.total {
		fmt.Fprintln(p.writer, line)
	}
}

// Spinner animates a message while an operation of unknown length runs,
// e.g. |  Running nix search (12s elapsed)
//
// On a non-TTY writer the message is printed once and nothing animates.
type Spinner struct {
	mu      sync.Mutex
	message string
	frames  []string
	writer  io.Writer
	tty     bool
	running bool
	started time.Time
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a spinner writing to w. Call Start to show it.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
		writer:  w,
		tty:     writerIsTTY(w),
	}
}

// Start shows the spinner. Calling Start on a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()

	if !s.tty {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.animate()
}

func (s *Spinner) animate() {
	defer s.wg.Done()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(s.frames) {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			elapsed := int(time.Since(s.started).Seconds())
			fmt.Fprintf(s.writer, "\r%s  %s (%ds elapsed)", s.frames[i], s.message, elapsed)
			s.mu.Unlock()
		}
	}
}

// Stop hides the spinner and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.done != nil {
		close(s.done)
	}
	s.mu.Unlock()

	s.wg.Wait()

	if s.tty {
		s.mu.Lock()
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+24))
		s.mu.Unlock()
	}
}

// UpdateMessage changes the message of a running spinner.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

package worker

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stored is an image the batch edited and stored.
type Stored struct {
	Source  string        `yaml:"source"`
	Folder  string        `yaml:"folder,omitempty"`
	URL     string        `yaml:"url"`
	Elapsed time.Duration `yaml:"elapsed"`
}

// Failure is an image the batch could not edit.
type Failure struct {
	Source string `yaml:"source"`
	Error  string `yaml:"error"`
}

// Report lists the outcome of every image, ordered by source path.
type Report struct {
	Stored []Stored  `yaml:"stored"`
	Failed []Failure `yaml:"failed,omitempty"`
}

// Progress follows a batch edit. It draws a single status line while the
// pool runs and keeps where each image ended up.
type Progress struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	start   time.Time
	total   int
	done    int

	stored   []Stored
	failed   []Failure
	editTime time.Duration
	last     string
}

// NewProgress creates a tracker for total images; enabled turns the status
// line on.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		out:     os.Stderr,
		enabled: enabled,
		start:   time.Now(),
		total:   total,
	}
}

// Record takes one finished task.
func (p *Progress) Record(r Result, completed, total int) {
	p.mu.Lock()
	p.done, p.total = completed, total
	p.editTime += r.Elapsed
	p.last = path.Base(r.Task.Source)
	if r.Err != nil {
		p.failed = append(p.failed, Failure{Source: r.Task.Source, Error: r.Err.Error()})
	} else {
		p.stored = append(p.stored, Stored{Source: r.Task.Source, Folder: r.Task.Folder, URL: r.Output, Elapsed: r.Elapsed})
	}
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Record
}

// Print writes the status line.
func (p *Progress) Print() {
	p.mu.Lock()
	line := p.lineLocked()
	p.mu.Unlock()
	fmt.Fprint(p.out, "\r"+line+"    ")
}

func (p *Progress) lineLocked() string {
	const width = 24
	filled := 0
	if p.total > 0 {
		filled = p.done * width / p.total
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s%s] %d/%d images", strings.Repeat("=", filled), strings.Repeat(" ", width-filled), p.done, p.total)
	if n := len(p.failed); n > 0 {
		fmt.Fprintf(&b, ", %d failed", n)
	}
	if p.done > 0 {
		fmt.Fprintf(&b, ", %s per image", formatDuration(p.editTime/time.Duration(p.done)))
	}
	wall := time.Since(p.start)
	switch {
	case p.done >= p.total:
		fmt.Fprintf(&b, ", done in %s", formatDuration(wall))
	case p.done > 0:
		eta := wall / time.Duration(p.done) * time.Duration(p.total-p.done)
		fmt.Fprintf(&b, ", %s left (%s)", formatDuration(eta), p.last)
	}
	return b.String()
}

// Done ends the status line.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.out)
	}
}

// Failed is the number of images that could not be edited.
func (p *Progress) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failed)
}

// Report returns the outcome of every recorded image.
func (p *Progress) Report() Report {
	p.mu.Lock()
	r := Report{
		Stored: append([]Stored(nil), p.stored...),
		Failed: append([]Failure(nil), p.failed...),
	}
	p.mu.Unlock()

	sort.Slice(r.Stored, func(i, j int) bool { return r.Stored[i].Source < r.Stored[j].Source })
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].Source < r.Failed[j].Source })
	return r
}

// Summary describes the finished batch in one line.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	folders := make(map[string]bool)
	for _, s := range p.stored {
		folders[s.Folder] = true
	}
	msg := fmt.Sprintf("Stored %d/%d images in %d %s", len(p.stored), p.total, len(folders), plural(len(folders), "folder"))
	if n := len(p.failed); n > 0 {
		msg += fmt.Sprintf(", %d failed", n)
	}
	return msg + fmt.Sprintf(" (%s)", formatDuration(time.Since(p.start)))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

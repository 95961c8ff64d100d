package gather

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	doneFile      = ".done"
	completedFile = ".last-completed"
)

// Progress persists which symbols a job has finished for its current end
// date, so that an interrupted run resumes where it stopped. The marker
// files live in a per-job directory:
//
//	.done            one symbol per line, appended as symbols finish
//	.last-completed  the end date of the last fully completed run
type Progress struct {
	mu     sync.Mutex
	done   map[string]struct{}
	writer *bufio.Writer
	file   *os.File
	dir    string
}

// OpenProgress creates dir if needed and loads any existing .done entries.
func OpenProgress(dir string) (*Progress, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating progress dir: %w", err)
	}

	p := &Progress{
		done: make(map[string]struct{}),
		dir:  dir,
	}

	data, err := os.ReadFile(filepath.Join(dir, doneFile))
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if sym := strings.TrimSpace(line); sym != "" {
				p.done[sym] = struct{}{}
			}
		}
	}

	if err := p.open(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Progress) open() error {
	f, err := os.OpenFile(filepath.Join(p.dir, doneFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", doneFile, err)
	}
	p.file = f
	p.writer = bufio.NewWriter(f)
	return nil
}

// Begin prepares the tracker for a run ending at date. It reports false
// when that run already completed. A run for a new date discards the
// previous run's per-symbol progress.
func (p *Progress) Begin(date string) (bool, error) {
	last := p.LastCompleted()
	if last == date {
		return false, nil
	}
	if last != "" {
		if err := p.Reset(); err != nil {
			return false, err
		}
	}
	return true, nil
}

// IsDone reports whether symbol already finished in the current run.
func (p *Progress) IsDone(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.done[symbol]
	return ok
}

// MarkDone records symbols as finished.
func (p *Progress) MarkDone(symbols ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sym := range symbols {
		if _, ok := p.done[sym]; ok {
			continue
		}
		p.done[sym] = struct{}{}
		if _, err := p.writer.WriteString(sym + "\n"); err != nil {
			return fmt.Errorf("writing to %s: %w", doneFile, err)
		}
	}
	return p.writer.Flush()
}

// MarkCompleted records date as the last fully completed run.
func (p *Progress) MarkCompleted(date string) error {
	return os.WriteFile(filepath.Join(p.dir, completedFile), []byte(date), 0o644)
}

// LastCompleted returns the date from .last-completed, or "".
func (p *Progress) LastCompleted() string {
	data, err := os.ReadFile(filepath.Join(p.dir, completedFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Reset truncates .done and clears the in-memory set.
func (p *Progress) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file != nil {
		p.file.Close()
	}
	p.done = make(map[string]struct{})
	os.Remove(filepath.Join(p.dir, doneFile))
	return p.open()
}

// Close flushes and closes the .done file.
func (p *Progress) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer != nil {
		p.writer.Flush()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

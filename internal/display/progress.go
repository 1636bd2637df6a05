package display

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
)

// ProgressIndicator reports per-file load progress
type ProgressIndicator struct {
	writer     io.Writer
	totalFiles int
	current    int
	mu         sync.Mutex

	step *color.Color
	skip *color.Color
	done *color.Color
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int) *ProgressIndicator {
	return &ProgressIndicator{
		writer:     w,
		totalFiles: total,
		step:       painter(w, color.FgCyan),
		skip:       painter(w, color.FgYellow),
		done:       painter(w, color.FgGreen),
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start() {
	fmt.Fprintf(p.writer, "Loading %d result files:\n", p.totalFiles)
}

// Step displays progress for one file: [N/Total] filename. A non-nil err
// marks the file as skipped.
func (p *ProgressIndicator) Step(filename string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	basename := filepath.Base(filename)
	if err != nil {
		fmt.Fprintln(p.writer, p.skip.Sprintf("  [%d/%d] %s (skipped: %v)", p.current, p.totalFiles, basename, err))
		return
	}
	fmt.Fprintln(p.writer, p.step.Sprintf("  [%d/%d] %s", p.current, p.totalFiles, basename))
}

// Complete displays the final count with a green checkmark
func (p *ProgressIndicator) Complete(loaded int) {
	fmt.Fprintf(p.writer, "%s Loaded %d of %d result files\n", p.done.Sprint("✓"), loaded, p.totalFiles)
}

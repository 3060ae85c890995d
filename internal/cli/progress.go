package cli

import (
	"sync"

	"github.com/danieljhkim/comfydepot/internal/catalog"
)

// unknownSizeStep is how often a download without Content-Length is reported.
const unknownSizeStep = 256 << 20

// progressPrinter prints one line per 10% of each download. Workers call it
// concurrently, so lines are whole and never interleave.
type progressPrinter struct {
	mu   sync.Mutex
	last map[string]int64
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{last: map[string]int64{}}
}

// report is an engine.ProgressFunc.
func (p *progressPrinter) report(item catalog.ManagedItem, written, total int64) {
	step := written / unknownSizeStep
	if total > 0 {
		step = written * 10 / total
	}

	key := item.Key()
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, seen := p.last[key]; seen && step <= last {
		return
	}
	p.last[key] = step
	if step == 0 {
		return
	}

	if total > 0 {
		_, _ = dimColor.Fprintf(stdout, "  ↓ %s %d%% (%s / %s)\n", item.Label(), step*10, humanSize(written), humanSize(total))
		return
	}
	_, _ = dimColor.Fprintf(stdout, "  ↓ %s %s\n", item.Label(), humanSize(written))
}

package notify

import (
	"context"

	"github.com/RaghavRD/library-tracker/internal/common/logger"
	"github.com/RaghavRD/library-tracker/internal/engine"
)

// ProjectBatch is everything one project accumulated during a pass.
type ProjectBatch struct {
	Project    string
	Recipients []string
	Events     []engine.Event
}

// Fanout delivers per-project digests. Each project gets at most one
// mailer call per pass, and one project's failure never blocks the
// rest.
type Fanout struct {
	mailer Mailer
}

// NewFanout creates a fanout over the given mailer.
func NewFanout(m Mailer) *Fanout {
	return &Fanout{mailer: m}
}

// Deliver sends one digest for every batch that has events. Batches
// with no events produce no mailer calls. Returns the number of
// digests sent and the number that failed.
func (f *Fanout) Deliver(ctx context.Context, batches []ProjectBatch) (sent, failed int) {
	for _, b := range batches {
		if len(b.Events) == 0 {
			continue
		}

		d, err := BuildDigest(b.Project, b.Recipients, b.Events)
		if err != nil {
			logger.Error("project %s: %v", b.Project, err)
			failed++
			continue
		}

		status, err := f.mailer.SendDigest(ctx, d)
		if err != nil {
			logger.Error("project %s: notification failed: %v", b.Project, err)
			failed++
			continue
		}

		logger.Info("project %s: sent %d event(s): %s", b.Project, len(b.Events), status)
		sent++
	}
	return sent, failed
}

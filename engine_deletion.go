package digivahan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// RequestAccountDeletion schedules the account for removal after the
// configured grace period. The account moves to PENDING_DELETION, a
// PENDING work-item is recorded and the account's QR assignments go
// inactive. A successful login before the deletion date reverses all of
// it.
func (e *Engine) RequestAccountDeletion(ctx context.Context, accountID, reason string) (*DeletionRecord, error) {
	if e == nil || e.accounts == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.requestAccountDeletion(ctx, accountID, reason)
	if err != nil {
		e.emitAudit(ctx, EventDeletionRequest, false, accountID, err, nil)
		return nil, err
	}

	e.metricInc(MetricDeletionRequested)
	e.emitAudit(ctx, EventDeletionRequest, true, accountID, nil, func() map[string]string {
		return map[string]string{"delete_on": record.DeleteOn.Format(time.RFC3339)}
	})
	return record, nil
}

func (e *Engine) requestAccountDeletion(ctx context.Context, accountID, reason string) (*DeletionRecord, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id required", ErrValidation)
	}

	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == AccountPendingDeletion {
		return nil, ErrDeletionPending
	}

	deleteOn := time.Now().Add(e.config.Deletion.GracePeriod)

	record := &DeletionRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Type:      DeletionScheduled,
		Reason:    reason,
		DeleteOn:  deleteOn,
		Status:    DeletionPending,
	}
	if err := e.deletions.Create(ctx, record); err != nil {
		return nil, err
	}

	if err := e.accounts.ScheduleDeletion(ctx, accountID, deleteOn); err != nil {
		// The work-item must not outlive a failed status flip, or the
		// sweep would remove an account that never left ACTIVE.
		_ = e.deletions.DeletePendingForAccount(ctx, accountID)
		return nil, err
	}

	if _, err := e.qr.SetStatusForAccount(ctx, accountID, QRInactive); err != nil {
		log.Printf("digivahan: deletion request: deactivating qr assignments for %s: %v", accountID, err)
	}

	return record, nil
}

// SweepScheduledDeletions finalizes every PENDING record whose deletion
// date has passed: QR assignments are blocked, the account record is
// removed and the work-item is stamped COMPLETED with the blocked QR ids.
// Records fail independently; one broken record never stops the rest, and
// a crashed run leaves its unfinished records PENDING for the next sweep.
func (e *Engine) SweepScheduledDeletions(ctx context.Context) (SweepReport, error) {
	if e == nil || e.deletions == nil {
		return SweepReport{}, ErrEngineNotReady
	}

	now := time.Now()
	due, err := e.deletions.ListDue(ctx, now)
	if err != nil {
		return SweepReport{}, err
	}

	var report SweepReport
	for i := range due {
		record := &due[i]
		if err := e.finalizeDeletion(ctx, record); err != nil {
			log.Printf("digivahan: sweep: finalizing record %s (account %s): %v", record.ID, record.AccountID, err)
			e.metricInc(MetricDeletionSweepFailure)
			report.Failed++
			continue
		}
		e.metricInc(MetricDeletionSwept)
		report.Processed++
	}

	e.emitAudit(ctx, EventDeletionSweep, report.Failed == 0, "", nil, func() map[string]string {
		return map[string]string{
			"processed": fmt.Sprint(report.Processed),
			"failed":    fmt.Sprint(report.Failed),
		}
	})
	return report, nil
}

func (e *Engine) finalizeDeletion(ctx context.Context, record *DeletionRecord) error {
	blocked, err := e.qr.SetStatusForAccount(ctx, record.AccountID, QRBlocked)
	if err != nil {
		return fmt.Errorf("blocking qr assignments: %w", err)
	}

	// A missing account means a previous run removed it before marking the
	// record, or it was removed out-of-band; the record must still reach
	// COMPLETED or it would fail every sweep from here on.
	if err := e.accounts.Delete(ctx, record.AccountID); err != nil && !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("removing account: %w", err)
	}

	if err := e.deletions.MarkCompleted(ctx, record.ID, blocked, time.Now()); err != nil {
		return fmt.Errorf("completing record: %w", err)
	}
	return nil
}

// DeletionSweeper runs SweepScheduledDeletions once a day shortly after
// midnight. Start it from the process that owns background work; the
// sweep itself is idempotent, so overlapping deployments at worst sweep
// twice.
type DeletionSweeper struct {
	engine   *Engine
	location *time.Location
	stop     chan struct{}
	done     chan struct{}
}

// NewDeletionSweeper creates a sweeper aligned to midnight in loc
// (time.Local when nil).
func NewDeletionSweeper(engine *Engine, loc *time.Location) *DeletionSweeper {
	if loc == nil {
		loc = time.Local
	}
	return &DeletionSweeper{
		engine:   engine,
		location: loc,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the first sweep
// fires at the next midnight.
func (s *DeletionSweeper) Start() {
	go s.run()
}

// Stop terminates the loop and waits for an in-flight sweep to finish.
func (s *DeletionSweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *DeletionSweeper) run() {
	defer close(s.done)
	for {
		timer := time.NewTimer(untilNextMidnight(time.Now(), s.location))
		select {
		case <-timer.C:
			if _, err := s.engine.SweepScheduledDeletions(context.Background()); err != nil {
				log.Printf("digivahan: sweep: %v", err)
			}
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

func untilNextMidnight(now time.Time, loc *time.Location) time.Duration {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
	return next.Sub(now)
}

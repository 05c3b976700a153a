package ledger

import (
	"context"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

// RowEdit is a single edited row of a job table. Date and job type are not part of it,
// both are immutable after intake.
type RowEdit struct {
	ID           int64        `json:"id"`
	Delete       bool         `json:"delete"`
	Customer     string       `json:"customer"`
	Address      string       `json:"address"`
	Description  string       `json:"description"`
	Note         string       `json:"note"`
	Status       enums.Status `json:"status"`
	Team         []string     `json:"team"` // nil keeps the stored team
	DurationDays int          `json:"duration_days"`
}

// RowError describes a row skipped by BulkUpdate
type RowError struct {
	ID  int64
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("job %d: %v", e.ID, e.Err) }

// BulkResult reports the outcome of BulkUpdate
type BulkResult struct {
	Updated int
	Deleted int
	Skipped []RowError
}

// BulkUpdate applies edited rows: rows with the delete flag are removed, others overwrite the mutable
// fields. Rows failing validation are skipped and reported, the rest is committed atomically.
// Unknown ids are ignored.
func (l *Ledger) BulkUpdate(ctx context.Context, access Access, rows []RowEdit) (BulkResult, error) {
	var result BulkResult
	if !access.IsAdmin() {
		return result, ErrForbidden
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		if !r.Delete {
			ids = append(ids, r.ID)
		}
	}
	existing, err := l.store.JobsByID(ctx, ids)
	if err != nil {
		return result, fmt.Errorf("failed to load edited jobs: %w", err)
	}

	var deletes []int64
	var updates []persistence.Job
	var done []persistence.Job // jobs entering the done set
	for _, r := range rows {
		if r.Delete {
			deletes = append(deletes, r.ID)
			continue
		}
		prev, ok := existing[r.ID]
		if !ok {
			continue
		}
		job, err := l.applyRow(prev, r)
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{ID: r.ID, Err: err})
			continue
		}
		updates = append(updates, job)
		if job.Status.Done() && !prev.Status.Done() {
			done = append(done, job)
		}
	}

	res, err := l.store.ApplyEdits(ctx, deletes, updates)
	if err != nil {
		return result, fmt.Errorf("failed to save edits: %w", err)
	}
	result.Updated, result.Deleted = res.Updated, res.Deleted
	log.Printf("[INFO] bulk update: %d updated, %d deleted, %d skipped", result.Updated, result.Deleted, len(result.Skipped))

	if l.notifier != nil {
		for _, j := range done {
			if err := l.notifier.JobDone(ctx, j); err != nil {
				log.Printf("[WARN] failed to notify about job %d, %v", j.ID, err)
			}
		}
	}
	return result, nil
}

// applyRow validates the row against the stored job and returns the updated job
func (l *Ledger) applyRow(prev persistence.Job, r RowEdit) (persistence.Job, error) {
	customer := strings.TrimSpace(r.Customer)
	if customer == "" {
		return prev, ErrEmptyCustomer
	}
	status := r.Status
	if status.IsZero() {
		status = prev.Status
	}
	// an unchanged status is kept as is, finished demo jobs stay finished with demo disabled
	allowed := status.ValidFor(prev.JobType) && (status != enums.StatusFinished || l.caps.SupportsDemo)
	if status != prev.Status && !allowed {
		return prev, fmt.Errorf("%w: %q for %s job", ErrInvalidStatus, status, prev.JobType)
	}
	if r.DurationDays < 0 {
		return prev, ErrNegativeDuration
	}
	team := prev.Team
	if r.Team != nil { // nil team keeps the stored one, empty clears it
		var err error
		if team, err = cleanTeam(r.Team); err != nil {
			return prev, err
		}
	}

	job := prev
	job.Customer = customer
	job.Address = strings.TrimSpace(r.Address)
	job.Description = strings.TrimSpace(r.Description)
	job.Note = strings.TrimSpace(r.Note)
	job.Status = status
	job.Team = team
	job.DurationDays = r.DurationDays
	return job, nil
}

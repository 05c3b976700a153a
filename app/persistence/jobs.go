package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cozummakina/montaj/app/enums"
)

// DateFormat is the storage format of job dates
const DateFormat = "2006-01-02"

// Job is a single installation or demo engagement
type Job struct {
	ID           int64         `db:"id"`
	Date         string        `db:"date"` // calendar date in DateFormat, kept as text so malformed legacy values survive
	Customer     string        `db:"customer"`
	Address      string        `db:"address"`
	Description  string        `db:"description"`
	Note         string        `db:"note"`
	Status       enums.Status  `db:"status"`
	JobType      enums.JobType `db:"job_type"`
	DurationDays int           `db:"duration_days"`
	Team         []string      `db:"-"`
}

// CustomerCount is the number of pending jobs of a customer
type CustomerCount struct {
	Customer string `db:"customer"`
	Pending  int    `db:"pending"`
}

// TypeStatusCount is the number of jobs with the given type and status
type TypeStatusCount struct {
	JobType enums.JobType `db:"job_type"`
	Status  enums.Status  `db:"status"`
	Count   int           `db:"cnt"`
}

// EditResult reports what ApplyEdits changed
type EditResult struct {
	Updated int
	Deleted int
}

const jobColumns = `id, date, customer, address, description, note, status, job_type, duration_days`

// CreateJob inserts a new job and returns its id. Job.ID is ignored.
func (s *SQLiteStore) CreateJob(ctx context.Context, job Job) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	res, err := tx.ExecContext(ctx, `
		INSERT INTO jobs (date, customer, address, description, note, status, job_type, duration_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Date, job.Customer, job.Address, job.Description, job.Note,
		job.Status.String(), job.JobType.String(), job.DurationDays)
	if err != nil {
		return 0, fmt.Errorf("failed to create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get job id: %w", err)
	}
	if err := insertTeam(ctx, tx, id, job.Team); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// ListJobs returns all jobs ordered by (date, id) in the given direction
func (s *SQLiteStore) ListJobs(ctx context.Context, order enums.SortOrder) ([]Job, error) {
	dir := order.SQL()
	query := fmt.Sprintf(`SELECT %s FROM jobs ORDER BY date %s, id %s`, jobColumns, dir, dir)
	jobs := []Job{}
	if err := s.db.SelectContext(ctx, &jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	if err := s.attachTeams(ctx, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// JobsByID returns the existing jobs among ids, keyed by id
func (s *SQLiteStore) JobsByID(ctx context.Context, ids []int64) (map[int64]Job, error) {
	res := make(map[int64]Job, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM jobs WHERE id IN (?)`, jobColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	jobs := []Job{}
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query jobs by id: %w", err)
	}
	if err := s.attachTeams(ctx, jobs); err != nil {
		return nil, err
	}
	for _, j := range jobs {
		res[j.ID] = j
	}
	return res, nil
}

// ApplyEdits deletes and updates jobs in a single transaction. Date and job type of updated jobs
// are left untouched. Missing ids are skipped.
func (s *SQLiteStore) ApplyEdits(ctx context.Context, deletes []int64, updates []Job) (EditResult, error) {
	var result EditResult
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, id := range deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_team WHERE job_id = ?`, id); err != nil {
			return result, fmt.Errorf("failed to delete team of job %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
		if err != nil {
			return result, fmt.Errorf("failed to delete job %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.Deleted++
		}
	}

	for _, job := range updates {
		res, err := tx.ExecContext(ctx, `
			UPDATE jobs SET customer = ?, address = ?, description = ?, note = ?, status = ?, duration_days = ?
			WHERE id = ?`,
			job.Customer, job.Address, job.Description, job.Note, job.Status.String(), job.DurationDays, job.ID)
		if err != nil {
			return result, fmt.Errorf("failed to update job %d: %w", job.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		if err := replaceTeam(ctx, tx, job.ID, job.Team); err != nil {
			return result, err
		}
		result.Updated++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// RestoreJobs inserts or overwrites jobs with their explicit ids, all fields included
func (s *SQLiteStore) RestoreJobs(ctx context.Context, jobs []Job) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, job := range jobs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (id, date, customer, address, description, note, status, job_type, duration_days)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET date = excluded.date, customer = excluded.customer,
				address = excluded.address, description = excluded.description, note = excluded.note,
				status = excluded.status, job_type = excluded.job_type, duration_days = excluded.duration_days`,
			job.ID, job.Date, job.Customer, job.Address, job.Description, job.Note,
			job.Status.String(), job.JobType.String(), job.DurationDays)
		if err != nil {
			return fmt.Errorf("failed to restore job %d: %w", job.ID, err)
		}
		if err := replaceTeam(ctx, tx, job.ID, job.Team); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SummaryByCustomer returns pending job counts per customer, largest first
func (s *SQLiteStore) SummaryByCustomer(ctx context.Context) ([]CustomerCount, error) {
	res := []CustomerCount{}
	err := s.db.SelectContext(ctx, &res, `
		SELECT customer, COUNT(*) AS pending FROM jobs WHERE status = ?
		GROUP BY customer ORDER BY pending DESC, customer ASC`, enums.StatusPending.String())
	if err != nil {
		return nil, fmt.Errorf("failed to summarize customers: %w", err)
	}
	return res, nil
}

// CountByStatusAndType returns job counts for every present (type, status) pair
func (s *SQLiteStore) CountByStatusAndType(ctx context.Context) ([]TypeStatusCount, error) {
	res := []TypeStatusCount{}
	err := s.db.SelectContext(ctx, &res, `
		SELECT job_type, status, COUNT(*) AS cnt FROM jobs GROUP BY job_type, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	return res, nil
}

// Customers returns distinct customer names in alphabetical order
func (s *SQLiteStore) Customers(ctx context.Context) ([]string, error) {
	res := []string{}
	if err := s.db.SelectContext(ctx, &res, `SELECT DISTINCT customer FROM jobs ORDER BY customer ASC`); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return res, nil
}

// attachTeams loads team members of the given jobs in position order
func (s *SQLiteStore) attachTeams(ctx context.Context, jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}
	idx := make(map[int64]int, len(jobs))
	ids := make([]int64, 0, len(jobs))
	for i, j := range jobs {
		idx[j.ID] = i
		ids = append(ids, j.ID)
		jobs[i].Team = []string{}
	}

	query, args, err := sqlx.In(`SELECT job_id, name FROM job_team WHERE job_id IN (?) ORDER BY job_id, pos`, ids)
	if err != nil {
		return fmt.Errorf("failed to build team query: %w", err)
	}
	var members []struct {
		JobID int64  `db:"job_id"`
		Name  string `db:"name"`
	}
	if err := s.db.SelectContext(ctx, &members, query, args...); err != nil {
		return fmt.Errorf("failed to query teams: %w", err)
	}
	for _, m := range members {
		if i, ok := idx[m.JobID]; ok {
			jobs[i].Team = append(jobs[i].Team, m.Name)
		}
	}
	return nil
}

func replaceTeam(ctx context.Context, tx *sqlx.Tx, jobID int64, team []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_team WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to clear team of job %d: %w", jobID, err)
	}
	return insertTeam(ctx, tx, jobID, team)
}

func insertTeam(ctx context.Context, tx *sqlx.Tx, jobID int64, team []string) error {
	for pos, name := range team {
		if _, err := tx.ExecContext(ctx, `INSERT INTO job_team (job_id, pos, name) VALUES (?, ?, ?)`,
			jobID, pos, name); err != nil {
			return fmt.Errorf("failed to add %q to team of job %d: %w", name, jobID, err)
		}
	}
	return nil
}

// JoinTeam renders team members in the legacy comma-joined form
func JoinTeam(team []string) string {
	return strings.Join(team, ", ")
}

// SplitTeam parses a comma-joined team list, trimming names and dropping empty ones
func SplitTeam(s string) []string {
	res := []string{}
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			res = append(res, name)
		}
	}
	return res
}

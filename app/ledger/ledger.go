// Package ledger implements the job ledger, the single source of truth for installation and demo
// jobs and the personnel roster. It validates input, enforces admin access on every mutation and
// derives the views shown by the dashboard. Storage is delegated to a Store implementation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

// validation and access errors, reported to users and never fatal
var (
	ErrForbidden         = errors.New("admin access required")
	ErrEmptyCustomer     = errors.New("customer name is required")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidStatus     = errors.New("invalid status for job type")
	ErrNegativeDuration  = errors.New("duration can't be negative")
	ErrDemoDisabled      = errors.New("demo jobs are disabled")
	ErrPersonnelDisabled = errors.New("personnel tracking is disabled")
	ErrEmptyName         = errors.New("personnel name is required")
	ErrInvalidName       = errors.New("personnel name can't contain a comma")
	ErrPersonnelExists   = errors.New("personnel already exists")
	ErrInvalidTeam       = errors.New("team member name can't contain a comma")
)

// Store defines storage operations used by the ledger
type Store interface {
	CreateJob(ctx context.Context, job persistence.Job) (int64, error)
	ListJobs(ctx context.Context, order enums.SortOrder) ([]persistence.Job, error)
	JobsByID(ctx context.Context, ids []int64) (map[int64]persistence.Job, error)
	ApplyEdits(ctx context.Context, deletes []int64, updates []persistence.Job) (persistence.EditResult, error)
	RestoreJobs(ctx context.Context, jobs []persistence.Job) error
	SummaryByCustomer(ctx context.Context) ([]persistence.CustomerCount, error)
	CountByStatusAndType(ctx context.Context) ([]persistence.TypeStatusCount, error)
	Customers(ctx context.Context) ([]string, error)
	AddPersonnel(ctx context.Context, name string) error
	RemovePersonnel(ctx context.Context, name string) error
	ListPersonnel(ctx context.Context) ([]string, error)
	TeamStats(ctx context.Context, statuses []enums.Status) ([]persistence.TeamStat, error)
}

// Notifier receives job events. Delivery errors are logged and never fail the ledger operation.
type Notifier interface {
	JobCreated(ctx context.Context, job persistence.Job) error
	JobDone(ctx context.Context, job persistence.Job) error
}

// Access is the capability of the caller, passed to every mutating operation
type Access int

// access levels
const (
	AccessViewer Access = iota
	AccessAdmin
)

// IsAdmin reports whether the caller may change data
func (a Access) IsAdmin() bool { return a == AccessAdmin }

// Capabilities switch optional features of the ledger
type Capabilities struct {
	SupportsDemo      bool // demo jobs, the finished status and demo groupings
	SupportsPersonnel bool // roster, team statistics
}

// Ledger is the job ledger service
type Ledger struct {
	store    Store
	caps     Capabilities
	notifier Notifier
	now      func() time.Time
}

// Params for New
type Params struct {
	Store        Store
	Capabilities Capabilities
	Notifier     Notifier         // optional
	Now          func() time.Time // optional, defaults to time.Now
}

// New makes a ledger
func New(p Params) *Ledger {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: p.Store, caps: p.Capabilities, notifier: p.Notifier, now: now}
}

// Capabilities returns enabled features
func (l *Ledger) Capabilities() Capabilities { return l.caps }

// NewJob is the intake form input
type NewJob struct {
	Date        string // DateFormat, today if empty
	Customer    string
	Address     string
	Description string
	Note        string
	JobType     enums.JobType // JobTypeNormal if empty
	Team        []string
}

// CreateJob validates and stores a new pending job, returns its id
func (l *Ledger) CreateJob(ctx context.Context, access Access, req NewJob) (int64, error) {
	if !access.IsAdmin() {
		return 0, ErrForbidden
	}
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		return 0, ErrEmptyCustomer
	}

	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = l.now().Format(persistence.DateFormat)
	}
	if _, err := time.Parse(persistence.DateFormat, date); err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidDate, req.Date)
	}

	jobType := req.JobType
	if jobType.IsZero() {
		jobType = enums.JobTypeNormal
	}
	if jobType == enums.JobTypeDemo && !l.caps.SupportsDemo {
		return 0, ErrDemoDisabled
	}

	team, err := cleanTeam(req.Team)
	if err != nil {
		return 0, err
	}

	job := persistence.Job{
		Date:        date,
		Customer:    customer,
		Address:     strings.TrimSpace(req.Address),
		Description: strings.TrimSpace(req.Description),
		Note:        strings.TrimSpace(req.Note),
		Status:      enums.StatusPending,
		JobType:     jobType,
		Team:        team,
	}
	id, err := l.store.CreateJob(ctx, job)
	if err != nil {
		return 0, fmt.Errorf("failed to create job for %q: %w", customer, err)
	}
	job.ID = id
	log.Printf("[INFO] job %d created for %q (%s)", id, customer, jobType)

	if l.notifier != nil {
		if err := l.notifier.JobCreated(ctx, job); err != nil {
			log.Printf("[WARN] failed to notify about job %d, %v", id, err)
		}
	}
	return id, nil
}

// ListJobs returns all jobs ordered by (date, id)
func (l *Ledger) ListJobs(ctx context.Context, order enums.SortOrder) ([]persistence.Job, error) {
	jobs, err := l.store.ListJobs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Customers returns distinct customer names for the intake form
func (l *Ledger) Customers(ctx context.Context) ([]string, error) {
	res, err := l.store.Customers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return res, nil
}

// ElapsedWait returns "<days> Gün" for a pending job, days since its date.
// Any other status or an unparsable date gives "-".
func ElapsedWait(job persistence.Job, now time.Time) string {
	if job.Status != enums.StatusPending || job.Date == "" {
		return "-"
	}
	date, err := time.Parse(persistence.DateFormat, job.Date)
	if err != nil {
		return "-"
	}
	// calendar days, both dates at UTC midnight
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := int(today.Sub(date).Hours() / 24)
	return fmt.Sprintf("%d Gün", days)
}

// ElapsedWait returns the elapsed wait of the job at the ledger's current time
func (l *Ledger) ElapsedWait(job persistence.Job) string {
	return ElapsedWait(job, l.now())
}

// JobView is a job with display-only derived columns
type JobView struct {
	persistence.Job
	Wait string
}

// GroupView is a dashboard grouping with its jobs
type GroupView struct {
	Group enums.Group
	Jobs  []JobView
}

// Groups partitions all jobs into the active display groups, preserving order inside each group
func (l *Ledger) Groups(ctx context.Context, order enums.SortOrder) ([]GroupView, error) {
	jobs, err := l.ListJobs(ctx, order)
	if err != nil {
		return nil, err
	}
	groups := enums.Groups(l.caps.SupportsDemo)
	res := make([]GroupView, len(groups))
	pos := make(map[enums.Group]int, len(groups))
	for i, g := range groups {
		res[i] = GroupView{Group: g, Jobs: []JobView{}}
		pos[g] = i
	}

	now := l.now()
	for _, j := range jobs {
		i, ok := pos[enums.GroupOf(j.JobType, j.Status)]
		if !ok {
			// demo job while demo support is off, show it with normal jobs of the same status
			i = pos[enums.GroupOf(enums.JobTypeNormal, j.Status)]
		}
		res[i].Jobs = append(res[i].Jobs, JobView{Job: j, Wait: ElapsedWait(j, now)})
	}
	return res, nil
}

// CustomerCount is the number of pending jobs of a customer
type CustomerCount = persistence.CustomerCount

// SummaryByCustomer returns pending job counts per customer, largest first
func (l *Ledger) SummaryByCustomer(ctx context.Context) ([]CustomerCount, error) {
	res, err := l.store.SummaryByCustomer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer summary: %w", err)
	}
	return res, nil
}

// Counters are the dashboard metrics
type Counters struct {
	PendingNormal   int `json:"pending_normal"`
	CompletedNormal int `json:"completed_normal"`
	PendingDemo     int `json:"pending_demo,omitempty"`
	InProgressDemo  int `json:"in_progress_demo,omitempty"`
	FinishedDemo    int `json:"finished_demo,omitempty"`
}

// Counts returns job counters by type and status. Without demo support all jobs count as normal.
func (l *Ledger) Counts(ctx context.Context) (Counters, error) {
	var res Counters
	counts, err := l.store.CountByStatusAndType(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count jobs: %w", err)
	}
	for _, c := range counts {
		jobType := c.JobType
		if !l.caps.SupportsDemo {
			jobType = enums.JobTypeNormal
		}
		switch enums.GroupOf(jobType, c.Status) {
		case enums.GroupPendingNormal:
			res.PendingNormal += c.Count
		case enums.GroupCompletedNormal:
			res.CompletedNormal += c.Count
		case enums.GroupPendingDemo:
			res.PendingDemo += c.Count
		case enums.GroupInProgressDemo:
			res.InProgressDemo += c.Count
		case enums.GroupFinishedDemo:
			res.FinishedDemo += c.Count
		}
	}
	return res, nil
}

// ExportAll returns every job with all fields, ordered by id, for backups
func (l *Ledger) ExportAll(ctx context.Context) ([]persistence.Job, error) {
	jobs, err := l.store.ListJobs(ctx, enums.SortOrderAsc)
	if err != nil {
		return nil, fmt.Errorf("failed to export jobs: %w", err)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

// Restore writes a snapshot produced by ExportAll back, overwriting jobs with the same ids
func (l *Ledger) Restore(ctx context.Context, access Access, jobs []persistence.Job) error {
	if !access.IsAdmin() {
		return ErrForbidden
	}
	for _, j := range jobs {
		if !j.Status.ValidFor(j.JobType) {
			return fmt.Errorf("job %d: %w", j.ID, ErrInvalidStatus)
		}
		if j.DurationDays < 0 {
			return fmt.Errorf("job %d: %w", j.ID, ErrNegativeDuration)
		}
	}
	if err := l.store.RestoreJobs(ctx, jobs); err != nil {
		return fmt.Errorf("failed to restore jobs: %w", err)
	}
	log.Printf("[INFO] restored %d jobs", len(jobs))
	return nil
}

// cleanTeam trims member names and drops empty ones, order and duplicates are kept
func cleanTeam(team []string) ([]string, error) {
	res := make([]string, 0, len(team))
	for _, name := range team {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.Contains(name, ",") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTeam, name)
		}
		res = append(res, name)
	}
	return res, nil
}

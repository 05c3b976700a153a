package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

var testNow = time.Date(2026, 10, 19, 14, 30, 0, 0, time.Local)

type notifierMock struct {
	mu      sync.Mutex
	created []int64
	done    []int64
}

func (n *notifierMock) JobCreated(_ context.Context, job persistence.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, job.ID)
	return nil
}

func (n *notifierMock) JobDone(_ context.Context, job persistence.Job) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.done = append(n.done, job.ID)
	return nil
}

func newTestLedger(t *testing.T, caps Capabilities) (*Ledger, *persistence.SQLiteStore) {
	t.Helper()
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(Params{Store: store, Capabilities: caps, Now: func() time.Time { return testNow }}), store
}

func fullCaps() Capabilities { return Capabilities{SupportsDemo: true, SupportsPersonnel: true} }

func TestLedger_CreateJob(t *testing.T) {
	l, _ := newTestLedger(t, fullCaps())
	ctx := context.Background()

	t.Run("pending regardless of type", func(t *testing.T) {
		for _, jt := range []enums.JobType{enums.JobTypeNormal, enums.JobTypeDemo, ""} {
			id, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-01", Customer: " Acme ", JobType: jt})
			require.NoError(t, err)
			jobs, err := l.store.JobsByID(ctx, []int64{id})
			require.NoError(t, err)
			assert.Equal(t, enums.StatusPending, jobs[id].Status)
			assert.Equal(t, "Acme", jobs[id].Customer)
		}
	})

	t.Run("blank customer has no effect", func(t *testing.T) {
		before, err := l.ListJobs(ctx, enums.SortOrderAsc)
		require.NoError(t, err)
		for _, c := range []string{"", "   ", "\t\n"} {
			_, err = l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-01", Customer: c})
			assert.ErrorIs(t, err, ErrEmptyCustomer)
		}
		after, err := l.ListJobs(ctx, enums.SortOrderAsc)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("viewer is rejected", func(t *testing.T) {
		_, err := l.CreateJob(ctx, AccessViewer, NewJob{Customer: "Acme"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("empty date is today", func(t *testing.T) {
		id, err := l.CreateJob(ctx, AccessAdmin, NewJob{Customer: "Today Co", Team: []string{" Ali ", "", "Veli"}})
		require.NoError(t, err)
		jobs, err := l.store.JobsByID(ctx, []int64{id})
		require.NoError(t, err)
		assert.Equal(t, "2026-10-19", jobs[id].Date)
		assert.Equal(t, []string{"Ali", "Veli"}, jobs[id].Team)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "19.10.2026", Customer: "Acme"})
		assert.ErrorIs(t, err, ErrInvalidDate)
		_, err = l.CreateJob(ctx, AccessAdmin, NewJob{Customer: "Acme", Team: []string{"Ali, Veli"}})
		assert.ErrorIs(t, err, ErrInvalidTeam)
	})

	t.Run("ids are increasing", func(t *testing.T) {
		id1, err := l.CreateJob(ctx, AccessAdmin, NewJob{Customer: "A"})
		require.NoError(t, err)
		id2, err := l.CreateJob(ctx, AccessAdmin, NewJob{Customer: "B"})
		require.NoError(t, err)
		assert.Greater(t, id2, id1)
	})
}

func TestLedger_CreateDemoDisabled(t *testing.T) {
	l, _ := newTestLedger(t, Capabilities{})
	_, err := l.CreateJob(context.Background(), AccessAdmin, NewJob{Customer: "Acme", JobType: enums.JobTypeDemo})
	assert.ErrorIs(t, err, ErrDemoDisabled)
}

func TestLedger_ListJobsOrderReversed(t *testing.T) {
	l, _ := newTestLedger(t, fullCaps())
	ctx := context.Background()
	for _, d := range []string{"2026-05-03", "2026-05-01", "2026-05-03", "2026-04-30", "2026-05-02"} {
		_, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: d, Customer: "C " + d})
		require.NoError(t, err)
	}

	asc, err := l.ListJobs(ctx, enums.SortOrderAsc)
	require.NoError(t, err)
	desc, err := l.ListJobs(ctx, enums.SortOrderDesc)
	require.NoError(t, err)
	require.Len(t, asc, 5)
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
	assert.Equal(t, "2026-04-30", asc[0].Date)
	assert.Less(t, asc[3].ID, asc[4].ID, "same date ordered by id")
}

func TestElapsedWait(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 15, 0, 0, time.Local)
	tests := []struct {
		name string
		job  persistence.Job
		want string
	}{
		{"pending 3 days", persistence.Job{Status: enums.StatusPending, Date: "2026-10-16"}, "3 Gün"},
		{"pending today", persistence.Job{Status: enums.StatusPending, Date: "2026-10-19"}, "0 Gün"},
		{"completed", persistence.Job{Status: enums.StatusCompleted, Date: "2026-10-16"}, "-"},
		{"finished", persistence.Job{Status: enums.StatusFinished, Date: "2020-01-01"}, "-"},
		{"malformed date", persistence.Job{Status: enums.StatusPending, Date: "16/10/2026"}, "-"},
		{"empty date", persistence.Job{Status: enums.StatusPending}, "-"},
		{"future date", persistence.Job{Status: enums.StatusPending, Date: "2026-10-20"}, "-1 Gün"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ElapsedWait(tt.job, now))
		})
	}
}

func TestElapsedWaitAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("no tz data, %v", err)
	}
	// the night of 2026-03-29 is 23 hours long in Berlin
	now := time.Date(2026, 3, 30, 0, 30, 0, 0, loc)
	job := persistence.Job{Status: enums.StatusPending, Date: "2026-03-29"}
	assert.Equal(t, "1 Gün", ElapsedWait(job, now))
	job.Date = "2026-03-01"
	assert.Equal(t, "29 Gün", ElapsedWait(job, now))

	now = time.Date(2026, 10, 25, 23, 59, 0, 0, loc)
	job.Date = "2026-10-25"
	assert.Equal(t, "0 Gün", ElapsedWait(job, now), "25 hour day")
}

func TestLedger_Groups(t *testing.T) {
	l, store := newTestLedger(t, fullCaps())
	ctx := context.Background()
	require.NoError(t, store.RestoreJobs(ctx, []persistence.Job{
		{ID: 1, Date: "2026-10-16", Customer: "A", Status: enums.StatusPending, JobType: enums.JobTypeNormal},
		{ID: 2, Date: "2026-10-10", Customer: "B", Status: enums.StatusCompleted, JobType: enums.JobTypeNormal},
		{ID: 3, Date: "2026-10-11", Customer: "C", Status: enums.StatusPending, JobType: enums.JobTypeDemo},
		{ID: 4, Date: "2026-10-12", Customer: "D", Status: enums.StatusCompleted, JobType: enums.JobTypeDemo},
		{ID: 5, Date: "2026-10-13", Customer: "E", Status: enums.StatusFinished, JobType: enums.JobTypeDemo},
	}))

	groups, err := l.Groups(ctx, enums.SortOrderAsc)
	require.NoError(t, err)
	require.Len(t, groups, 5)
	assert.Equal(t, enums.GroupPendingNormal, groups[0].Group)
	require.Len(t, groups[0].Jobs, 1)
	assert.Equal(t, "3 Gün", groups[0].Jobs[0].Wait)
	assert.Equal(t, int64(2), groups[1].Jobs[0].ID)
	assert.Equal(t, "-", groups[1].Jobs[0].Wait)
	assert.Equal(t, int64(3), groups[2].Jobs[0].ID)
	assert.Equal(t, int64(4), groups[3].Jobs[0].ID)
	assert.Equal(t, int64(5), groups[4].Jobs[0].ID)

	counters, err := l.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counters{PendingNormal: 1, CompletedNormal: 1, PendingDemo: 1, InProgressDemo: 1, FinishedDemo: 1}, counters)

	t.Run("without demo support", func(t *testing.T) {
		plain := New(Params{Store: store, Now: func() time.Time { return testNow }})
		groups, err := plain.Groups(ctx, enums.SortOrderAsc)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Len(t, groups[0].Jobs, 2)
		assert.Len(t, groups[1].Jobs, 3)

		counters, err := plain.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, Counters{PendingNormal: 2, CompletedNormal: 3}, counters)
	})
}

func TestLedger_SummaryByCustomer(t *testing.T) {
	l, _ := newTestLedger(t, fullCaps())
	ctx := context.Background()
	for _, c := range []string{"Acme", "Acme", "acme", "Acme ", "Beta"} {
		_, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-01", Customer: c})
		require.NoError(t, err)
	}
	res, err := l.BulkUpdate(ctx, AccessAdmin, []RowEdit{{ID: 5, Customer: "Beta", Status: enums.StatusCompleted}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	summary, err := l.SummaryByCustomer(ctx)
	require.NoError(t, err)
	// trailing space is trimmed on intake, case is not normalized, completed jobs are not counted
	assert.Equal(t, []CustomerCount{{Customer: "Acme", Pending: 3}, {Customer: "acme", Pending: 1}}, summary)
}

func TestLedger_Customers(t *testing.T) {
	l, _ := newTestLedger(t, fullCaps())
	ctx := context.Background()
	for _, c := range []string{"Zeta", "Acme", "Zeta"} {
		_, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-01", Customer: c})
		require.NoError(t, err)
	}
	customers, err := l.Customers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Zeta"}, customers)
}

func TestLedger_ExportRestoreRoundTrip(t *testing.T) {
	src, srcStore := newTestLedger(t, fullCaps())
	ctx := context.Background()
	require.NoError(t, srcStore.RestoreJobs(ctx, []persistence.Job{
		{ID: 4, Date: "2026-10-01", Customer: "A", Address: "addr", Description: "desc", Note: "note",
			Status: enums.StatusCompleted, JobType: enums.JobTypeNormal, DurationDays: 3, Team: []string{"Ali", "Veli"}},
		{ID: 9, Date: "garbage", Customer: "B", Status: enums.StatusFinished, JobType: enums.JobTypeDemo, Team: []string{}},
	}))
	snapshot, err := src.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	dst, _ := newTestLedger(t, fullCaps())
	assert.ErrorIs(t, dst.Restore(ctx, AccessViewer, snapshot), ErrForbidden)
	require.NoError(t, dst.Restore(ctx, AccessAdmin, snapshot))
	restored, err := dst.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot, restored)

	bad := []persistence.Job{{ID: 1, Date: "2026-10-01", Customer: "X", Status: enums.StatusFinished, JobType: enums.JobTypeNormal}}
	assert.ErrorIs(t, dst.Restore(ctx, AccessAdmin, bad), ErrInvalidStatus)
}

func TestLedger_Notifications(t *testing.T) {
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()
	notif := &notifierMock{}
	l := New(Params{Store: store, Capabilities: fullCaps(), Notifier: notif})
	ctx := context.Background()

	id, err := l.CreateJob(ctx, AccessAdmin, NewJob{Customer: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, notif.created)

	_, err = l.BulkUpdate(ctx, AccessAdmin, []RowEdit{{ID: id, Customer: "Acme", Status: enums.StatusCompleted}})
	require.NoError(t, err)
	_, err = l.BulkUpdate(ctx, AccessAdmin, []RowEdit{{ID: id, Customer: "Acme", Status: enums.StatusCompleted, Note: "x"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, notif.done, "only the transition into done is reported")
}

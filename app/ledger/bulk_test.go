package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

func TestLedger_BulkUpdateDelete(t *testing.T) {
	l, store := newTestLedger(t, fullCaps())
	ctx := context.Background()
	var snapshot []persistence.Job
	for i := int64(1); i <= 10; i++ {
		snapshot = append(snapshot, persistence.Job{ID: i, Date: "2026-10-01", Customer: "C", Status: enums.StatusPending,
			JobType: enums.JobTypeNormal, Team: []string{"Ali"}, DurationDays: int(i)})
	}
	require.NoError(t, store.RestoreJobs(ctx, snapshot))
	before, err := l.ExportAll(ctx)
	require.NoError(t, err)

	res, err := l.BulkUpdate(ctx, AccessAdmin, []RowEdit{{ID: 7, Delete: true}})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Deleted: 1}, res)

	after, err := l.ExportAll(ctx)
	require.NoError(t, err)
	require.Len(t, after, 9)
	expected := append(append([]persistence.Job{}, before[:6]...), before[7:]...)
	assert.Equal(t, expected, after)

	// deleting again is a no-op
	res, err = l.BulkUpdate(ctx, AccessAdmin, []RowEdit{{ID: 7, Delete: true}})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{}, res)
}

func TestLedger_BulkUpdateFields(t *testing.T) {
	l, _ := newTestLedger(t, fullCaps())
	ctx := context.Background()
	normal, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-01", Customer: "Acme"})
	require.NoError(t, err)
	demo, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-02", Customer: "Demo Co", JobType: enums.JobTypeDemo})
	require.NoError(t, err)
	other, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-03", Customer: "Other"})
	require.NoError(t, err)

	res, err := l.BulkUpdate(ctx, AccessAdmin, []RowEdit{
		{ID: normal, Customer: "Acme Ltd", Address: " Izmir ", Description: "kamera", Note: "ok",
			Status: enums.StatusCompleted, Team: []string{"Veli", "Ali"}, DurationDays: 2},
		{ID: demo, Customer: "Demo Co", Status: enums.StatusFinished, DurationDays: 14},
		{ID: other, Customer: "Other", Status: enums.StatusFinished}, // finished is demo only
		{ID: 999, Customer: "Ghost", Status: enums.StatusPending},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, other, res.Skipped[0].ID)
	assert.ErrorIs(t, res.Skipped[0].Err, ErrInvalidStatus)

	jobs, err := l.store.JobsByID(ctx, []int64{normal, demo, other})
	require.NoError(t, err)
	assert.Equal(t, persistence.Job{ID: normal, Date: "2026-10-01", Customer: "Acme Ltd", Address: "Izmir",
		Description: "kamera", Note: "ok", Status: enums.StatusCompleted, JobType: enums.JobTypeNormal,
		Team: []string{"Veli", "Ali"}, DurationDays: 2}, jobs[normal])
	assert.Equal(t, enums.StatusFinished, jobs[demo].Status)
	assert.Equal(t, 14, jobs[demo].DurationDays)
	assert.Equal(t, enums.StatusPending, jobs[other].Status)
}

func TestLedger_BulkUpdateValidation(t *testing.T) {
	l, _ := newTestLedger(t, fullCaps())
	ctx := context.Background()
	id, err := l.CreateJob(ctx, AccessAdmin, NewJob{Date: "2026-10-01", Customer: "Acme"})
	require.NoError(t, err)

	tests := []struct {
		name string
		row  RowEdit
		err  error
	}{
		{"empty customer", RowEdit{ID: id, Customer: "  "}, ErrEmptyCustomer},
		{"negative duration", RowEdit{ID: id, Customer: "Acme", DurationDays: -1}, ErrNegativeDuration},
		{"finished for normal job", RowEdit{ID: id, Customer: "Acme", Status: enums.StatusFinished}, ErrInvalidStatus},
		{"comma in team", RowEdit{ID: id, Customer: "Acme", Team: []string{"A,B"}}, ErrInvalidTeam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := l.BulkUpdate(ctx, AccessAdmin, []RowEdit{tt.row})
			require.NoError(t, err)
			require.Len(t, res.Skipped, 1)
			assert.ErrorIs(t, res.Skipped[0].Err, tt.err)
			assert.Zero(t, res.Updated)
		})
	}

	_, err = l.BulkUpdate(ctx, AccessViewer, []RowEdit{{ID: id, Delete: true}})
	assert.ErrorIs(t, err, ErrForbidden)
	jobs, err := l.ListJobs(ctx, enums.SortOrderAsc)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestLedger_BulkUpdateFinishedWithoutDemo(t *testing.T) {
	l, store := newTestLedger(t, Capabilities{})
	ctx := context.Background()
	require.NoError(t, store.RestoreJobs(ctx, []persistence.Job{
		{ID: 1, Date: "2026-10-01", Customer: "Legacy demo", Status: enums.StatusPending, JobType: enums.JobTypeDemo},
	}))
	res, err := l.BulkUpdate(ctx, AccessAdmin, []RowEdit{{ID: 1, Customer: "Legacy demo", Status: enums.StatusFinished}})
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.ErrorIs(t, res.Skipped[0].Err, ErrInvalidStatus)
}

func TestLedger_BulkUpdateKeepsFinishedWithoutDemo(t *testing.T) {
	l, store := newTestLedger(t, Capabilities{})
	ctx := context.Background()
	require.NoError(t, store.RestoreJobs(ctx, []persistence.Job{
		{ID: 1, Date: "2026-10-01", Customer: "Legacy demo", Status: enums.StatusFinished, JobType: enums.JobTypeDemo},
	}))
	res, err := l.BulkUpdate(ctx, AccessAdmin, []RowEdit{
		{ID: 1, Customer: "Legacy demo", Note: "arsiv", Status: enums.StatusFinished, DurationDays: 3},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 1, res.Updated)

	jobs, err := store.JobsByID(ctx, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, enums.StatusFinished, jobs[1].Status)
	assert.Equal(t, "arsiv", jobs[1].Note)
	assert.Equal(t, 3, jobs[1].DurationDays)
}

func TestLedger_BulkUpdateTeam(t *testing.T) {
	l, store := newTestLedger(t, Capabilities{})
	ctx := context.Background()
	require.NoError(t, store.RestoreJobs(ctx, []persistence.Job{
		{ID: 1, Date: "2026-10-01", Customer: "Acme", Status: enums.StatusPending, JobType: enums.JobTypeNormal,
			Team: []string{"Ali", "Veli"}},
		{ID: 2, Date: "2026-10-02", Customer: "Beta", Status: enums.StatusPending, JobType: enums.JobTypeNormal,
			Team: []string{"Ali"}},
	}))

	res, err := l.BulkUpdate(ctx, AccessAdmin, []RowEdit{
		{ID: 1, Customer: "Acme", Status: enums.StatusCompleted}, // no team, stored one is kept
		{ID: 2, Customer: "Beta", Team: []string{}},              // empty team clears it
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)

	jobs, err := store.JobsByID(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ali", "Veli"}, jobs[1].Team)
	assert.Equal(t, enums.StatusCompleted, jobs[1].Status)
	assert.Empty(t, jobs[2].Team)
	assert.Equal(t, enums.StatusPending, jobs[2].Status, "unset status keeps the stored one")
}

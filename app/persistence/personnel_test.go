package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozummakina/montaj/app/enums"
)

func TestSQLiteStore_Personnel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddPersonnel(ctx, "Veli"))
	require.NoError(t, store.AddPersonnel(ctx, "Ali"))
	err := store.AddPersonnel(ctx, "Ali")
	require.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, store.AddPersonnel(ctx, "ali"), "names are case-sensitive")

	names, err := store.ListPersonnel(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ali", "Veli", "ali"}, names)

	require.NoError(t, store.RemovePersonnel(ctx, "ali"))
	require.NoError(t, store.RemovePersonnel(ctx, "nobody"))
	names, err = store.ListPersonnel(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ali", "Veli"}, names)
}

func TestSQLiteStore_RemovePersonnelKeepsTeams(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddPersonnel(ctx, "Ali"))
	ids := seedJobs(t, store, Job{Date: "2026-03-01", Customer: "Acme", Team: []string{"Ali"}})

	require.NoError(t, store.RemovePersonnel(ctx, "Ali"))
	jobs, err := store.JobsByID(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ali"}, jobs[ids[0]].Team)
}

func TestSQLiteStore_TeamStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedJobs(t, store,
		Job{Date: "2026-03-01", Customer: "A", Status: enums.StatusCompleted, DurationDays: 3, Team: []string{"Ali", "Veli"}},
		Job{Date: "2026-03-02", Customer: "B", Status: enums.StatusCompleted, DurationDays: 3, Team: []string{"Ali"}},
		Job{Date: "2026-03-03", Customer: "C", Status: enums.StatusPending, DurationDays: 9, Team: []string{"Veli"}},
		Job{Date: "2026-03-04", Customer: "D", JobType: enums.JobTypeDemo, Status: enums.StatusFinished,
			DurationDays: 5, Team: []string{"Ayşe"}},
	)

	stats, err := store.TeamStats(ctx, []enums.Status{enums.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []TeamStat{{"Ali", 2, 6}, {"Veli", 1, 3}}, stats)

	stats, err = store.TeamStats(ctx, []enums.Status{enums.StatusCompleted, enums.StatusFinished})
	require.NoError(t, err)
	assert.Equal(t, []TeamStat{{"Ali", 2, 6}, {"Ayşe", 1, 5}, {"Veli", 1, 3}}, stats)

	stats, err = store.TeamStats(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestSQLiteStore_TeamStatsDuplicateName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedJobs(t, store,
		Job{Date: "2026-03-01", Customer: "A", Status: enums.StatusCompleted, DurationDays: 4, Team: []string{"Ali", "Veli", "Ali"}},
		Job{Date: "2026-03-02", Customer: "B", Status: enums.StatusCompleted, DurationDays: 1, Team: []string{"Ali"}},
	)

	stats, err := store.TeamStats(ctx, []enums.Status{enums.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []TeamStat{{"Ali", 2, 5}, {"Veli", 1, 4}}, stats)
}

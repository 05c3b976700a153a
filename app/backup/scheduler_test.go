package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

type sourceMock struct {
	jobs []persistence.Job
	err  error
}

func (s *sourceMock) ExportAll(context.Context) ([]persistence.Job, error) { return s.jobs, s.err }

func TestScheduler_Backup(t *testing.T) {
	dir := t.TempDir()
	src := &sourceMock{jobs: []persistence.Job{{ID: 1, Date: "2026-10-01", Customer: "Acme",
		Status: enums.StatusPending, JobType: enums.JobTypeNormal, Team: []string{}}}}
	now := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	s := &Scheduler{Source: src, Dir: dir, Now: func() time.Time { return now }}

	fname, err := s.Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "montaj_yedek_19-10-2026.xlsx"), fname)

	fh, err := os.Open(fname)
	require.NoError(t, err)
	defer fh.Close()
	jobs, err := ReadXLSX(fh)
	require.NoError(t, err)
	assert.Equal(t, src.jobs, jobs)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")

	src.err = errors.New("db is gone")
	_, err = s.Backup(context.Background())
	assert.ErrorContains(t, err, "db is gone")
}

func TestScheduler_Prune(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		name := filepath.Join(dir, FileName(base.AddDate(0, 0, i)))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o600))
		require.NoError(t, os.Chtimes(name, base.AddDate(0, 0, i), base.AddDate(0, 0, i)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep me"), 0o600))

	now := base.AddDate(0, 0, 10)
	s := &Scheduler{Source: &sourceMock{}, Dir: dir, Keep: 2, Now: func() time.Time { return now }}
	_, err := s.Backup(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"notes.txt", FileName(now), FileName(base.AddDate(0, 0, 3))}, names)
}

func TestScheduler_Do(t *testing.T) {
	t.Run("bad spec", func(t *testing.T) {
		s := &Scheduler{Cron: cron.New(), Source: &sourceMock{}, Spec: "bad spec", Dir: t.TempDir()}
		assert.ErrorContains(t, s.Do(context.Background()), "can't parse backup schedule")
	})

	t.Run("runs until canceled", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "backups")
		s := &Scheduler{Cron: cron.New(), Source: &sourceMock{}, Spec: "@every 1s", Dir: dir}
		ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
		defer cancel()
		require.NoError(t, s.Do(ctx))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, FileName(time.Now()), entries[0].Name())
	})
}

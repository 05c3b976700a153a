package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/cozummakina/montaj/app/persistence"
)

// Source provides a full snapshot of the ledger
type Source interface {
	ExportAll(ctx context.Context) ([]persistence.Job, error)
}

// Cron defines the robfig/cron methods used by Scheduler
type Cron interface {
	Start()
	Stop() context.Context
	Schedule(schedule cron.Schedule, cmd cron.Job) cron.EntryID
}

// Scheduler writes backup workbooks to Dir on the given cron spec.
// Files for the same day overwrite each other, Keep limits the number of retained files (0 keeps all).
type Scheduler struct {
	Cron   Cron
	Source Source
	Spec   string
	Dir    string
	Keep   int
	Now    func() time.Time
}

// Do runs blocking scheduler until ctx is canceled
func (s *Scheduler) Do(ctx context.Context) error {
	sched, err := cron.ParseStandard(s.Spec)
	if err != nil {
		return fmt.Errorf("can't parse backup schedule %q: %w", s.Spec, err)
	}
	if err = os.MkdirAll(s.Dir, 0o750); err != nil {
		return fmt.Errorf("can't make backup dir %s: %w", s.Dir, err)
	}

	id := s.Cron.Schedule(sched, cron.FuncJob(func() {
		fname, err := s.Backup(ctx)
		if err != nil {
			log.Printf("[WARN] backup failed, %v", err)
			return
		}
		log.Printf("[INFO] backup written to %s", fname)
	}))
	log.Printf("[INFO] backup scheduled %q to %s, first: %s (%v)", s.Spec, s.Dir,
		sched.Next(s.now()).Format(time.RFC3339), id)

	s.Cron.Start()
	<-ctx.Done()
	log.Print("[DEBUG] backup scheduler terminated")
	<-s.Cron.Stop().Done()
	return nil
}

// Backup writes a single backup file and returns its name
func (s *Scheduler) Backup(ctx context.Context) (string, error) {
	jobs, err := s.Source.ExportAll(ctx)
	if err != nil {
		return "", fmt.Errorf("can't export jobs: %w", err)
	}

	fname := filepath.Join(s.Dir, FileName(s.now()))
	tmp, err := os.CreateTemp(s.Dir, ".montaj-backup-*")
	if err != nil {
		return "", fmt.Errorf("can't create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after successful rename

	if err = WriteXLSX(tmp, jobs); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("can't close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), fname); err != nil {
		return "", fmt.Errorf("can't rename to %s: %w", fname, err)
	}

	if err = s.prune(); err != nil {
		log.Printf("[WARN] can't prune old backups, %v", err)
	}
	return fname, nil
}

// prune removes the oldest backup files above Keep
func (s *Scheduler) prune() error {
	if s.Keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("can't read %s: %w", s.Dir, err)
	}

	type backupFile struct {
		name string
		mod  time.Time
	}
	var files []backupFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "montaj_yedek_") || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFile{name: e.Name(), mod: info.ModTime()})
	}
	if len(files) <= s.Keep {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.After(files[j].mod) })
	for _, f := range files[s.Keep:] {
		if err := os.Remove(filepath.Join(s.Dir, f.name)); err != nil {
			return fmt.Errorf("can't remove %s: %w", f.name, err)
		}
		log.Printf("[DEBUG] removed old backup %s", f.name)
	}
	return nil
}

func (s *Scheduler) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

// PersonnelStat is the done-work summary of a team member
type PersonnelStat struct {
	Name      string `json:"name"`
	JobCount  int    `json:"job_count"`
	TotalDays int    `json:"total_days"`
}

// AddPersonnel adds a name to the roster
func (l *Ledger) AddPersonnel(ctx context.Context, access Access, name string) error {
	if err := l.checkPersonnel(access); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if strings.Contains(name, ",") {
		return ErrInvalidName
	}
	if err := l.store.AddPersonnel(ctx, name); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return fmt.Errorf("%w: %q", ErrPersonnelExists, name)
		}
		return fmt.Errorf("failed to add personnel: %w", err)
	}
	log.Printf("[INFO] personnel %q added", name)
	return nil
}

// RemovePersonnel removes a name from the roster, jobs keep it in their teams
func (l *Ledger) RemovePersonnel(ctx context.Context, access Access, name string) error {
	if err := l.checkPersonnel(access); err != nil {
		return err
	}
	if err := l.store.RemovePersonnel(ctx, name); err != nil {
		return fmt.Errorf("failed to remove personnel: %w", err)
	}
	log.Printf("[INFO] personnel %q removed", name)
	return nil
}

// Personnel returns the roster in alphabetical order
func (l *Ledger) Personnel(ctx context.Context) ([]string, error) {
	if !l.caps.SupportsPersonnel {
		return []string{}, nil
	}
	res, err := l.store.ListPersonnel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list personnel: %w", err)
	}
	return res, nil
}

// PersonnelStats returns job count and total days of done jobs per team member. A job contributes
// its full duration to each member of its team. Roster members without done jobs are listed with zeros.
// Sorted by total days, largest first, then by name.
func (l *Ledger) PersonnelStats(ctx context.Context) ([]PersonnelStat, error) {
	if !l.caps.SupportsPersonnel {
		return []PersonnelStat{}, nil
	}
	doneStatuses := []enums.Status{enums.StatusCompleted}
	if l.caps.SupportsDemo {
		doneStatuses = append(doneStatuses, enums.StatusFinished)
	}
	stats, err := l.store.TeamStats(ctx, doneStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to get team stats: %w", err)
	}
	roster, err := l.store.ListPersonnel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list personnel: %w", err)
	}

	res := make([]PersonnelStat, 0, len(stats)+len(roster))
	seen := make(map[string]bool, len(stats))
	for _, s := range stats {
		res = append(res, PersonnelStat{Name: s.Name, JobCount: s.JobCount, TotalDays: s.TotalDays})
		seen[s.Name] = true
	}
	for _, name := range roster {
		if !seen[name] {
			res = append(res, PersonnelStat{Name: name})
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].TotalDays != res[j].TotalDays {
			return res[i].TotalDays > res[j].TotalDays
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

func (l *Ledger) checkPersonnel(access Access) error {
	if !access.IsAdmin() {
		return ErrForbidden
	}
	if !l.caps.SupportsPersonnel {
		return ErrPersonnelDisabled
	}
	return nil
}

package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cozummakina/montaj/app/enums"
)

// TeamStat aggregates the jobs of a single team member
type TeamStat struct {
	Name      string `db:"name"`
	JobCount  int    `db:"job_count"`
	TotalDays int    `db:"total_days"`
}

// AddPersonnel inserts a roster entry, returns ErrDuplicate if the name is already present
func (s *SQLiteStore) AddPersonnel(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO personnel (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return fmt.Errorf("failed to add personnel %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check personnel insert: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("personnel %q: %w", name, ErrDuplicate)
	}
	return nil
}

// RemovePersonnel deletes a roster entry. Team assignments of existing jobs are not touched.
func (s *SQLiteStore) RemovePersonnel(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM personnel WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to remove personnel %q: %w", name, err)
	}
	return nil
}

// ListPersonnel returns roster names in alphabetical order
func (s *SQLiteStore) ListPersonnel(ctx context.Context) ([]string, error) {
	res := []string{}
	if err := s.db.SelectContext(ctx, &res, `SELECT name FROM personnel ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("failed to list personnel: %w", err)
	}
	return res, nil
}

// TeamStats aggregates job count and total duration per team member over jobs with the given statuses.
// Every member of a job gets the full duration of that job, a name listed twice in one team counts once.
func (s *SQLiteStore) TeamStats(ctx context.Context, statuses []enums.Status) ([]TeamStat, error) {
	res := []TeamStat{}
	if len(statuses) == 0 {
		return res, nil
	}
	query, args, err := sqlx.In(`
		SELECT t.name AS name, COUNT(*) AS job_count, COALESCE(SUM(j.duration_days), 0) AS total_days
		FROM (SELECT DISTINCT job_id, name FROM job_team) t JOIN jobs j ON j.id = t.job_id
		WHERE j.status IN (?)
		GROUP BY t.name
		ORDER BY total_days DESC, name ASC`, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to build stats query: %w", err)
	}
	if err := s.db.SelectContext(ctx, &res, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query team stats: %w", err)
	}
	return res, nil
}

func statusStrings(statuses []enums.Status) []string {
	res := make([]string, 0, len(statuses))
	for _, st := range statuses {
		res = append(res, st.String())
	}
	return res
}

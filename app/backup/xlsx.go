// Package backup writes and reads spreadsheet snapshots of the job ledger and runs scheduled backups.
package backup

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/persistence"
)

// SheetName is the name of the single sheet in exported workbooks
const SheetName = "Liste"

// Columns is the header row of exported workbooks, in order
var Columns = []string{"id", "date", "customer", "address", "description", "note", "status", "job_type", "team",
	"duration_days"}

// ErrMissingColumn returned by ReadXLSX when the header has no id column
var ErrMissingColumn = errors.New("missing column")

// FileName returns download/backup file name for the given time, i.e. montaj_yedek_19-10-2026.xlsx
func FileName(now time.Time) string {
	return fmt.Sprintf("montaj_yedek_%s.xlsx", now.Format("02-01-2006"))
}

// WriteXLSX writes all jobs as a single-sheet workbook to w
func WriteXLSX(w io.Writer, jobs []persistence.Job) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("can't create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("can't remove default sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err = f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("can't write header: %w", err)
	}

	for i, j := range jobs {
		row := []any{j.ID, j.Date, j.Customer, j.Address, j.Description, j.Note, j.Status.String(),
			j.JobType.String(), persistence.JoinTeam(j.Team), j.DurationDays}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("can't make cell name for row %d: %w", i+2, err)
		}
		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("can't write job %d: %w", j.ID, err)
		}
	}

	if err = f.Write(w); err != nil {
		return fmt.Errorf("can't write workbook: %w", err)
	}
	return nil
}

// ReadXLSX parses a workbook made by WriteXLSX. Columns are located by header name, so order and extra
// columns don't matter. Rows with an empty id are skipped.
func ReadXLSX(r io.Reader) ([]persistence.Job, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("can't open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("can't read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet %q: %w", sheet, ErrMissingColumn)
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["id"]; !ok {
		return nil, fmt.Errorf("no id in header: %w", ErrMissingColumn)
	}
	get := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	res := make([]persistence.Job, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		idStr := strings.TrimSpace(get(row, "id"))
		if idStr == "" {
			continue
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id %q: %w", line, idStr, err)
		}
		job := persistence.Job{
			ID:          id,
			Date:        get(row, "date"),
			Customer:    get(row, "customer"),
			Address:     get(row, "address"),
			Description: get(row, "description"),
			Note:        get(row, "note"),
			Team:        persistence.SplitTeam(get(row, "team")),
		}
		if job.Status, err = enums.ParseStatus(strings.TrimSpace(get(row, "status"))); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if job.JobType, err = enums.ParseJobTypeInput(get(row, "job_type")); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if d := strings.TrimSpace(get(row, "duration_days")); d != "" {
			if job.DurationDays, err = strconv.Atoi(d); err != nil {
				return nil, fmt.Errorf("row %d: invalid duration %q: %w", line, d, err)
			}
		}
		res = append(res, job)
	}
	return res, nil
}

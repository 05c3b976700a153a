package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/cozummakina/montaj/app/backup"
	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/ledger"
	"github.com/cozummakina/montaj/app/persistence"
)

// tabPersonnel is the roster tab, shown next to the job group tabs
const tabPersonnel = "personnel"

// TemplateData holds data for the dashboard templates
type TemplateData struct {
	BaseURL      string
	Version      string
	CurrentYear  int
	Admin        bool
	LoginEnabled bool
	Caps         ledger.Capabilities
	Counters     ledger.Counters
	Summary      []ledger.CustomerCount
	Groups       []ledger.GroupView
	Tab          string
	Active       ledger.GroupView
	Order        enums.SortOrder
	Personnel    []string
	Stats        []ledger.PersonnelStat
	Customers    []string
	Today        string
	Flash        string
	FlashError   bool
}

// handleDashboard renders the main dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order := s.getSortOrder(r)

	data := TemplateData{
		BaseURL:      s.baseURL,
		Version:      s.version,
		CurrentYear:  s.now().Year(),
		Admin:        accessFrom(ctx).IsAdmin(),
		LoginEnabled: s.passwordHash != "",
		Caps:         s.ledger.Capabilities(),
		Order:        order,
		Today:        s.now().Format(persistence.DateFormat),
	}
	data.Flash, data.FlashError = flashFromQuery(r.URL.Query())

	var err error
	if data.Counters, err = s.ledger.Counts(ctx); err != nil {
		s.serverError(w, "failed to count jobs", err)
		return
	}
	if data.Summary, err = s.ledger.SummaryByCustomer(ctx); err != nil {
		s.serverError(w, "failed to load customer summary", err)
		return
	}
	if data.Groups, err = s.ledger.Groups(ctx, order); err != nil {
		s.serverError(w, "failed to load jobs", err)
		return
	}
	if data.Customers, err = s.ledger.Customers(ctx); err != nil {
		s.serverError(w, "failed to load customers", err)
		return
	}
	if data.Caps.SupportsPersonnel {
		if data.Personnel, err = s.ledger.Personnel(ctx); err != nil {
			s.serverError(w, "failed to load personnel", err)
			return
		}
		if data.Stats, err = s.ledger.PersonnelStats(ctx); err != nil {
			s.serverError(w, "failed to load personnel stats", err)
			return
		}
	}

	data.Tab = r.URL.Query().Get("tab")
	if data.Tab != tabPersonnel || !data.Caps.SupportsPersonnel {
		data.Tab = string(data.Groups[0].Group)
		data.Active = data.Groups[0]
		if g, err := enums.ParseGroup(r.URL.Query().Get("tab")); err == nil {
			for _, gv := range data.Groups {
				if gv.Group == g {
					data.Tab, data.Active = g.String(), gv
				}
			}
		}
	}

	s.render(w, "base.html", "base", data)
}

// handleCreateJob processes the intake form
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	jobType, err := enums.ParseJobTypeInput(r.FormValue("job_type"))
	if err != nil {
		s.redirectFlash(w, r, "", url.Values{"err": {"invalid"}})
		return
	}
	req := ledger.NewJob{
		Date:        r.FormValue("date"),
		Customer:    r.FormValue("customer"),
		Address:     r.FormValue("address"),
		Description: r.FormValue("description"),
		Note:        r.FormValue("note"),
		JobType:     jobType,
		Team:        r.Form["team"],
	}
	id, err := s.ledger.CreateJob(r.Context(), accessFrom(r.Context()), req)
	if err != nil {
		log.Printf("[WARN] can't create job, %v", err)
		s.redirectFlash(w, r, "", flashError(err))
		return
	}
	log.Printf("[INFO] job %d created for %q", id, strings.TrimSpace(req.Customer))
	tab := enums.GroupOf(jobType, enums.StatusPending).String()
	s.redirectFlash(w, r, tab, url.Values{"msg": {"created"}})
}

// handleSaveJobs applies edits and deletions of the job table form.
// Rows are listed in "id" fields, other fields are suffixed with the row id, i.e. customer_12.
func (s *Server) handleSaveJobs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	rows, err := parseRowEdits(r)
	if err != nil {
		s.redirectFlash(w, r, r.FormValue("tab"), url.Values{"err": {"invalid"}})
		return
	}
	res, err := s.ledger.BulkUpdate(r.Context(), accessFrom(r.Context()), rows)
	if err != nil {
		log.Printf("[WARN] can't save jobs, %v", err)
		s.redirectFlash(w, r, r.FormValue("tab"), flashError(err))
		return
	}
	for _, e := range res.Skipped {
		log.Printf("[WARN] skipped %v", e)
	}
	log.Printf("[INFO] bulk edit, updated %d, deleted %d, skipped %d", res.Updated, res.Deleted, len(res.Skipped))
	s.redirectFlash(w, r, r.FormValue("tab"), url.Values{"msg": {"saved"},
		"u": {strconv.Itoa(res.Updated)}, "d": {strconv.Itoa(res.Deleted)}, "s": {strconv.Itoa(len(res.Skipped))}})
}

func parseRowEdits(r *http.Request) ([]ledger.RowEdit, error) {
	rows := make([]ledger.RowEdit, 0, len(r.Form["id"]))
	for _, idStr := range r.Form["id"] {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", idStr, err)
		}
		field := func(name string) string { return r.FormValue(name + "_" + idStr) }
		row := ledger.RowEdit{
			ID:          id,
			Delete:      field("delete") != "",
			Customer:    field("customer"),
			Address:     field("address"),
			Description: field("description"),
			Note:        field("note"),
		}
		if st := strings.TrimSpace(field("status")); st != "" {
			if row.Status, err = enums.ParseStatus(st); err != nil {
				return nil, fmt.Errorf("invalid status for %d: %w", id, err)
			}
		}
		if field("team_present") != "" { // team editor rendered, no selection clears the team
			row.Team = append([]string{}, r.Form["team_"+idStr]...)
		}
		if d := strings.TrimSpace(field("duration")); d != "" {
			if row.DurationDays, err = strconv.Atoi(d); err != nil {
				return nil, fmt.Errorf("invalid duration %q for %d: %w", d, id, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// handleAddPersonnel adds a name to the roster
func (s *Server) handleAddPersonnel(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if err := s.ledger.AddPersonnel(r.Context(), accessFrom(r.Context()), name); err != nil {
		log.Printf("[WARN] can't add personnel %q, %v", name, err)
		s.redirectFlash(w, r, tabPersonnel, flashError(err))
		return
	}
	s.redirectFlash(w, r, tabPersonnel, url.Values{"msg": {"personnel-added"}})
}

// handleRemovePersonnel removes a name from the roster
func (s *Server) handleRemovePersonnel(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if err := s.ledger.RemovePersonnel(r.Context(), accessFrom(r.Context()), name); err != nil {
		log.Printf("[WARN] can't remove personnel %q, %v", name, err)
		s.redirectFlash(w, r, tabPersonnel, flashError(err))
		return
	}
	s.redirectFlash(w, r, tabPersonnel, url.Values{"msg": {"personnel-removed"}})
}

// handleSortToggle flips the sort order cookie
func (s *Server) handleSortToggle(w http.ResponseWriter, r *http.Request) {
	next := s.getSortOrder(r).Toggle()
	s.setSortCookie(w, next)
	s.redirectFlash(w, r, r.FormValue("tab"), nil)
}

// handleExport sends all jobs as a spreadsheet download
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.ledger.ExportAll(r.Context())
	if err != nil {
		s.serverError(w, "failed to export jobs", err)
		return
	}
	buf := bytes.Buffer{}
	if err = backup.WriteXLSX(&buf, jobs); err != nil {
		s.serverError(w, "failed to make spreadsheet", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.FileName(s.now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err = buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write export, %v", err)
	}
}

// handleImport restores jobs from an uploaded spreadsheet
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	access := accessFrom(r.Context())
	if !access.IsAdmin() {
		s.redirectFlash(w, r, "", flashError(ledger.ErrForbidden))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.redirectFlash(w, r, "", url.Values{"err": {"no-file"}})
		return
	}
	defer file.Close()

	jobs, err := backup.ReadXLSX(file)
	if err != nil {
		log.Printf("[WARN] can't read uploaded spreadsheet, %v", err)
		s.redirectFlash(w, r, "", url.Values{"err": {"bad-file"}})
		return
	}
	if err = s.ledger.Restore(r.Context(), access, jobs); err != nil {
		log.Printf("[WARN] can't restore jobs, %v", err)
		s.redirectFlash(w, r, "", flashError(err))
		return
	}
	log.Printf("[INFO] restored %d jobs from spreadsheet", len(jobs))
	s.redirectFlash(w, r, "", url.Values{"msg": {"imported"}, "n": {strconv.Itoa(len(jobs))}})
}

// redirectFlash redirects back to the dashboard tab with flash parameters
func (s *Server) redirectFlash(w http.ResponseWriter, r *http.Request, tab string, params url.Values) {
	if params == nil {
		params = url.Values{}
	}
	if tab != "" {
		params.Set("tab", tab)
	}
	target := s.url("/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	log.Printf("[ERROR] %s: %v", msg, err)
	http.Error(w, msg, http.StatusInternalServerError)
}

// flash messages by code
var flashMessages = map[string]string{
	"created":            "İş kaydedildi",
	"personnel-added":    "Personel eklendi",
	"personnel-removed":  "Personel silindi",
	"forbidden":          "Bu işlem için yönetici girişi gerekli",
	"empty-customer":     "Müşteri adı boş olamaz",
	"invalid-date":       "Geçersiz tarih",
	"invalid-status":     "Geçersiz durum",
	"negative-duration":  "Süre negatif olamaz",
	"demo-disabled":      "Demo işleri kapalı",
	"personnel-disabled": "Personel yönetimi kapalı",
	"empty-name":         "İsim boş olamaz",
	"invalid-name":       "İsim virgül içeremez",
	"personnel-exists":   "Bu isim zaten kayıtlı",
	"invalid-team":       "Geçersiz ekip",
	"invalid":            "Geçersiz form verisi",
	"no-file":            "Dosya seçilmedi",
	"bad-file":           "Dosya okunamadı",
	"failed":             "İşlem başarısız",
}

// errorCodes maps ledger errors to flash codes and API statuses
var errorCodes = []struct {
	err    error
	code   string
	status int
}{
	{ledger.ErrForbidden, "forbidden", http.StatusForbidden},
	{ledger.ErrEmptyCustomer, "empty-customer", http.StatusBadRequest},
	{ledger.ErrInvalidDate, "invalid-date", http.StatusBadRequest},
	{ledger.ErrInvalidStatus, "invalid-status", http.StatusBadRequest},
	{ledger.ErrNegativeDuration, "negative-duration", http.StatusBadRequest},
	{ledger.ErrDemoDisabled, "demo-disabled", http.StatusBadRequest},
	{ledger.ErrPersonnelDisabled, "personnel-disabled", http.StatusNotFound},
	{ledger.ErrEmptyName, "empty-name", http.StatusBadRequest},
	{ledger.ErrInvalidName, "invalid-name", http.StatusBadRequest},
	{ledger.ErrPersonnelExists, "personnel-exists", http.StatusConflict},
	{ledger.ErrInvalidTeam, "invalid-team", http.StatusBadRequest},
}

// errorCode returns flash code and http status for the error
func errorCode(err error) (code string, status int) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.status
		}
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return "invalid", http.StatusBadRequest
	}
	return "failed", http.StatusInternalServerError
}

func flashError(err error) url.Values {
	code, _ := errorCode(err)
	return url.Values{"err": {code}}
}

// flashFromQuery makes the flash text from redirect parameters
func flashFromQuery(q url.Values) (text string, isErr bool) {
	if code := q.Get("err"); code != "" {
		if msg, ok := flashMessages[code]; ok {
			return msg, true
		}
		return flashMessages["failed"], true
	}
	switch code := q.Get("msg"); code {
	case "":
		return "", false
	case "saved":
		text = fmt.Sprintf("Değişiklikler kaydedildi: %s güncellendi, %s silindi", numParam(q, "u"), numParam(q, "d"))
		if n := numParam(q, "s"); n != "0" {
			text += fmt.Sprintf(", %s satır geçersiz olduğu için atlandı", n)
		}
		return text, false
	case "imported":
		return fmt.Sprintf("%s kayıt içe aktarıldı", numParam(q, "n")), false
	default:
		return flashMessages[code], false
	}
}

func numParam(q url.Values, name string) string {
	n, err := strconv.Atoi(q.Get(name))
	if err != nil {
		return "0"
	}
	return strconv.Itoa(n)
}

package web

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/cozummakina/montaj/app/enums"
	"github.com/cozummakina/montaj/app/ledger"
	"github.com/cozummakina/montaj/app/persistence"
)

// APIJob represents a job in JSON API response
type APIJob struct {
	ID           int64    `json:"id"`
	Date         string   `json:"date"`
	Customer     string   `json:"customer"`
	Address      string   `json:"address"`
	Description  string   `json:"description"`
	Note         string   `json:"note"`
	Status       string   `json:"status"`
	JobType      string   `json:"job_type"`
	Team         []string `json:"team"`
	DurationDays int      `json:"duration_days"`
	Group        string   `json:"group"`
	Wait         string   `json:"wait"`
}

// APIJobsResponse is the JSON response for /api/v1/jobs
type APIJobsResponse struct {
	Jobs      []APIJob  `json:"jobs"`
	Order     string    `json:"order"`
	Timestamp time.Time `json:"timestamp"`
}

// APINewJob is the JSON request for job creation
type APINewJob struct {
	Date        string   `json:"date"`
	Customer    string   `json:"customer"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	Note        string   `json:"note"`
	JobType     string   `json:"job_type"`
	Team        []string `json:"team"`
}

// APIBulkResponse is the JSON response for bulk edits
type APIBulkResponse struct {
	Updated int             `json:"updated"`
	Deleted int             `json:"deleted"`
	Skipped []APISkippedJob `json:"skipped"`
}

// APISkippedJob describes a row rejected by bulk edit
type APISkippedJob struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// APICustomerCount is the pending job count of a customer
type APICustomerCount struct {
	Customer string `json:"customer"`
	Pending  int    `json:"pending"`
}

func (s *Server) toAPIJob(j persistence.Job) APIJob {
	team := j.Team
	if team == nil {
		team = []string{}
	}
	jobType := j.JobType
	if !s.ledger.Capabilities().SupportsDemo {
		jobType = enums.JobTypeNormal
	}
	return APIJob{
		ID:           j.ID,
		Date:         j.Date,
		Customer:     j.Customer,
		Address:      j.Address,
		Description:  j.Description,
		Note:         j.Note,
		Status:       j.Status.String(),
		JobType:      j.JobType.String(),
		Team:         team,
		DurationDays: j.DurationDays,
		Group:        enums.GroupOf(jobType, j.Status).String(),
		Wait:         s.ledger.ElapsedWait(j),
	}
}

// handleAPIJobs returns all jobs, ordered by ?order=asc|desc or the sort cookie
func (s *Server) handleAPIJobs(w http.ResponseWriter, r *http.Request) {
	order := s.getSortOrder(r)
	if v := r.URL.Query().Get("order"); v != "" {
		o, err := enums.ParseSortOrder(v)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "invalid order")
			return
		}
		order = o
	}

	jobs, err := s.ledger.ListJobs(r.Context(), order)
	if err != nil {
		log.Printf("[ERROR] failed to list jobs: %v", err)
		s.writeJSONError(w, http.StatusInternalServerError, "failed to load jobs")
		return
	}
	resp := APIJobsResponse{Jobs: make([]APIJob, 0, len(jobs)), Order: order.String(), Timestamp: s.now()}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, s.toAPIJob(j))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPICreateJob creates a job from JSON request
func (s *Server) handleAPICreateJob(w http.ResponseWriter, r *http.Request) {
	var req APINewJob
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	jobType, err := enums.ParseJobTypeInput(req.JobType)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.ledger.CreateJob(r.Context(), accessFrom(r.Context()), ledger.NewJob{Date: req.Date,
		Customer: req.Customer, Address: req.Address, Description: req.Description, Note: req.Note,
		JobType: jobType, Team: req.Team})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// handleAPIBulk applies a list of row edits
func (s *Server) handleAPIBulk(w http.ResponseWriter, r *http.Request) {
	var rows []ledger.RowEdit
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.ledger.BulkUpdate(r.Context(), accessFrom(r.Context()), rows)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	resp := APIBulkResponse{Updated: res.Updated, Deleted: res.Deleted, Skipped: []APISkippedJob{}}
	for _, e := range res.Skipped {
		resp.Skipped = append(resp.Skipped, APISkippedJob{ID: e.ID, Error: e.Err.Error()})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPISummary returns pending job counts per customer
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.SummaryByCustomer(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	resp := make([]APICustomerCount, 0, len(summary))
	for _, c := range summary {
		resp = append(resp, APICustomerCount{Customer: c.Customer, Pending: c.Pending})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPICounts returns dashboard counters
func (s *Server) handleAPICounts(w http.ResponseWriter, r *http.Request) {
	counters, err := s.ledger.Counts(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, counters)
}

// handleAPIPersonnel returns roster names
func (s *Server) handleAPIPersonnel(w http.ResponseWriter, r *http.Request) {
	names, err := s.ledger.Personnel(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

// handleAPIPersonnelStats returns per person job counts and total days
func (s *Server) handleAPIPersonnelStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.PersonnelStats(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleAPIAddPersonnel adds a name from {"name": "..."} request
func (s *Server) handleAPIAddPersonnel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ledger.AddPersonnel(r.Context(), accessFrom(r.Context()), req.Name); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// handleAPIRemovePersonnel removes a name given in path
func (s *Server) handleAPIRemovePersonnel(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemovePersonnel(r.Context(), accessFrom(r.Context()), r.PathValue("name")); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeLedgerError writes JSON error with status matching the ledger error
func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	code, status := errorCode(err)
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] api request failed: %v", err)
		s.writeJSONError(w, status, "internal error")
		return
	}
	msg := flashMessages[code]
	if msg == "" {
		msg = err.Error()
	}
	s.writeJSONError(w, status, msg)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]string{"error": message}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[WARN] failed to encode JSON error response: %v", err)
	}
}

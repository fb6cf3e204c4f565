// Package api provides the HTTP API server for the meet operator service.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/trackmeet/engine/internal/api/middleware"
	"github.com/trackmeet/engine/internal/catalog"
	"github.com/trackmeet/engine/internal/checkin"
	"github.com/trackmeet/engine/internal/heats"
	"github.com/trackmeet/engine/internal/operator"
	"github.com/trackmeet/engine/internal/roster"
)

// setupRoutes registers every HTTP route on mux.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/", s.handleNotFound)

	// Entries
	mux.HandleFunc("POST /api/v1/entries", s.handleCreateEntry)
	mux.HandleFunc("DELETE /api/v1/entries/{id}", s.handleCancelEntry)

	// Roster import
	mux.HandleFunc("POST /api/v1/athletes/import", s.handleImportRoster)

	// Entry groups & payments
	mux.HandleFunc("POST /api/v1/entry-groups", s.handleBuildEntryGroup)
	mux.HandleFunc("POST /api/v1/entry-groups/{id}/receipt", s.handleUploadReceipt)
	mux.HandleFunc("POST /api/v1/entry-groups/{id}/approve", s.handleApprovePayment)
	mux.HandleFunc("POST /api/v1/entry-groups/{id}/reject", s.handleRejectPayment)
	mux.HandleFunc("POST /api/v1/entry-groups/{id}/force-approve",
		middleware.RequireOperatorPermission(s.operator, operator.PermissionForceApprove, s.logger)(s.handleForceApprovePayment))

	// Heat generation & bib allocation
	mux.HandleFunc("POST /api/v1/events/{id}/heats", s.handleGenerateHeats)
	mux.HandleFunc("POST /api/v1/assignments/{id}/move", s.handleMoveAssignment)
	mux.HandleFunc("POST /api/v1/meets/{id}/generate",
		middleware.RequireOperatorPermission(s.operator, operator.PermissionGenerateMeet, s.logger)(s.handleGenerateMeet))
	mux.HandleFunc("POST /api/v1/meets/{id}/bibs",
		middleware.RequireOperatorPermission(s.operator, operator.PermissionAssignBibs, s.logger)(s.handleAssignBibs))

	// Check-in & race-day state
	mux.HandleFunc("POST /api/v1/assignments/{id}/check-in", s.handleCheckIn)
	mux.HandleFunc("POST /api/v1/assignments/{id}/status", s.handleMarkStatus)
	mux.HandleFunc("GET /api/v1/meets/{id}/assignments/search", s.handleSearchAssignments)
	mux.HandleFunc("GET /api/v1/meets/{id}/rollup", s.handleHeatRollup)

	// Reports
	mux.HandleFunc("GET /api/v1/events/{id}/start-list.csv", s.handleStartListCSV)
	mux.HandleFunc("GET /api/v1/meets/{id}/export.csv", s.handleMeetCSV)
	mux.HandleFunc("GET /api/v1/meets/{id}/federation.csv", s.handleFederationCSV)
	mux.HandleFunc("GET /api/v1/heats/{id}/roll-call", s.handleRollCall)
	mux.HandleFunc("GET /api/v1/events/{id}/program", s.handleProgram)
	mux.HandleFunc("GET /api/v1/heats/{id}/result-sheet", s.handleResultSheet)
	mux.HandleFunc("GET /api/v1/meets/{id}/emergency-backup", s.handleEmergencyBackup)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("pong")); err != nil {
		s.logger.Error("failed to write ping response", slog.String("correlation_id", correlationID), slog.String("error", err.Error()))
	}
}

// handleReady responds to readiness probes with a database health check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	if s.conn == nil || s.conn.HealthCheck(r.Context()) != nil {
		s.logger.Error("storage health check failed", slog.String("correlation_id", correlationID))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))

		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var uptime string

	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	health := HealthStatus{Status: "healthy", ServiceName: "trackmeet", Version: "v1.0.0", Uptime: uptime}

	data, err := json.Marshal(health)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, InternalServerError("failed to encode health response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("the requested resource was not found"))
}

// HealthStatus represents the health check response structure.
type HealthStatus struct {
	Status      string `json:"status"`
	ServiceName string `json:"serviceName"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime,omitempty"`
}

// requestUserID resolves the acting user from the X-User-ID header, the
// convention this surface uses in place of full session auth, which is
// handled by the fronting gateway.
func requestUserID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func decodeJSON(r *http.Request, maxSize int64, dst interface{}) *ProblemDetail {
	if r.ContentLength == 0 {
		return BadRequest("request body cannot be empty")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxSize))
	if err := decoder.Decode(dst); err != nil {
		return BadRequest("invalid JSON: " + err.Error())
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// --- Entries ---

type createEntryRequest struct {
	AthleteID    string   `json:"athlete_id"`
	EventID      string   `json:"event_id"`
	Declared     float64  `json:"declared_seconds"`
	PersonalBest *float64 `json:"personal_best,omitempty"`
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	entry, err := s.entries.CreateEntry(r.Context(), req.AthleteID, req.EventID, requestUserID(r), req.Declared, req.PersonalBest)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleCancelEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.entries.CancelEntry(r.Context(), id); err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Roster import ---

type importRosterRequest struct {
	Owner        catalog.Owner   `json:"owner"`
	Rows         []roster.RawRow `json:"rows"`
	SkipExisting bool            `json:"skip_existing"`
}

func (s *Server) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	var req importRosterRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	summary, err := s.roster.BulkImportAthletes(r.Context(), req.Owner, req.Rows, req.SkipExisting)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	status := http.StatusOK
	if len(summary.Errors) > 0 {
		status = http.StatusMultiStatus

		if len(summary.Errors) == len(req.Rows) {
			status = http.StatusUnprocessableEntity
		}
	}

	writeJSON(w, status, summary)
}

// --- Entry groups & payments ---

type buildEntryGroupRequest struct {
	MeetID string `json:"meet_id"`
}

func (s *Server) handleBuildEntryGroup(w http.ResponseWriter, r *http.Request) {
	var req buildEntryGroupRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	group, err := s.payments.BuildEntryGroup(r.Context(), requestUserID(r), req.MeetID)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusCreated, group)
}

type uploadReceiptRequest struct {
	ReceiptRef  string    `json:"receipt_ref"`
	PaymentDate time.Time `json:"payment_date"`
	Amount      int64     `json:"payment_amount"`
	PayerName   string    `json:"payer_name"`
}

func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req uploadReceiptRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	payment, err := s.payments.UploadReceipt(r.Context(), id, req.ReceiptRef, req.PaymentDate, req.Amount, req.PayerName)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, payment)
}

type reviewRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleApprovePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req reviewRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	if err := s.payments.ApprovePayment(r.Context(), id, requestUserID(r), req.Note); err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRejectPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req reviewRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	if err := s.payments.RejectPayment(r.Context(), id, requestUserID(r), req.Note); err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleForceApprovePayment runs only once RequireOperatorPermission has
// authorized the presented operator key for PermissionForceApprove.
func (s *Server) handleForceApprovePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req reviewRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	opKey := middleware.GetOperatorKey(r.Context())
	reviewerID := requestUserID(r)

	if reviewerID == "" && opKey != nil {
		reviewerID = opKey.ID
	}

	if err := s.payments.ForceApprovePayment(r.Context(), id, reviewerID, true, req.Note); err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Heat generation & bib allocation ---

type generateHeatsRequest struct {
	Regenerate     bool `json:"regenerate"`
	IncludePending bool `json:"include_pending"`
	HeatCount      *int `json:"heat_count,omitempty"`
	Force          bool `json:"force"`
}

func (s *Server) handleGenerateHeats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req generateHeatsRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	opts := heats.GenerateOptions{
		Regenerate: req.Regenerate, IncludePending: req.IncludePending, HeatCount: req.HeatCount, Force: req.Force,
	}

	generated, err := s.heats.GenerateHeats(r.Context(), id, opts)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, generated)
}

type moveAssignmentRequest struct {
	TargetHeatID string `json:"target_heat_id"`
	Lane         *int   `json:"lane,omitempty"`
}

func (s *Server) handleMoveAssignment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req moveAssignmentRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	if req.TargetHeatID == "" {
		WriteErrorResponse(w, r, s.logger, BadRequest("target_heat_id is required"))

		return
	}

	if err := s.heats.MoveAssignment(r.Context(), id, req.TargetHeatID, req.Lane); err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type generateMeetRequest struct {
	Regenerate bool `json:"regenerate"`
}

func (s *Server) handleGenerateMeet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req generateMeetRequest
	if r.ContentLength > 0 {
		if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
			WriteErrorResponse(w, r, s.logger, problem)

			return
		}
	}

	summary, err := s.heats.GenerateMeet(r.Context(), id, req.Regenerate)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	status := http.StatusOK
	if len(summary.Errors) > 0 {
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, summary)
}

func (s *Server) handleAssignBibs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	summary, err := s.bibs.AssignBibs(r.Context(), id)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// --- Check-in & race-day state ---

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	checkedInAt, noop, err := s.checkin.CheckIn(r.Context(), id)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"checked_in_at": checkedInAt,
		"noop":          noop,
	})
}

type markStatusRequest struct {
	Status checkin.Status `json:"status"`
}

func (s *Server) handleMarkStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req markStatusRequest
	if problem := decodeJSON(r, s.config.MaxRequestSize, &req); problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	if err := s.checkin.MarkStatus(r.Context(), id, req.Status); err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchAssignments(w http.ResponseWriter, r *http.Request) {
	meetID := r.PathValue("id")
	query := r.URL.Query().Get("q")

	results, err := s.checkin.SearchAssignments(r.Context(), meetID, query)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleHeatRollup(w http.ResponseWriter, r *http.Request) {
	heatID := r.URL.Query().Get("heat_id")
	if heatID == "" {
		WriteErrorResponse(w, r, s.logger, BadRequest("heat_id query parameter is required"))

		return
	}

	rollup, err := s.checkin.HeatRollup(r.Context(), heatID)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, rollup)
}

// --- Reports ---

func (s *Server) handleStartListCSV(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	meetID := r.URL.Query().Get("meet_id")

	data, err := s.reports.EmitStartListCSV(r.Context(), meetID, eventID, requestUserID(r))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeCSVResponse(w, "start-list.csv", data)
}

func (s *Server) handleMeetCSV(w http.ResponseWriter, r *http.Request) {
	meetID := r.PathValue("id")

	data, err := s.reports.EmitMeetCSV(r.Context(), meetID, requestUserID(r))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeCSVResponse(w, "meet-export.csv", data)
}

func (s *Server) handleFederationCSV(w http.ResponseWriter, r *http.Request) {
	meetID := r.PathValue("id")

	data, err := s.reports.EmitFederationCSV(r.Context(), meetID, requestUserID(r))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeCSVResponse(w, "federation.csv", data)
}

func (s *Server) handleRollCall(w http.ResponseWriter, r *http.Request) {
	heatID := r.PathValue("id")
	meetID := r.URL.Query().Get("meet_id")

	rows, err := s.reports.EmitRollCall(r.Context(), meetID, heatID, requestUserID(r))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	meetID := r.URL.Query().Get("meet_id")

	program, err := s.reports.EmitProgram(r.Context(), meetID, eventID, requestUserID(r))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, program)
}

func (s *Server) handleResultSheet(w http.ResponseWriter, r *http.Request) {
	heatID := r.PathValue("id")
	meetID := r.URL.Query().Get("meet_id")

	rows, err := s.reports.EmitResultSheet(r.Context(), meetID, heatID, requestUserID(r))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleEmergencyBackup(w http.ResponseWriter, r *http.Request) {
	meetID := r.PathValue("id")

	sections, err := s.reports.EmitEmergencyBackup(r.Context(), meetID, requestUserID(r))
	if err != nil {
		WriteErrorResponse(w, r, s.logger, errorToProblem(err))

		return
	}

	writeJSON(w, http.StatusOK, sections)
}

func writeCSVResponse(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

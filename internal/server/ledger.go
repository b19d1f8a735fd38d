package server

import (
	"net/http"

	"github.com/tallyhour/tallyhour/internal/ledger"
	"github.com/tallyhour/tallyhour/internal/middleware"
	"github.com/tallyhour/tallyhour/internal/timer"
)

// LedgerHandler owns timer, time-entry, and reporting endpoints.
type LedgerHandler struct {
	cascade *ledger.Cascade
	timers  *timer.Timers
}

// NewLedgerHandler constructs the handler.
func NewLedgerHandler(cascade *ledger.Cascade, timers *timer.Timers) *LedgerHandler {
	return &LedgerHandler{cascade: cascade, timers: timers}
}

// Register attaches ledger routes to the mux. All routes require auth.
func (h *LedgerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /timers/start", h.handleStart)
	mux.HandleFunc("POST /timers/stop", h.handleStop)
	mux.HandleFunc("GET /timers/active", h.handleActive)
	mux.HandleFunc("GET /projects/{id}/timers", h.handleProjectTimers)

	mux.HandleFunc("POST /entries", h.handleCreateEntry)
	mux.HandleFunc("POST /entries/{id}/complete", h.handleCompleteEntry)
	mux.HandleFunc("GET /entries", h.handleListEntries)

	mux.HandleFunc("GET /projects/{id}/transactions", h.handleTransactions)
	mux.HandleFunc("GET /pay-periods", h.handlePayPeriods)
	mux.HandleFunc("GET /earnings", h.handleUserEarnings)
	mux.HandleFunc("GET /projects/{id}/earnings", h.handleProjectEarnings)
	mux.HandleFunc("GET /summaries", h.handleUserSummaries)
	mux.HandleFunc("GET /projects/{id}/summaries", h.handleProjectSummaries)
}

type startTimerRequest struct {
	ProjectID   string `json:"project_id"`
	Description string `json:"description"`
}

func (h *LedgerHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startTimerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.timers.StartTimer(r.Context(), middleware.GetUserID(r.Context()), req.ProjectID, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "timer started", t)
}

func (h *LedgerHandler) handleStop(w http.ResponseWriter, r *http.Request) {
	entry, err := h.timers.StopTimer(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "timer stopped", entry)
}

func (h *LedgerHandler) handleActive(w http.ResponseWriter, r *http.Request) {
	t, err := h.timers.GetActiveTimerByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", t)
}

func (h *LedgerHandler) handleProjectTimers(w http.ResponseWriter, r *http.Request) {
	timers, err := h.timers.GetActiveTimersByProject(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", timers)
}

type createEntryRequest struct {
	ProjectID   string  `json:"project_id"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

func (h *LedgerHandler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := h.cascade.CreateTimeEntry(r.Context(), req.ProjectID,
		middleware.GetUserID(r.Context()), req.Hours, req.Description, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, "time entry created", entry)
}

func (h *LedgerHandler) handleCompleteEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.cascade.CompleteTimeEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "time entry completed", entry)
}

func (h *LedgerHandler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.cascade.GetTimeEntriesByUser(r.Context(),
		middleware.GetUserID(r.Context()), r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", entries)
}

func (h *LedgerHandler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.cascade.GetBudgetTransactions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", txs)
}

func (h *LedgerHandler) handlePayPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.cascade.GetPayPeriods(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", periods)
}

func (h *LedgerHandler) handleUserEarnings(w http.ResponseWriter, r *http.Request) {
	earnings, err := h.cascade.GetUserEarnings(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", earnings)
}

func (h *LedgerHandler) handleProjectEarnings(w http.ResponseWriter, r *http.Request) {
	earnings, err := h.cascade.GetProjectEarnings(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", earnings)
}

func (h *LedgerHandler) handleUserSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.cascade.GetUserFinancialSummaries(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", summaries)
}

func (h *LedgerHandler) handleProjectSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.cascade.GetProjectFinancialSummaries(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, "ok", summaries)
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"kharcha/internal/auth"
	"kharcha/internal/core"
	"kharcha/internal/services"
	"kharcha/internal/storage"
)

// expensePage is one page of the current-month table, together with the
// running totals over the whole partition.
type expensePage struct {
	Expenses   []expenseDTO `json:"expenses"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
	TotalCount int          `json:"totalCount"`
	Totals     totalsDTO    `json:"totals"`
}

func (s *Server) session(r *http.Request) auth.Session {
	session, _ := auth.FromContext(r.Context())
	return session
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)

	list, err := s.expenses.ListExpenses(r.Context(), session.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// The table shows the current calendar month only; past months live in
	// the report's month groups.
	report := core.BuildReport(list, time.Now().UTC())
	current := report.CurrentMonth

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	page = core.ClampPage(page, len(current), s.pageSize)

	writeJSON(w, http.StatusOK, expensePage{
		Expenses:   toDTOs(core.Paginate(current, page, s.pageSize)),
		Page:       page,
		TotalPages: core.TotalPages(len(current), s.pageSize),
		TotalCount: len(current),
		Totals:     toTotalsDTO(report.Totals),
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)

	in, ok := s.decodeExpense(w, r)
	if !ok {
		return
	}

	created, err := s.expenses.AddExpense(r.Context(), session.UserID, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDTO(created))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	id := r.PathValue("id")

	in, ok := s.decodeExpense(w, r)
	if !ok {
		return
	}

	if err := s.expenses.UpdateExpense(r.Context(), session.UserID, id, in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)

	if err := s.expenses.DeleteExpense(r.Context(), session.UserID, r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)

	list, err := s.expenses.ListExpenses(r.Context(), session.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(core.BuildReport(list, time.Now().UTC())))
}

// decodeExpense parses and validates the request body, writing the error
// response itself when the payload is unusable.
func (s *Server) decodeExpense(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, bool) {
	var req expenseRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body is not valid JSON.")
		return core.ExpenseInput{}, false
	}

	in, ferrs := req.toInput()
	if ferrs != nil {
		writeFieldErrors(w, ferrs)
		return core.ExpenseInput{}, false
	}
	return in, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ferrs core.FieldErrors
	switch {
	case errors.As(err, &ferrs):
		writeFieldErrors(w, ferrs)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found.")
	case errors.Is(err, services.ErrUserIDRequired):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, services.ErrOperationFailed):
		slog.ErrorContext(r.Context(), "Expense operation failed", "error", err)
		writeError(w, http.StatusBadGateway, "The operation could not be completed. Please try again.")
	default:
		slog.ErrorContext(r.Context(), "Unexpected handler error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

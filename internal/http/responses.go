package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chirender "github.com/go-chi/render"

	"ledger/internal/auth"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/render"
	"ledger/internal/services"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      core.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type userSummaryResponse struct {
	userResponse
	Transactions int64  `json:"transactions"`
	TotalCredit  string `json:"total_credit"`
	TotalDebit   string `json:"total_debit"`
}

type transactionResponse struct {
	ID          int64                `json:"id"`
	UserID      int64                `json:"user_id"`
	Amount      string               `json:"amount"`
	AmountCents int64                `json:"amount_cents"`
	Kind        core.TransactionKind `json:"kind"`
	Description string               `json:"description"`
	CreatedAt   time.Time            `json:"created_at"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Amount:      t.Amount.Decimal().StringFixed(2),
		AmountCents: t.Amount.Cents,
		Kind:        t.Kind,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func newTransactionList(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

type statementLine struct {
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

type statementResponse struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	DueDate     string          `json:"due_date"`
	Lines       []statementLine `json:"lines"`
	TotalDue    string          `json:"total_due"`
	Footer      string          `json:"footer"`
	Formats     []string        `json:"formats"`
}

func newStatementResponse(v render.View) statementResponse {
	resp := statementResponse{
		Name:        v.Header.Name,
		Email:       v.Header.Email,
		PeriodStart: v.Header.PeriodStart,
		PeriodEnd:   v.Header.PeriodEnd,
		DueDate:     v.Header.DueDate,
		Lines:       make([]statementLine, 0, len(v.Lines)),
		TotalDue:    v.TotalDue,
		Footer:      v.Footer,
		Formats:     render.Formats(),
	}
	for _, l := range v.Lines {
		resp.Lines = append(resp.Lines, statementLine(l))
	}
	return resp
}

func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	chirender.Status(r, status)
	chirender.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respond(w, r, status, errorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldOperation, op,
		log.FieldError, err)
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

// errorStatus maps domain errors to HTTP statuses. Zero means unexpected.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrDescriptionLong),
		errors.Is(err, auth.ErrEmptyPassword),
		errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrEmptyPassword),
		errors.Is(err, services.ErrIncorrectPassword):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrAdminProtected):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, render.ErrUnknownFormat):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrEmailTaken):
		return http.StatusConflict
	default:
		return 0
	}
}

// fail writes the mapped status for known errors and a logged 500 otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	if status == 0 {
		s.internalError(w, r, op, err)
		return
	}
	msg := err.Error()
	var dateErr *core.InvalidDateError
	if errors.As(err, &dateErr) {
		msg = dateErr.Error()
	}
	writeError(w, r, status, msg)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// statementDate reads ?date=YYYY-MM-DD, defaulting to today in the billing zone.
func (s *Server) statementDate(r *http.Request) (core.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return s.statements.Today(), nil
	}
	return core.ParseDate(raw)
}

func writeDocument(w http.ResponseWriter, doc render.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

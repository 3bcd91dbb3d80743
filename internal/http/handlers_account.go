package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
	"ledger/internal/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.ledger.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errorStatus(err) == http.StatusUnauthorized {
			log.FromContext(ctx).WarnContext(ctx, "Login failed", log.FieldOperation, log.OpLogin)
		}
		s.fail(w, r, log.OpLogin, err)
		return
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		s.internalError(w, r, "issue token", err)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Login succeeded", log.NewFields().WithUser(u).WithOperation(log.OpLogin).ToSlice()...)
	respond(w, r, http.StatusOK, loginResponse{Token: token, User: newUserResponse(u)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	respond(w, r, http.StatusOK, newUserResponse(u))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.ChangePassword(r.Context(), u.ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		s.fail(w, r, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMyTransactions(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	s.writeTransactions(w, r, u.ID)
}

func (s *Server) handleMyStatement(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	s.writeStatement(w, r, u)
}

func (s *Server) handleMyStatementDownload(w http.ResponseWriter, r *http.Request) {
	u, _ := currentUser(r.Context())
	s.writeStatementDocument(w, r, u)
}

func (s *Server) writeTransactions(w http.ResponseWriter, r *http.Request, userID int64) {
	txs, err := s.ledger.ListTransactions(r.Context(), userID)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	respond(w, r, http.StatusOK, newTransactionList(txs))
}

func (s *Server) writeStatement(w http.ResponseWriter, r *http.Request, u core.User) {
	today, err := s.statementDate(r)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	v, err := s.statements.View(r.Context(), u, today)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	respond(w, r, http.StatusOK, newStatementResponse(v))
}

func (s *Server) writeStatementDocument(w http.ResponseWriter, r *http.Request, u core.User) {
	ctx := r.Context()
	today, err := s.statementDate(r)
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}
	format := chi.URLParam(r, "format")
	doc, err := s.statements.Export(ctx, u, today, format)
	if err != nil {
		s.fail(w, r, log.OpRender, err)
		return
	}
	writeDocument(w, doc)
}


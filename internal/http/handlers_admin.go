package http

import (
	"net/http"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type addTransactionRequest struct {
	// Amount is a decimal string such as "12.50" or "12,50".
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.ledger.UserSummaries(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	out := make([]userSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, userSummaryResponse{
			userResponse: newUserResponse(sum.User),
			Transactions: sum.Transactions,
			TotalCredit:  sum.TotalCredit.Decimal().StringFixed(2),
			TotalDebit:   sum.TotalDebit.Decimal().StringFixed(2),
		})
	}
	respond(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, err := core.ParseRole(req.Role)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	u, err := s.ledger.CreateUser(ctx, services.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	respond(w, r, http.StatusCreated, newUserResponse(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.DeleteUser(r.Context(), id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.writeTransactions(w, r, id)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req addTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	kind, err := core.ParseTransactionKind(req.Kind)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}

	t, err := s.ledger.AddTransaction(ctx, id, amount, kind, req.Description)
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(ctx).InfoContext(ctx, "Transaction recorded", log.NewFields().WithTransaction(t).ToSlice()...)
	respond(w, r, http.StatusCreated, newTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	txID, err := pathID(r, "txID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), userID, txID); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// targetUser loads the account named in the path.
func (s *Server) targetUser(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	id, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return core.User{}, false
	}
	u, err := s.ledger.GetUser(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return core.User{}, false
	}
	return u, true
}

func (s *Server) handleUserStatement(w http.ResponseWriter, r *http.Request) {
	if u, ok := s.targetUser(w, r); ok {
		s.writeStatement(w, r, u)
	}
}

func (s *Server) handleUserStatementDownload(w http.ResponseWriter, r *http.Request) {
	if u, ok := s.targetUser(w, r); ok {
		s.writeStatementDocument(w, r, u)
	}
}

package transport

import (
	"errors"
	"net/http"

	"github.com/ganot/hourbank/internal/domain/ledger"
	"github.com/ganot/hourbank/internal/domain/project"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type extendRequest struct {
	AdditionalHours decimal.Decimal `json:"additionalHours"`
	Reason          string          `json:"reason"`
}

func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.services.Ledger.Extend(r.Context(), ledger.ExtendRequest{
		ProjectID:       chi.URLParam(r, "id"),
		AdditionalHours: req.AdditionalHours,
		Reason:          req.Reason,
		Actor:           actorOf(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": res.Project,
		"extension": map[string]any{
			"additionalHours": res.AdditionalHours,
			"newTotal":        res.NewTotal,
			"availableHours":  res.AvailableHours,
			"transactionId":   res.TransactionID,
		},
	})
}

type adjustRequest struct {
	Adjustment decimal.Decimal `json:"adjustment"`
	Reason     string          `json:"reason"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.services.Ledger.Adjust(r.Context(), ledger.AdjustRequest{
		ProjectID: chi.URLParam(r, "id"),
		Delta:     req.Adjustment,
		Reason:    req.Reason,
		Actor:     actorOf(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": res.Project,
		"adjustment": map[string]any{
			"hours":          res.Hours,
			"balanceBefore":  res.BalanceBefore,
			"balanceAfter":   res.BalanceAfter,
			"availableHours": res.AvailableHours,
			"transactionId":  res.TransactionID,
		},
	})
}

type hoursRequest struct {
	HoursToAdd *decimal.Decimal `json:"hoursToAdd"`
}

// handleConsumeRelease consumes non-negative hoursToAdd and releases
// negative ones. Running out of budget is reported as a bad request here.
func (s *Server) handleConsumeRelease(w http.ResponseWriter, r *http.Request) {
	var req hoursRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.HoursToAdd == nil {
		s.writeError(w, r, project.Validationf("hoursToAdd must be a number"))
		return
	}

	id := chi.URLParam(r, "id")
	var (
		proj *project.Project
		err  error
	)
	if req.HoursToAdd.IsNegative() {
		proj, err = s.services.Ledger.Release(r.Context(), id, req.HoursToAdd.Neg(), actorOf(r))
	} else {
		proj, err = s.services.Ledger.Consume(r.Context(), id, *req.HoursToAdd, actorOf(r))
	}
	if err != nil {
		if errors.Is(err, project.ErrConflict) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: project.Message(err), Code: "insufficient_hours"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": proj})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := queryPage(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.services.Ledger.Transactions(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": page.Transactions,
		"pagination":   pagination{Total: page.Total, Limit: page.Limit, Offset: page.Offset},
	})
}

func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	report, err := s.services.Ledger.VerifyChain(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

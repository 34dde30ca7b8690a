package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgerdash/internal/core"
	"ledgerdash/internal/services"
)

func workspaceID(r *http.Request) string {
	return chi.URLParam(r, "workspaceID")
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	loc, err := parseLocation(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	from, err := parseOptionalTime(q, "from", loc, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseOptionalTime(q, "to", loc, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := parsePositiveInt(q, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	size, err := parsePositiveInt(q, "page_size")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ws, err := s.dash.Workspace(ctx, workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := core.TransactionFilter{
		WorkspaceID: ws.ID,
		From:        from,
		To:          to,
		WalletIDs:   parseList(q, "wallet_id"),
		CategoryIDs: parseList(q, "category_id"),
		UserIDs:     parseList(q, "user_id"),
		View:        resolveView(r, s.defaultConfidential),
		Page:        page,
		PageSize:    size,
	}
	result, err := s.dash.Transactions(ctx, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, size = s.dash.NormalizePage(page, size)
	out := transactionPageJSON{
		Data:     make([]transactionJSON, 0, len(result.Data)),
		Count:    result.Count,
		Page:     page,
		PageSize: size,
	}
	for _, tx := range result.Data {
		out.Data = append(out.Data, newTransactionJSON(tx, ws.Currency))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}

	req := services.CreateTransactionRequest{
		WorkspaceID:            workspaceID(r),
		Amount:                 p.Get("amount"),
		Description:            p.Get("description"),
		CategoryID:             p.Get("category_id"),
		WalletID:               p.Get("wallet_id"),
		UserID:                 p.Get("user_id"),
		IsAmountConfidential:   p.Bool("is_amount_confidential"),
		IsCategoryConfidential: p.Bool("is_category_confidential"),
	}
	if v := p.Get("taken_at"); v != "" {
		t, err := parseTime(v, time.UTC, false)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.TakenAt = t
	}

	id, err := s.ledger.CreateTransaction(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+id)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), workspaceID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	loc, err := parseLocation(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	asOf, err := parseOptionalTime(q, "as_of", loc, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if asOf.IsZero() {
		asOf = s.now().In(loc)
	}

	ws, err := s.dash.Workspace(ctx, workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := s.dash.Balance(ctx, ws.ID, asOf, resolveView(r, s.defaultConfidential))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceJSON{
		AsOf:         asOf.Format(time.RFC3339),
		BalanceMinor: balance.Minor,
		Balance:      core.FormatMoney(balance, ws.Currency),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.dash.Categories(r.Context(), workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	type categoryJSON struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color,omitempty"`
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.dash.Wallets(r.Context(), workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	type walletJSON struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]walletJSON, 0, len(wallets))
	for _, wl := range wallets {
		out = append(out, walletJSON{ID: wl.ID, Name: wl.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

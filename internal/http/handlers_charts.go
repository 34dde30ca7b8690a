package http

import (
	"net/http"
	"time"

	"ledgerdash/internal/analytics"
	"ledgerdash/internal/core"
	"ledgerdash/internal/services"
)

// chartRequest parses the shared chart parameters and loads the workspace
// for its currency.
func (s *Server) chartRequest(r *http.Request) (services.ChartRequest, core.Workspace, error) {
	q := r.URL.Query()
	window, err := parseWindow(q, s.now())
	if err != nil {
		return services.ChartRequest{}, core.Workspace{}, err
	}
	g, err := parseGranularity(q)
	if err != nil {
		return services.ChartRequest{}, core.Workspace{}, err
	}
	ws, err := s.dash.Workspace(r.Context(), workspaceID(r))
	if err != nil {
		return services.ChartRequest{}, core.Workspace{}, err
	}
	return services.ChartRequest{
		WorkspaceID: ws.ID,
		Window:      window,
		Granularity: g,
		View:        resolveView(r, s.defaultConfidential),
	}, ws, nil
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	req, ws, err := s.chartRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.dash.Buckets(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	income, expense := analytics.Totals(res.Buckets)
	out := bucketsJSON{
		Granularity:        req.Granularity,
		Currency:           ws.Currency.Code,
		Buckets:            make([]bucketJSON, 0, len(res.Buckets)),
		TotalIncome:        core.FormatApprox(income, ws.Currency, res.HasRedactedAmounts),
		TotalExpense:       core.FormatApprox(expense, ws.Currency, res.HasRedactedAmounts),
		HasRedactedAmounts: res.HasRedactedAmounts,
		Skipped:            res.Skipped,
	}
	for _, b := range res.Buckets {
		out.Buckets = append(out.Buckets, newBucketJSON(b, ws.Currency))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBalanceTrend(w http.ResponseWriter, r *http.Request) {
	req, ws, err := s.chartRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trend, err := s.dash.BalanceTrend(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	approx := trend.HasRedactedAmounts
	out := balanceTrendJSON{
		Granularity:        req.Granularity,
		Currency:           ws.Currency.Code,
		Points:             make([]balancePointJSON, 0, len(trend.Points)),
		Opening:            core.FormatApprox(trend.Opening, ws.Currency, approx),
		Closing:            core.FormatApprox(trend.Anchor, ws.Currency, approx),
		HasRedactedAmounts: approx,
	}
	for _, p := range trend.Points {
		out.Points = append(out.Points, balancePointJSON{
			Date:         p.Date.Format(time.RFC3339),
			BalanceMinor: p.Balance.Minor,
			Balance:      core.FormatApprox(p.Balance, ws.Currency, approx),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleShares(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := parseWindow(q, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ws, err := s.dash.Workspace(r.Context(), workspaceID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.dash.Shares(r.Context(), services.SharesRequest{
		WorkspaceID: ws.ID,
		Window:      window,
		View:        resolveView(r, s.defaultConfidential),
		GroupBy:     q.Get("group_by"),
		Type:        q.Get("type"),
		Hidden:      parseHidden(q),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := sharesJSON{
		Currency:           ws.Currency.Code,
		Shares:             make([]shareJSON, 0, len(res.Shares)),
		HasRedactedAmounts: res.HasRedactedAmounts,
	}
	for _, sh := range res.Shares {
		out.Shares = append(out.Shares, newShareJSON(sh, ws.Currency))
	}
	writeJSON(w, http.StatusOK, out)
}

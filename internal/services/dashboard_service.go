package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerdash/internal/analytics"
	"ledgerdash/internal/cache"
	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
)

var (
	ErrInvalidGroupBy   = errors.New("group_by must be category or wallet")
	ErrInvalidShareType = errors.New("type must be expense or income")
)

// DashboardStore is the read side of the store.
type DashboardStore interface {
	ledger.TransactionLister
	ledger.BalanceReader
	ledger.WorkspaceReader
	ledger.TaxonomyReader
}

// DashboardConfig tunes paging, caching and the share thresholds.
type DashboardConfig struct {
	PageSizeMax          int
	CacheSize            int
	CacheTTL             time.Duration
	MinSegmentPercentage float64
	OtherDisplayFloor    float64
}

// ChartRequest selects the transactions feeding a chart.
type ChartRequest struct {
	WorkspaceID string
	Window      core.Window
	Granularity core.Granularity
	View        core.ViewOptions
}

// SharesRequest selects a category or wallet breakdown.
type SharesRequest struct {
	WorkspaceID string
	Window      core.Window
	View        core.ViewOptions
	GroupBy     string // category | wallet
	Type        string // expense | income
	Hidden      map[string]bool
}

// BalanceTrend is the reconstructed balance series with the buckets it
// was derived from.
type BalanceTrend struct {
	Points             []core.BalancePoint
	Buckets            []core.Bucket
	Anchor             core.Money
	Opening            core.Money
	HasRedactedAmounts bool
}

// ShareResult is a share breakdown. HasRedactedAmounts is set when some
// matching transactions had their amount withheld.
type ShareResult struct {
	Shares             []core.CategoryShare
	HasRedactedAmounts bool
}

// DashboardService feeds the chart endpoints.
type DashboardService struct {
	store  DashboardStore
	cfg    DashboardConfig
	pages  *cache.Loader[core.TransactionPage]
	logger *log.Logger
}

func NewDashboardService(store DashboardStore, cfg DashboardConfig, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.PageSizeMax <= 0 {
		cfg.PageSizeMax = ledger.MaxPageSize
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	return &DashboardService{
		store:  store,
		cfg:    cfg,
		pages:  cache.NewLoader[core.TransactionPage](cfg.CacheSize, cfg.CacheTTL),
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// PageCache exposes the page cache for periodic cleanup.
func (s *DashboardService) PageCache() cache.Cleaner {
	return s.pages.Cache()
}

// InvalidateWorkspace drops every cached page of the workspace.
func (s *DashboardService) InvalidateWorkspace(workspaceID string) {
	n := s.pages.Invalidate(workspaceID + ":")
	if n > 0 {
		s.logger.Debug("Invalidated cached pages", log.FieldWorkspaceID, workspaceID, "entries", n)
	}
}

func (s *DashboardService) Workspace(ctx context.Context, id string) (core.Workspace, error) {
	ws, err := s.store.GetWorkspace(ctx, id)
	if err != nil {
		return core.Workspace{}, fmt.Errorf("load workspace: %w", err)
	}
	return ws, nil
}

func (s *DashboardService) Categories(ctx context.Context, workspaceID string) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *DashboardService) Wallets(ctx context.Context, workspaceID string) ([]core.Wallet, error) {
	wallets, err := s.store.ListWallets(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return wallets, nil
}

// Balance returns the workspace balance at asOf.
func (s *DashboardService) Balance(ctx context.Context, workspaceID string, asOf time.Time, view core.ViewOptions) (core.Money, error) {
	m, err := s.store.BalanceAsOf(ctx, workspaceID, asOf, view)
	if err != nil {
		return core.Money{}, fmt.Errorf("load balance: %w", err)
	}
	return m, nil
}

// NormalizePage applies the paging defaults and the configured maximum.
func (s *DashboardService) NormalizePage(page, size int) (int, int) {
	return ledger.NormalizePage(page, size, s.cfg.PageSizeMax)
}

// Transactions returns one page of transactions. Identical queries within
// the cache TTL share one store round trip.
func (s *DashboardService) Transactions(ctx context.Context, filter core.TransactionFilter) (core.TransactionPage, error) {
	filter.Page, filter.PageSize = s.NormalizePage(filter.Page, filter.PageSize)
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		return core.TransactionPage{}, core.ErrInvalidWindow
	}

	page, err := s.pages.Get(ctx, pageKey(filter), func(ctx context.Context) (core.TransactionPage, error) {
		return s.store.ListTransactions(ctx, filter)
	})
	if err != nil {
		return core.TransactionPage{}, fmt.Errorf("fetch transactions: %w", err)
	}
	return page, nil
}

// Buckets groups the window's transactions into calendar periods.
func (s *DashboardService) Buckets(ctx context.Context, req ChartRequest) (analytics.BucketResult, error) {
	if err := validateChart(req); err != nil {
		return analytics.BucketResult{}, err
	}
	txs, err := s.windowTransactions(ctx, req.WorkspaceID, req.Window, req.View)
	if err != nil {
		return analytics.BucketResult{}, err
	}
	return s.bucket(ctx, txs, req)
}

// BalanceTrend reconstructs the closing balance of every bucket in the
// window, anchored on the store balance at the window end.
func (s *DashboardService) BalanceTrend(ctx context.Context, req ChartRequest) (BalanceTrend, error) {
	if err := validateChart(req); err != nil {
		return BalanceTrend{}, err
	}

	var (
		txs    []core.Transaction
		anchor core.Money
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.windowTransactions(gctx, req.WorkspaceID, req.Window, req.View)
		return err
	})
	g.Go(func() error {
		var err error
		anchor, err = s.Balance(gctx, req.WorkspaceID, req.Window.End, req.View)
		return err
	})
	if err := g.Wait(); err != nil {
		return BalanceTrend{}, err
	}

	res, err := s.bucket(ctx, txs, req)
	if err != nil {
		return BalanceTrend{}, err
	}
	points := analytics.ReconstructBalances(anchor, req.Window.End, res.Buckets)
	s.checkReplay(ctx, req.WorkspaceID, points, res.Buckets)

	return BalanceTrend{
		Points:             points,
		Buckets:            res.Buckets,
		Anchor:             anchor,
		Opening:            analytics.OpeningBalance(points, res.Buckets),
		HasRedactedAmounts: res.HasRedactedAmounts,
	}, nil
}

// Shares breaks the window's expenses or income down by category or wallet.
func (s *DashboardService) Shares(ctx context.Context, req SharesRequest) (ShareResult, error) {
	if err := req.Window.Validate(); err != nil {
		return ShareResult{}, err
	}
	opts := analytics.AggregateOptions{
		MinSegmentPercentage: s.cfg.MinSegmentPercentage,
		OtherDisplayFloor:    s.cfg.OtherDisplayFloor,
		Hidden:               req.Hidden,
	}
	switch strings.ToLower(req.Type) {
	case "", "expense":
		opts.Filter = analytics.ExpensesOnly
	case "income":
		opts.Filter = analytics.IncomeOnly
	default:
		return ShareResult{}, ErrInvalidShareType
	}

	var key analytics.KeyFunc
	switch strings.ToLower(req.GroupBy) {
	case "", "category":
		key = analytics.ByCategory
	case "wallet":
		key = analytics.ByWallet
	default:
		return ShareResult{}, ErrInvalidGroupBy
	}

	txs, err := s.windowTransactions(ctx, req.WorkspaceID, req.Window, req.View)
	if err != nil {
		return ShareResult{}, err
	}
	res := ShareResult{Shares: analytics.AggregateByGroup(txs, key, opts)}
	for _, tx := range txs {
		if tx.IsRedacted() {
			res.HasRedactedAmounts = true
			break
		}
	}
	s.logger.DebugContext(ctx, "Shares aggregated",
		log.FieldWorkspaceID, req.WorkspaceID,
		log.FieldOperation, log.OpAggregate,
		"groups", len(res.Shares))
	return res, nil
}

func (s *DashboardService) bucket(ctx context.Context, txs []core.Transaction, req ChartRequest) (analytics.BucketResult, error) {
	res, err := analytics.BucketTransactions(txs, req.Window, req.Granularity)
	if err != nil {
		return analytics.BucketResult{}, err
	}
	if res.Skipped > 0 {
		s.logger.WarnContext(ctx, "Skipped transactions with unparseable dates",
			log.FieldWorkspaceID, req.WorkspaceID,
			log.FieldOperation, log.OpBucket,
			log.FieldSkipped, res.Skipped)
	}
	if res.Dropped > 0 {
		s.logger.DebugContext(ctx, "Dropped transactions outside the window",
			log.FieldWorkspaceID, req.WorkspaceID,
			log.FieldDropped, res.Dropped)
	}
	return res, nil
}

// checkReplay replays the buckets forward from the first point and logs a
// mismatch with the reconstructed series.
func (s *DashboardService) checkReplay(ctx context.Context, workspaceID string, points []core.BalancePoint, buckets []core.Bucket) {
	if len(buckets) == 0 || len(points) != len(buckets) {
		return
	}
	replayed := analytics.ReplayForward(points[0].Balance, buckets)
	for i := range replayed {
		if replayed[i] != points[i].Balance {
			s.logger.ErrorContext(ctx, "Balance reconstruction does not replay",
				log.FieldWorkspaceID, workspaceID,
				log.FieldOperation, log.OpBalance,
				"index", i,
				"expected_minor", points[i].Balance.Minor,
				"replayed_minor", replayed[i].Minor)
			return
		}
	}
}

// windowTransactions loads every page of transactions inside w.
func (s *DashboardService) windowTransactions(ctx context.Context, workspaceID string, w core.Window, view core.ViewOptions) ([]core.Transaction, error) {
	filter := core.TransactionFilter{
		WorkspaceID: workspaceID,
		From:        w.Start,
		To:          w.End,
		View:        view,
		PageSize:    s.cfg.PageSizeMax,
	}
	var out []core.Transaction
	for filter.Page = 1; ; filter.Page++ {
		page, err := s.Transactions(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Data...)
		if len(page.Data) == 0 || len(out) >= page.Count {
			return out, nil
		}
	}
}

func validateChart(req ChartRequest) error {
	return analytics.ValidateWindow(req.Window, req.Granularity)
}

// pageKey starts with the workspace ID so InvalidateWorkspace can drop
// every page of a workspace by prefix.
func pageKey(f core.TransactionFilter) string {
	var b strings.Builder
	b.WriteString(f.WorkspaceID)
	b.WriteByte(':')
	b.WriteString(timeKey(f.From))
	b.WriteByte('|')
	b.WriteString(timeKey(f.To))
	b.WriteByte('|')
	b.WriteString(strings.Join(f.WalletIDs, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(f.CategoryIDs, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(f.UserIDs, ","))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(f.View.IncludeConfidential))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(f.Page))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(f.PageSize))
	return b.String()
}

func timeKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

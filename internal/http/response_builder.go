package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledgerdash/internal/core"
	"ledgerdash/internal/ledger"
	"ledgerdash/internal/log"
	"ledgerdash/internal/services"
)

type errorBody struct {
	Error string `json:"error"`
}

type transactionJSON struct {
	ID          string  `json:"id"`
	TakenAt     *string `json:"taken_at"`
	Description string  `json:"description"`
	// AmountMinor and Amount are null when the amount is withheld.
	AmountMinor            *int64  `json:"amount_minor"`
	Amount                 *string `json:"amount"`
	CategoryID             string  `json:"category_id,omitempty"`
	CategoryName           string  `json:"category_name,omitempty"`
	CategoryColor          string  `json:"category_color,omitempty"`
	WalletID               string  `json:"wallet_id,omitempty"`
	WalletName             string  `json:"wallet_name,omitempty"`
	UserID                 string  `json:"user_id,omitempty"`
	IsAmountConfidential   bool    `json:"is_amount_confidential"`
	IsCategoryConfidential bool    `json:"is_category_confidential"`
}

type transactionPageJSON struct {
	Data     []transactionJSON `json:"data"`
	Count    int               `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

type bucketJSON struct {
	PeriodKey          string `json:"period_key"`
	Start              string `json:"start"`
	End                string `json:"end"`
	TotalIncomeMinor   int64  `json:"total_income_minor"`
	TotalExpenseMinor  int64  `json:"total_expense_minor"`
	NetMinor           int64  `json:"net_minor"`
	TotalIncome        string `json:"total_income"`
	TotalExpense       string `json:"total_expense"`
	Net                string `json:"net"`
	TransactionCount   int    `json:"transaction_count"`
	HasRedactedAmounts bool   `json:"has_redacted_amounts"`
}

type bucketsJSON struct {
	Granularity        core.Granularity `json:"granularity"`
	Currency           string           `json:"currency"`
	Buckets            []bucketJSON     `json:"buckets"`
	TotalIncome        string           `json:"total_income"`
	TotalExpense       string           `json:"total_expense"`
	HasRedactedAmounts bool             `json:"has_redacted_amounts"`
	Skipped            int              `json:"skipped"`
}

type balancePointJSON struct {
	Date         string `json:"date"`
	BalanceMinor int64  `json:"balance_minor"`
	Balance      string `json:"balance"`
}

type balanceTrendJSON struct {
	Granularity        core.Granularity   `json:"granularity"`
	Currency           string             `json:"currency"`
	Points             []balancePointJSON `json:"points"`
	Opening            string             `json:"opening"`
	Closing            string             `json:"closing"`
	HasRedactedAmounts bool               `json:"has_redacted_amounts"`
}

type shareJSON struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	ValueMinor int64   `json:"value_minor"`
	Value      string  `json:"value"`
	Percentage float64 `json:"percentage"`
	Hidden     bool    `json:"hidden"`
}

type sharesJSON struct {
	Currency           string      `json:"currency"`
	Shares             []shareJSON `json:"shares"`
	HasRedactedAmounts bool        `json:"has_redacted_amounts"`
}

type balanceJSON struct {
	AsOf         string `json:"as_of"`
	BalanceMinor int64  `json:"balance_minor"`
	Balance      string `json:"balance"`
}

func newTransactionJSON(tx core.Transaction, c core.Currency) transactionJSON {
	out := transactionJSON{
		ID:                     tx.ID,
		Description:            tx.Description,
		CategoryID:             tx.CategoryID,
		CategoryName:           tx.CategoryName,
		CategoryColor:          tx.CategoryColor,
		WalletID:               tx.WalletID,
		WalletName:             tx.WalletName,
		UserID:                 tx.UserID,
		IsAmountConfidential:   tx.IsAmountConfidential,
		IsCategoryConfidential: tx.IsCategoryConfidential,
	}
	if !tx.TakenAt.IsZero() {
		s := tx.TakenAt.Format(time.RFC3339)
		out.TakenAt = &s
	}
	if tx.Amount != nil {
		minor := tx.Amount.Minor
		s := core.FormatMoney(*tx.Amount, c)
		out.AmountMinor, out.Amount = &minor, &s
	}
	return out
}

func newBucketJSON(b core.Bucket, c core.Currency) bucketJSON {
	approx := b.HasRedactedAmounts
	return bucketJSON{
		PeriodKey:          b.PeriodKey,
		Start:              b.Start.Format(time.RFC3339),
		End:                b.End.Format(time.RFC3339),
		TotalIncomeMinor:   b.TotalIncome.Minor,
		TotalExpenseMinor:  b.TotalExpense.Minor,
		NetMinor:           b.Net().Minor,
		TotalIncome:        core.FormatApprox(b.TotalIncome, c, approx),
		TotalExpense:       core.FormatApprox(b.TotalExpense, c, approx),
		Net:                core.FormatApprox(b.Net(), c, approx),
		TransactionCount:   b.TransactionCount,
		HasRedactedAmounts: approx,
	}
}

func newShareJSON(s core.CategoryShare, c core.Currency) shareJSON {
	return shareJSON{
		ID:         s.ID,
		Name:       s.Name,
		Color:      s.Color,
		ValueMinor: s.Value.Minor,
		Value:      core.FormatMoney(s.Value, c),
		Percentage: s.Percentage,
		Hidden:     s.Hidden,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to the response status: bad input 400, unknown
// workspace or transaction 404, anything from the store 502.
func statusFor(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re), services.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// writeError renders err as {"error": message}. Store failures are logged
// in full and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldStatusCode, status,
			log.FieldPath, r.URL.Path)
		msg = "the transaction store could not serve this request"
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err.Error(), log.FieldStatusCode, status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

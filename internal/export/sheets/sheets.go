// Package sheets mirrors ledger transactions into a Google Sheets
// spreadsheet, one tab per year ("2025 Ledger").
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerdash/internal/core"
	"ledgerdash/internal/log"
)

// Header is written to every new year tab.
var Header = []any{"ID", "Date", "Description", "Amount", "Category", "Wallet"}

// Credentials selects the service account used to reach the API. JSON wins
// over File.
type Credentials struct {
	JSON string
	File string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	baseName      string
	logger        *log.Logger
}

// New builds an Exporter authenticated with a service account.
func New(ctx context.Context, spreadsheetID, baseName string, creds Credentials, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	credentialsJSON := []byte(strings.TrimSpace(creds.JSON))
	if len(credentialsJSON) == 0 {
		if creds.File == "" {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
		}
		b, err := os.ReadFile(creds.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	}
	return NewWithOptions(ctx, spreadsheetID, baseName, logger,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions builds an Exporter from raw client options.
func NewWithOptions(ctx context.Context, spreadsheetID, baseName string, logger *log.Logger, opts ...goption.ClientOption) (*Exporter, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if baseName = strings.TrimSpace(baseName); baseName == "" {
		baseName = "Ledger"
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		baseName:      baseName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// Row renders a transaction as a sheet row. Redacted amounts stay empty.
func Row(tx core.Transaction, c core.Currency) []any {
	amount := ""
	if tx.Amount != nil {
		amount = tx.Amount.Decimal(c).StringFixed(c.Exponent)
	}
	return []any{
		tx.ID,
		tx.TakenAt.Format("2006-01-02"),
		tx.Description,
		amount,
		tx.CategoryName,
		tx.WalletName,
	}
}

// AppendTransaction appends tx to the tab for its year, creating the tab
// when needed, and returns the updated range.
func (e *Exporter) AppendTransaction(ctx context.Context, tx core.Transaction, c core.Currency) (string, error) {
	tab := yearPrefixedName(e.baseName, tx.TakenAt.Year())
	if err := e.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{Row(tx, c)}}
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, tab+"!A:F", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", tab, err)
	}
	ref := tab
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Transaction exported", log.FieldTxID, tx.ID, log.FieldSheetsRef, ref)
	return ref, nil
}

// DeleteTransaction removes the row holding id from every ledger tab.
// Missing rows are not an error.
func (e *Exporter) DeleteTransaction(ctx context.Context, id string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}

	for _, sh := range ledgerTabs(ss.Sheets, e.baseName) {
		title := sh.Properties.Title
		resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, title+"!A:A").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", title, err)
		}
		row := findRow(resp.Values, id)
		if row < 0 {
			continue
		}
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
				SheetId:    sh.Properties.SheetId,
				Dimension:  "ROWS",
				StartIndex: int64(row),
				EndIndex:   int64(row + 1),
			}},
		}}}
		if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete row %d in %s: %w", row+1, title, err)
		}
		e.logger.InfoContext(ctx, "Exported transaction removed", log.FieldTxID, id, log.FieldSheetsRef, title)
		return nil
	}
	return nil
}

func (e *Exporter) ensureTab(ctx context.Context, title string) error {
	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, title+"!A1:F1", &gsheet.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header to %s: %w", title, err)
	}
	return nil
}

// findRow returns the zero-based index of the row whose first cell is id,
// or -1.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i
		}
	}
	return -1
}

// ledgerTabs returns the tabs named "<year> <base>".
func ledgerTabs(sheets []*gsheet.Sheet, base string) []*gsheet.Sheet {
	var out []*gsheet.Sheet
	for _, sh := range sheets {
		if sh.Properties == nil {
			continue
		}
		title := sh.Properties.Title
		if len(title) > 5 && title[4] == ' ' && title[5:] == base {
			if _, err := strconv.Atoi(title[:4]); err == nil {
				out = append(out, sh)
			}
		}
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

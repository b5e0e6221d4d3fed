package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"toolcrib/internal/domain"
	"toolcrib/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	inventorySheet    = "Inventory"
	transactionsSheet = "Transactions"
)

var (
	inventoryHeader    = []interface{}{"Location", "Item", "Quantity", "Notes"}
	transactionsHeader = []interface{}{"Item", "Action", "User", "Timestamp", "Qty"}
)

// SheetsService mirrors the inventory into a Google spreadsheet with an
// Inventory sheet (full snapshot) and a Transactions sheet (append-only).
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
}

var _ domain.SheetsWriter = (*SheetsService)(nil)

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return &SheetsService{service: srv, spreadsheetID: spreadsheetID}, nil
}

// TestConnection reads the first cell of the inventory sheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, inventorySheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// GetServiceAccountEmail is the address the spreadsheet must be shared with.
func GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// ReplaceInventorySheet overwrites the inventory sheet with the given rows.
func (s *SheetsService) ReplaceInventorySheet(ctx context.Context, items []models.InventoryItem) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, inventorySheet+"!A2:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear inventory sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(items)+1)
	values = append(values, inventoryHeader)
	for _, it := range items {
		values = append(values, inventoryRowValues(it))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, inventorySheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update inventory sheet: %w", err)
	}
	return nil
}

func (s *SheetsService) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return fmt.Errorf("transaction is nil")
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, transactionsSheet+"!A:A",
		&sheets.ValueRange{Values: [][]interface{}{transactionRowValues(tx)}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// EnsureHeaders writes the header row of the transactions sheet.
func (s *SheetsService) EnsureHeaders(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, transactionsSheet+"!A1",
		&sheets.ValueRange{Values: [][]interface{}{transactionsHeader}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write transaction headers: %w", err)
	}
	return nil
}

func inventoryRowValues(it models.InventoryItem) []interface{} {
	return []interface{}{it.Location, it.Item, it.Quantity, it.Notes}
}

func transactionRowValues(tx *models.Transaction) []interface{} {
	return []interface{}{tx.Item, tx.Action, tx.User, models.FormatTimestamp(tx.Timestamp), tx.Qty}
}

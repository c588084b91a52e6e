package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dtmoney/internal/core"
	"dtmoney/internal/log"
	"dtmoney/internal/sheets"
)

var _ sheets.TransactionSheet = (*Client)(nil)

const defaultSheetName = "Transactions"

type Config struct {
	SpreadsheetID string
	SheetName     string
	// ServiceAccountJSON takes precedence over ServiceAccountFile.
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService wraps an existing service, e.g. one pointed at a test
// endpoint.
func NewWithService(svc *gsheet.Service, cfg Config, logger *log.Logger) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = defaultSheetName
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: id,
		sheetName:     name,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// AppendTransaction appends one row. Redelivered events find the row
// already present and do nothing.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	values, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	if sheets.FindRow(values, tx.ID) >= 0 {
		c.logger.DebugContext(ctx, "Row already exported", "id", tx.ID)
		return nil
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{sheets.Row(tx)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to %s: %w", c.sheetName, err)
	}

	c.logger.InfoContext(ctx, "Exported transaction row", "id", tx.ID, "sheet", c.sheetName)
	return nil
}

// DeleteTransaction removes the row whose column A equals id.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	values, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	row := sheets.FindRow(values, id)
	if row < 0 {
		c.logger.DebugContext(ctx, "No row to delete", "id", id)
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
					// the first sheet and the first row are both index 0
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", row+1, c.sheetName, err)
	}

	c.logger.InfoContext(ctx, "Deleted transaction row", "id", id, "row", row+1, "sheet", c.sheetName)
	return nil
}

func (c *Client) idColumn(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", c.sheetName, err)
	}
	return resp.Values, nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

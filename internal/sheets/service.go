// Package sheets appends flattened structured data to a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"docforms/internal/logger"
	"docforms/internal/schema"
)

var (
	ErrInvalidURL     = errors.New("invalid Google Sheets URL format")
	ErrNoCredentials  = errors.New("neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set")
	ErrNothingToWrite = errors.New("no rows to export")
)

var headers = []interface{}{"Document", "Filename", "Template", "Path", "Value", "Exported"}

const (
	columnRange = "A:F"
	headerRange = "A1:F1"
)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
	now           func() time.Time
}

// Export is the structured data of one (document, template) pair.
type Export struct {
	DocumentID   string
	Filename     string
	TemplateID   string
	TemplateName string
	Rows         []schema.Row
}

// NewSheetsService creates a Sheets client for the spreadsheet at sheetURL.
// Without client options it authenticates with the service account named by
// GOOGLE_APPLICATION_CREDENTIALS or held in GOOGLE_CREDENTIALS.
func NewSheetsService(ctx context.Context, sheetURL string, opts ...option.ClientOption) (*Service, error) {
	const op = "NewSheetsService"

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(opts) == 0 {
		creds, err := loadCredentials()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		jwt, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("%s: parse service account: %w", op, err)
		}
		opts = append(opts, option.WithHTTPClient(jwt.Client(ctx)))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: create sheets client: %w", op, err)
	}
	return &Service{
		sheetsService: svc,
		spreadsheetID: spreadsheetID,
		log:           logger.WithComponent("sheets").With().Str("spreadsheet_id", spreadsheetID).Logger(),
		now:           time.Now,
	}, nil
}

func loadCredentials() ([]byte, error) {
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", credsFile, err)
		}
		return b, nil
	}
	if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		return []byte(credsJSON), nil
	}
	return nil, ErrNoCredentials
}

var spreadsheetPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", ErrInvalidURL
	}
	return matches[1], nil
}

// SpreadsheetID returns the ID parsed from the sheet URL.
func (s *Service) SpreadsheetID() string { return s.spreadsheetID }

// WriteStructuredData appends one row per leaf of exp to sheetName, creating
// the sheet and its header row when missing.
func (s *Service) WriteStructuredData(ctx context.Context, sheetName string, exp Export) (int, error) {
	const op = "WriteStructuredData"

	if len(exp.Rows) == 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNothingToWrite)
	}

	log := s.log.With().Str("sheet", sheetName).Str("document_id", exp.DocumentID).Str("template_id", exp.TemplateID).Logger()

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	values := rowValues(exp, s.now())
	if _, err := s.sheetsService.Spreadsheets.Values.Append(s.spreadsheetID, sheetName+"!"+columnRange,
		&sheets.ValueRange{Values: values}).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("%s: append rows: %w", op, err)
	}

	log.Info().Int("rows", len(values)).Msg("Exported structured data")
	return len(values), nil
}

func rowValues(exp Export, at time.Time) [][]interface{} {
	template := exp.TemplateName
	if template == "" {
		template = exp.TemplateID
	}
	exported := at.Format("2006-01-02 15:04:05")

	values := make([][]interface{}, 0, len(exp.Rows))
	for _, row := range exp.Rows {
		values = append(values, []interface{}{
			exp.DocumentID,
			exp.Filename,
			template,
			row.Path,
			row.Value,
			exported,
		})
	}
	return values
}

// ensureSheetWithHeaders creates sheetName when absent and writes the header
// row when A1 is empty.
func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	sheetID, found, err := s.lookupSheet(ctx, sheetName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		if sheetID, err = s.addSheet(ctx, sheetName); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	rng := sheetName + "!" + headerRange
	current, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: read header row: %w", op, err)
	}
	if len(current.Values) > 0 && len(current.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Writing header row")
	header := &sheets.ValueRange{Values: [][]interface{}{headers}}
	if _, err := s.sheetsService.Spreadsheets.Values.Update(s.spreadsheetID, rng, header).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: write header row: %w", op, err)
	}

	if err := s.styleHeaderRow(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Int64("sheet_id", sheetID).Msg("Header row left unstyled")
	}
	return nil
}

func (s *Service) lookupSheet(ctx context.Context, title string) (int64, bool, error) {
	doc, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

func (s *Service) addSheet(ctx context.Context, title string) (int64, error) {
	s.log.Info().Str("sheet", title).Msg("Creating worksheet")
	add := &sheets.Request{AddSheet: &sheets.AddSheetRequest{
		Properties: &sheets.SheetProperties{Title: title},
	}}
	resp, err := s.batch(ctx, add)
	if err != nil {
		return 0, fmt.Errorf("add sheet %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
		return 0, nil
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// styleHeaderRow bolds and shades row 1 and fits the export columns.
func (s *Service) styleHeaderRow(ctx context.Context, sheetID int64) error {
	width := int64(len(headers))
	bold := &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
		Range: &sheets.GridRange{SheetId: sheetID, EndRowIndex: 1, EndColumnIndex: width},
		Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
			TextFormat:      &sheets.TextFormat{Bold: true},
			BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
		}},
		Fields: "userEnteredFormat(textFormat,backgroundColor)",
	}}
	fit := &sheets.Request{AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
		Dimensions: &sheets.DimensionRange{SheetId: sheetID, Dimension: "COLUMNS", EndIndex: width},
	}}
	if _, err := s.batch(ctx, bold, fit); err != nil {
		return fmt.Errorf("styleHeaderRow: %w", err)
	}
	return nil
}

func (s *Service) batch(ctx context.Context, reqs ...*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	body := &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}
	return s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, body).Context(ctx).Do()
}

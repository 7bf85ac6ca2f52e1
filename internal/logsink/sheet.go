package logsink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/campuskb/campuskb/internal/pkg/googleauth"
)

type sheetConfig struct {
	CredentialsFile string `json:"credentials_file"`
	SpreadsheetID   string `json:"spreadsheet_id"`
	Range           string `json:"range"`
}

type sheetSink struct {
	cfg sheetConfig

	initOnce sync.Once
	service  *sheets.Service
	initErr  error
}

func init() {
	Register("sheet", createSheetSink)
}

func createSheetSink(args interface{}) (ISink, error) {
	cfg := &sheetConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheet sink spreadsheet_id is required")
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = "credentials.json"
	}
	if cfg.Range == "" {
		cfg.Range = "A1"
	}
	return &sheetSink{cfg: *cfg}, nil
}

func (s *sheetSink) getService(ctx context.Context) (*sheets.Service, error) {
	s.initOnce.Do(func() {
		creds, err := googleauth.CredentialsFromFile(ctx, s.cfg.CredentialsFile, sheets.SpreadsheetsScope)
		if err != nil {
			s.initErr = err
			return
		}
		s.service, s.initErr = sheets.NewService(ctx, option.WithCredentials(creds))
	})
	return s.service, s.initErr
}

func (s *sheetSink) Append(ctx context.Context, ts time.Time, role string, question string, answer string) error {
	service, err := s.getService(ctx)
	if err != nil {
		return err
	}
	row := &sheets.ValueRange{
		Values: [][]interface{}{
			{ts.Format("2006-01-02 15:04:05"), role, question, answer},
		},
	}
	_, err = service.Spreadsheets.Values.
		Append(s.cfg.SpreadsheetID, s.cfg.Range, row).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append sheet row: %w", err)
	}
	return nil
}

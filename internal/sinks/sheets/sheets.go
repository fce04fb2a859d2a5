// Package sheets appends relayed calls to a Google Sheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Headers is the first row of the log sheet. Columns after Classification
// are filled in by hand.
var Headers = []interface{}{"Time of call", "CallerID", "Classification", "Agent Name", "Status", "Notes"}

const (
	headerCells = "A1:F1"
	dataCells   = "A:F"
)

type Config struct {
	SpreadsheetID   string
	Tab             string
	CredentialsFile string
	CredentialsJSON string
}

type Sink struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	tab           string
	headerChecked atomic.Bool
}

// New builds a sink. Without extra options it authenticates with the
// service account from CredentialsJSON, falling back to CredentialsFile.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Sink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if cfg.Tab == "" {
		cfg.Tab = "Sheet1"
	}
	if len(opts) == 0 {
		opts = credentialOptions(cfg)
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &Sink{svc: svc, spreadsheetID: cfg.SpreadsheetID, tab: cfg.Tab}, nil
}

func credentialOptions(cfg Config) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if strings.TrimSpace(cfg.CredentialsJSON) != "" {
		return append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	return append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
}

func (s *Sink) Name() string { return "sheets" }

func (s *Sink) Link() string {
	return "https://docs.google.com/spreadsheets/d/" + s.spreadsheetID
}

// Append writes one call row below the existing data.
func (s *Sink) Append(ctx context.Context, at, callerID, label string) error {
	if err := s.ensureHeader(ctx); err != nil {
		return err
	}
	row := &sheetsapi.ValueRange{Values: [][]interface{}{{at, callerID, label, "", "", ""}}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.cells(dataCells), row).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append row: %w", err)
	}
	log.Debug().Str("caller_id", callerID).Str("tab", s.tab).Msg("appended row to sheet")
	return nil
}

// ensureHeader writes the header row into an empty sheet. A sheet whose
// first row differs is left alone; rows below it may be real data.
func (s *Sink) ensureHeader(ctx context.Context) error {
	if s.headerChecked.Load() {
		return nil
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.cells(headerCells)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: read header row: %w", err)
	}

	switch {
	case len(resp.Values) == 0 || len(resp.Values[0]) == 0:
		hdr := &sheetsapi.ValueRange{Values: [][]interface{}{Headers}}
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.cells(headerCells), hdr).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("sheets: write header row: %w", err)
		}
		log.Info().Str("tab", s.tab).Msg("created header row in sheet")
	case !headerMatches(resp.Values[0]):
		log.Warn().Interface("found", resp.Values[0]).Interface("want", Headers).
			Str("tab", s.tab).Msg("sheet header row differs; leaving it as is")
	}
	s.headerChecked.Store(true)
	return nil
}

func headerMatches(row []interface{}) bool {
	if len(row) != len(Headers) {
		return false
	}
	for i, v := range row {
		if fmt.Sprint(v) != Headers[i] {
			return false
		}
	}
	return true
}

func (s *Sink) cells(a1 string) string {
	return "'" + strings.ReplaceAll(s.tab, "'", "''") + "'!" + a1
}

package client

import (
	"context"
	"fmt"

	"google.golang.org/api/sheets/v4"
)

// Red-font detection thresholds: rows whose first cells are written in
// red mark inactive entities in the master spreadsheet.
const (
	redMin   = 0.7
	greenMax = 0.3
	blueMax  = 0.3
)

// formatCheckColumns is how many leading cells of a row are inspected
// for the red marker (group, company, CNPJ).
const formatCheckColumns = 3

// SheetsClient reads the reference spreadsheet: plain values plus the
// formatting pass that detects inactive rows.
type SheetsClient struct {
	srv           *sheets.Service
	spreadsheetID string
}

func NewSheetsClient(srv *sheets.Service, spreadsheetID string) *SheetsClient {
	return &SheetsClient{srv: srv, spreadsheetID: spreadsheetID}
}

func (c *SheetsClient) ReadRange(ctx context.Context, readRange string) ([][]string, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets values.get %s: %w", readRange, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadInactiveRows fetches cell-level formatting for the range and
// reports the 0-indexed rows whose any of the first three cells uses a
// red font. Callers treat errors as "keep everything".
func (c *SheetsClient) ReadInactiveRows(ctx context.Context, readRange string) (map[int]bool, error) {
	resp, err := c.srv.Spreadsheets.Get(c.spreadsheetID).
		Ranges(readRange).
		IncludeGridData(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("sheets formatting get %s: %w", readRange, err)
	}

	inactive := make(map[int]bool)
	if len(resp.Sheets) == 0 || len(resp.Sheets[0].Data) == 0 {
		return inactive, nil
	}

	for idx, row := range resp.Sheets[0].Data[0].RowData {
		limit := len(row.Values)
		if limit > formatCheckColumns {
			limit = formatCheckColumns
		}
		for _, cell := range row.Values[:limit] {
			if isRedFont(cell) {
				inactive[idx] = true
				break
			}
		}
	}
	return inactive, nil
}

func isRedFont(cell *sheets.CellData) bool {
	if cell == nil || cell.EffectiveFormat == nil || cell.EffectiveFormat.TextFormat == nil {
		return false
	}
	color := cell.EffectiveFormat.TextFormat.ForegroundColor
	if color == nil {
		return false
	}
	return color.Red > redMin && color.Green < greenMax && color.Blue < blueMax
}

package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/taxbasehub/fiscal-audit/dto"
	"github.com/taxbasehub/fiscal-audit/utils"
)

// SpreadsheetReader is the registry's view of the master spreadsheet.
// ReadInactiveRows is best effort: it reports the 0-indexed rows whose
// formatting marks the entity as inactive (red font), and callers must
// tolerate it failing.
type SpreadsheetReader interface {
	ReadRange(ctx context.Context, readRange string) ([][]string, error)
	ReadInactiveRows(ctx context.Context, readRange string) (map[int]bool, error)
}

// Spreadsheet columns within the configured range (D2:M): group,
// company name, CNPJ, then state (L) and municipal (M) registrations.
const (
	colGroup     = 0
	colName      = 1
	colTaxID     = 2
	colStateReg  = 8
	colMunicipal = 9
	rowWidth     = 10
)

// digitRunPattern picks out identifier-sized digit runs; anything under
// five digits is noise (page numbers, dates).
var digitRunPattern = regexp.MustCompile(`\d{5,}`)

var identifierStripper = strings.NewReplacer(".", "", "-", "", "/", "")

// ReferenceRegistry loads the entity master list once per run and
// resolves entities from whatever identifier a document happens to
// carry: CNPJ, state registration or municipal registration all map to
// the same record. Immutable after LoadData, so workers share it
// without locking.
type ReferenceRegistry struct {
	reader    SpreadsheetReader
	readRange string
	firmTaxID string
	logger    *logrus.Logger

	lookup   map[string]*dto.EntityRecord
	entities []*dto.EntityRecord
}

func NewReferenceRegistry(reader SpreadsheetReader, readRange, firmTaxID string, logger *logrus.Logger) *ReferenceRegistry {
	return &ReferenceRegistry{
		reader:    reader,
		readRange: readRange,
		firmTaxID: utils.CleanDigits(firmTaxID),
		logger:    logger,
		lookup:    make(map[string]*dto.EntityRecord),
	}
}

// LoadData reads the configured range, drops inactive (red font) rows,
// and indexes every non-empty identifier of each remaining entity into
// one flat lookup map. An empty or unreadable sheet is a fatal error:
// running with no registry would mark every file UNKNOWN.
func (r *ReferenceRegistry) LoadData(ctx context.Context) error {
	rows, err := r.reader.ReadRange(ctx, r.readRange)
	if err != nil {
		return fmt.Errorf("reading reference sheet: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("reference sheet range %s is empty", r.readRange)
	}

	inactive, err := r.reader.ReadInactiveRows(ctx, r.readRange)
	if err != nil {
		// Formatting metadata is a filter, not a requirement.
		r.logger.WithField("error", err.Error()).
			Warn("could not read formatting metadata, keeping all rows")
		inactive = map[int]bool{}
	}

	r.lookup = make(map[string]*dto.EntityRecord)
	r.entities = nil
	skippedInactive := 0
	secondaryKeys := 0

	for idx, row := range rows {
		if len(row) < 3 {
			continue
		}
		if inactive[idx] {
			skippedInactive++
			continue
		}

		padded := make([]string, rowWidth)
		copy(padded, row)

		taxID := utils.CleanDigits(padded[colTaxID])
		if taxID == "" {
			continue
		}

		record := &dto.EntityRecord{
			Group:                 padded[colGroup],
			Name:                  padded[colName],
			TaxID:                 taxID,
			StateRegistration:     utils.CleanDigits(padded[colStateReg]),
			MunicipalRegistration: utils.CleanDigits(padded[colMunicipal]),
		}
		r.entities = append(r.entities, record)

		r.lookup[taxID] = record
		if record.StateRegistration != "" {
			r.lookup[record.StateRegistration] = record
			secondaryKeys++
		}
		if record.MunicipalRegistration != "" {
			r.lookup[record.MunicipalRegistration] = record
			secondaryKeys++
		}
	}

	if len(r.entities) == 0 {
		return fmt.Errorf("reference sheet yielded no active entities")
	}

	r.logger.WithFields(logrus.Fields{
		"entities":       len(r.entities),
		"secondary_keys": secondaryKeys,
		"inactive_rows":  skippedInactive,
	}).Info("reference registry indexed")
	return nil
}

// SmartIdentifyCompany scans the full document text for any trace of a
// known entity: every digit run of five or more characters is looked up
// against the flat index. Among the distinct entities matched, the
// first one that is not the audit firm wins; a firm-only match returns
// the firm; no match returns (nil, "").
func (r *ReferenceRegistry) SmartIdentifyCompany(text string) (*dto.EntityRecord, string) {
	if text == "" {
		return nil, ""
	}

	cleaned := identifierStripper.Replace(text)

	var matches []*dto.EntityRecord
	seen := make(map[string]bool)
	for _, token := range digitRunPattern.FindAllString(cleaned, -1) {
		record, ok := r.lookup[token]
		if !ok || seen[record.TaxID] {
			continue
		}
		seen[record.TaxID] = true
		matches = append(matches, record)
	}

	if len(matches) == 0 {
		return nil, ""
	}

	for _, m := range matches {
		if m.TaxID != r.firmTaxID {
			return m, m.TaxID
		}
	}
	return matches[0], matches[0].TaxID
}

package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"

	"github.com/taxbasehub/fiscal-audit/dto"
)

// statusManualOK marks records fixed by a human through the admin API.
const statusManualOK = "MANUAL_OK"

// BigQueryLedger is the ledger store: streaming append for pipeline
// inserts, parameterized DML for the admin surface. Deletion never
// happens: discarding inserts a tombstone row into the discard table
// and every read anti-joins against it on (file_id, timestamp).
type BigQueryLedger struct {
	client       *bigquery.Client
	ledgerTable  string
	discardTable string
	logger       *logrus.Logger
}

func NewBigQueryLedger(client *bigquery.Client, ledgerTable, discardTable string, logger *logrus.Logger) *BigQueryLedger {
	return &BigQueryLedger{
		client:       client,
		ledgerTable:  ledgerTable,
		discardTable: discardTable,
		logger:       logger,
	}
}

// tableRef resolves a fully-qualified "project.dataset.table" ID to a
// handle usable with the streaming API.
func (l *BigQueryLedger) tableRef(fullID string) (*bigquery.Table, error) {
	parts := strings.Split(fullID, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("table id %q is not project.dataset.table", fullID)
	}
	return l.client.DatasetInProject(parts[0], parts[1]).Table(parts[2]), nil
}

// Insert appends one reconciliation outcome. Concurrent inserts are
// safe: every row is complete and independent.
func (l *BigQueryLedger) Insert(ctx context.Context, record *dto.LedgerRecord) error {
	table, err := l.tableRef(l.ledgerTable)
	if err != nil {
		return err
	}
	if err := table.Inserter().Put(ctx, record); err != nil {
		return fmt.Errorf("ledger streaming insert: %w", err)
	}
	return nil
}

// QueryRecentIDs snapshots the file IDs processed within the trailing
// window. The pipeline treats the result as immutable for the run.
func (l *BigQueryLedger) QueryRecentIDs(ctx context.Context, windowDays int) (map[string]bool, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	q := l.client.Query(fmt.Sprintf(
		"SELECT DISTINCT file_id FROM `%s` WHERE processing_timestamp >= @cutoff", l.ledgerTable))
	q.Parameters = []bigquery.QueryParameter{{Name: "cutoff", Value: cutoff}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent IDs query: %w", err)
	}

	ids := make(map[string]bool)
	for {
		var row struct {
			FileID string `bigquery:"file_id"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("recent IDs scan: %w", err)
		}
		ids[row.FileID] = true
	}
	return ids, nil
}

// UpdateAllocation fixes exactly one record, addressed by the composite
// key, after a human resolved what the pipeline could not.
func (l *BigQueryLedger) UpdateAllocation(ctx context.Context, fileID, processingTimestamp, taxID, category string) error {
	q := l.client.Query(fmt.Sprintf(`
		UPDATE `+"`%s`"+`
		SET tax_id = @tax_id,
		    category = @category,
		    extraction_method = @status
		WHERE file_id = @file_id
		  AND CAST(processing_timestamp AS STRING) = @processing_timestamp`, l.ledgerTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "tax_id", Value: taxID},
		{Name: "category", Value: category},
		{Name: "status", Value: statusManualOK},
		{Name: "file_id", Value: fileID},
		{Name: "processing_timestamp", Value: processingTimestamp},
	}
	if err := l.runDML(ctx, q); err != nil {
		return fmt.Errorf("allocation update: %w", err)
	}
	l.logger.WithFields(logrus.Fields{"file_id": fileID, "tax_id": taxID}).Info("record allocated manually")
	return nil
}

// Discard tombstones one record. The ledger row survives untouched;
// reads filter it out by anti-joining on the composite key.
func (l *BigQueryLedger) Discard(ctx context.Context, fileID, processingTimestamp, fileName string) error {
	q := l.client.Query(fmt.Sprintf(`
		INSERT INTO `+"`%s`"+` (file_id, processing_timestamp, file_name)
		VALUES (@file_id, TIMESTAMP(@processing_timestamp), @file_name)`, l.discardTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "file_id", Value: fileID},
		{Name: "processing_timestamp", Value: processingTimestamp},
		{Name: "file_name", Value: fileName},
	}
	if err := l.runDML(ctx, q); err != nil {
		return fmt.Errorf("discard insert: %w", err)
	}
	l.logger.WithField("file_id", fileID).Info("record discarded")
	return nil
}

// ListUnidentified returns records still waiting for manual allocation,
// minus the tombstoned ones.
func (l *BigQueryLedger) ListUnidentified(ctx context.Context, limit int) ([]dto.UnidentifiedRecord, error) {
	q := l.client.Query(fmt.Sprintf(`
		SELECT file_id, file_name, link, CAST(processing_timestamp AS STRING) AS processing_timestamp
		FROM `+"`%s`"+`
		WHERE (category IS NULL OR category = '' OR category = @not_identified)
		  AND CONCAT(file_id, '|', CAST(processing_timestamp AS STRING)) NOT IN (
		    SELECT CONCAT(file_id, '|', CAST(processing_timestamp AS STRING)) FROM `+"`%s`"+`
		  )
		ORDER BY processing_timestamp DESC
		LIMIT @limit`, l.ledgerTable, l.discardTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "not_identified", Value: dto.CategoryNotIdentified},
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("unidentified query: %w", err)
	}

	var records []dto.UnidentifiedRecord
	for {
		var row struct {
			FileID              string `bigquery:"file_id"`
			FileName            string `bigquery:"file_name"`
			Link                string `bigquery:"link"`
			ProcessingTimestamp string `bigquery:"processing_timestamp"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unidentified scan: %w", err)
		}
		records = append(records, dto.UnidentifiedRecord{
			FileID:              row.FileID,
			FileName:            row.FileName,
			Link:                row.Link,
			ProcessingTimestamp: row.ProcessingTimestamp,
		})
	}
	return records, nil
}

func (l *BigQueryLedger) runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

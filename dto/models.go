package dto

import "time"

// EntityRecord is one active company from the reference spreadsheet.
// TaxID is the canonical key; StateRegistration and MunicipalRegistration
// are secondary lookup keys resolving to the same record. All three are
// normalized to digits only.
type EntityRecord struct {
	Group                 string `json:"group"`
	Name                  string `json:"name"`
	TaxID                 string `json:"tax_id"`
	StateRegistration     string `json:"state_registration"`
	MunicipalRegistration string `json:"municipal_registration"`
}

// CandidateFile is one PDF discovered by the drive watcher.
type CandidateFile struct {
	FileID    string    `json:"file_id"`
	FileName  string    `json:"file_name"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtractionResult is the transient outcome of content extraction for
// one file. Only derived fields end up in the ledger.
type ExtractionResult struct {
	Text    string
	TaxID   string
	UsedOCR bool
}

// PeriodSource tells whether the accounting period was read from the
// filename or computed from the processing date.
type PeriodSource string

const (
	PeriodFromFilename PeriodSource = "FROM_FILENAME"
	PeriodComputed     PeriodSource = "COMPUTED"
)

// Extraction methods recorded in the ledger.
const (
	MethodOCR  = "OCR"
	MethodText = "TXT"
)

// CategoryNotIdentified is the fallback when no keyword matches.
const CategoryNotIdentified = "NAO_IDENTIFICADO"

// TaxIDNotDetected is stored when neither regex extraction nor the
// registry produced an identifier.
const TaxIDNotDetected = "NAO_DETECTADO"

// CompanyUnknown is stored when the registry could not resolve an entity.
const CompanyUnknown = "DESCONHECIDA"

// LedgerRecord is one persisted outcome of processing one candidate
// file. A record is uniquely identified by (FileID, ProcessingTimestamp):
// the same file can legitimately be reprocessed on a later run and
// produce a second record.
type LedgerRecord struct {
	ProcessingTimestamp time.Time `bigquery:"processing_timestamp" json:"processing_timestamp"`
	FileID              string    `bigquery:"file_id" json:"file_id"`
	FileName            string    `bigquery:"file_name" json:"file_name"`
	Link                string    `bigquery:"link" json:"link"`
	TaxID               string    `bigquery:"tax_id" json:"tax_id"`
	Period              string    `bigquery:"period" json:"period"`
	Category            string    `bigquery:"category" json:"category"`
	ExtractionMethod    string    `bigquery:"extraction_method" json:"extraction_method"`
	Observation         string    `bigquery:"observation" json:"observation"`
	Page                string    `bigquery:"page" json:"page"`
}

// RunSummary aggregates the outcome of one pipeline run. Partial
// success (some saved, some crashed) is the expected normal outcome,
// not an error condition.
type RunSummary struct {
	Total       int `json:"total"`
	Saved       int `json:"saved"`
	Blacklisted int `json:"blacklisted"`
	Duplicates  int `json:"duplicates"`
	Crashed     int `json:"crashed"`
}

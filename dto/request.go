package dto

// AllocateRequest re-assigns a ledger record that the pipeline could
// not identify. Targets exactly one record via the composite key.
type AllocateRequest struct {
	FileID              string `json:"file_id" binding:"required"`
	ProcessingTimestamp string `json:"processing_timestamp" binding:"required"`
	TaxID               string `json:"tax_id" binding:"required"`
	Category            string `json:"category" binding:"required"`
}

// DiscardRequest soft-deletes a ledger record by inserting a tombstone
// into the discard table. The record itself is never touched.
type DiscardRequest struct {
	FileID              string `json:"file_id" binding:"required"`
	ProcessingTimestamp string `json:"processing_timestamp" binding:"required"`
	FileName            string `json:"file_name"`
}

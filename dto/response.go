package dto

// UnidentifiedRecord is one ledger row awaiting manual allocation.
type UnidentifiedRecord struct {
	FileID              string `json:"file_id"`
	FileName            string `json:"file_name"`
	Link                string `json:"link"`
	ProcessingTimestamp string `json:"processing_timestamp"`
}

// ErrorResponse is the uniform error payload of the admin API.
type ErrorResponse struct {
	Error string `json:"error"`
}

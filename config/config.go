package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries every tunable of the audit engine. Values come from
// the environment (optionally seeded from a .env file in main) with the
// production defaults observed in operation.
type Config struct {
	ServerPort      string
	CredentialsFile string

	// Reference registry spreadsheet.
	SpreadsheetID string
	SheetRange    string

	// Drive watcher.
	RootFolderID     string
	IgnoreFolders    []string
	WatchWindowDays  int
	FolderTimeoutSec int

	// Ledger (BigQuery). Fully-qualified table IDs: project.dataset.table.
	LedgerTableID  string
	DiscardTableID string

	// The audit firm's own CNPJ, excluded by the identification
	// tie-break rules.
	FirmTaxID string

	// Pipeline tuning.
	MaxWorkers          int
	DuplicateWindowDays int

	// OCR.
	TesseractDataPath string
	OCRLanguage       string

	// Admin API credentials.
	AdminUser     string
	AdminPassword string
}

func LoadConfig() *Config {
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", "credentials.json"),

		SpreadsheetID: os.Getenv("SPREADSHEET_ID"),
		SheetRange:    getEnv("SHEET_RANGE", "D2:M"),

		RootFolderID:     os.Getenv("ROOT_FOLDER_ID"),
		IgnoreFolders:    getEnvList("IGNORE_FOLDERS", []string{"01 - ENTRADAS", "02 - SAÍDAS"}),
		WatchWindowDays:  getEnvInt("WATCH_WINDOW_DAYS", 1),
		FolderTimeoutSec: getEnvInt("FOLDER_TIMEOUT_SEC", 5),

		LedgerTableID:  os.Getenv("LEDGER_TABLE_ID"),
		DiscardTableID: os.Getenv("DISCARD_TABLE_ID"),

		FirmTaxID: getEnv("FIRM_TAX_ID", "49756007000127"),

		MaxWorkers:          getEnvInt("MAX_WORKERS", 6),
		DuplicateWindowDays: getEnvInt("DUPLICATE_WINDOW_DAYS", 7),

		TesseractDataPath: getEnv("TESSDATA_PREFIX", "/usr/share/tesseract-ocr/5/tessdata/"),
		OCRLanguage:       getEnv("OCR_LANGUAGE", "por"),

		AdminUser:     getEnv("ADMIN_USER", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}

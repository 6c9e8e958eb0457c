// Package utils holds the text-parsing helpers shared by the
// extraction and registry layers.
package utils

import (
	"regexp"
	"strings"
)

// cnpjPattern captures a 14-digit CNPJ, with or without punctuation:
// XX.XXX.XXX/XXXX-XX or the bare digit run.
var cnpjPattern = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)

// CleanDigits strips everything that is not a digit.
func CleanDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractBestCNPJ finds all CNPJ candidates in text, normalized to
// digits and deduplicated in first-seen order. When more than one
// distinct candidate remains and the firm's own CNPJ is among them, the
// firm's is dropped: a client document mentioning both the filer and
// the filed-for party resolves to the filed-for party. Returns "" when
// nothing survives.
func ExtractBestCNPJ(text, firmTaxID string) string {
	if text == "" {
		return ""
	}

	var candidates []string
	seen := make(map[string]bool)
	for _, match := range cnpjPattern.FindAllString(text, -1) {
		clean := CleanDigits(match)
		if !seen[clean] {
			seen[clean] = true
			candidates = append(candidates, clean)
		}
	}

	firm := CleanDigits(firmTaxID)
	if len(candidates) > 1 && seen[firm] {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c != firm {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	if len(candidates) == 0 {
		return ""
	}
	return candidates[0]
}

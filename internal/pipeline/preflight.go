package pipeline

import "strings"

// ValidationResult is the outcome of the preflight checks.
type ValidationResult struct {
	OK     bool
	Reason string
}

// Preflight validates credentials and dataset ids before any network call.
// Checks run in a fixed order and the first violation is returned as a
// user-facing reason. The function is side-effect-free and never touches the
// network.
func Preflight(creds Credentials, ids DatasetIDs) ValidationResult {
	if strings.TrimSpace(creds.LLMKey) == "" {
		return ValidationResult{Reason: "missing LLM API key"}
	}
	if strings.TrimSpace(creds.ScrapingKey) == "" {
		return ValidationResult{Reason: "missing scraping API key"}
	}
	if !plausibleDatasetID(ids.Posts) {
		return ValidationResult{Reason: "posts dataset id missing or malformed"}
	}
	if !plausibleDatasetID(ids.Comments) {
		return ValidationResult{Reason: "comments dataset id missing or malformed"}
	}
	return ValidationResult{OK: true}
}

// plausibleDatasetID applies the provider's identifier format without calling
// out: a "gd_" prefix and a minimum length.
func plausibleDatasetID(id string) bool {
	id = strings.TrimSpace(id)
	return strings.HasPrefix(id, "gd_") && len(id) >= 6
}

package internal

import (
	"fmt"
	"slices"
	"strings"
)

// ValidThreatTypes lists the indicator kinds the ingest server accepts.
var ValidThreatTypes = []string{"ip", "domain", "url", "file_hash"}

var validConfidence = []string{"low", "medium", "high"}

// ValidateThreatIntel checks an indicator submitted over the ingest API. The
// Recorder itself never validates.
func ValidateThreatIntel(ti ThreatIntel) error {
	if ti.Type == "" || ti.Value == "" || ti.Confidence == "" {
		return fmt.Errorf("missing required fields")
	}
	if !slices.Contains(ValidThreatTypes, strings.ToLower(ti.Type)) {
		return fmt.Errorf("invalid type: %s. Must be one of: %s", ti.Type, strings.Join(ValidThreatTypes, ", "))
	}
	if !slices.Contains(validConfidence, ti.Confidence) {
		return fmt.Errorf("invalid confidence level. Must be: low, medium, or high")
	}
	return nil
}

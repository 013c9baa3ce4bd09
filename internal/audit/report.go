package audit

import (
	"encoding/json"
	"fmt"
)

// MarshalReport renders an audit or scan result as indented JSON
func MarshalReport(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}

// ParseAuditReport decodes a serialized PackageAudit
func ParseAuditReport(data []byte) (*PackageAudit, error) {
	var a PackageAudit
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode audit report: %w", err)
	}
	return &a, nil
}

// ParseScanReport decodes a serialized TransitiveScanResult
func ParseScanReport(data []byte) (*TransitiveScanResult, error) {
	var r TransitiveScanResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode scan report: %w", err)
	}
	return &r, nil
}

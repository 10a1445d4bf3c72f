// Package findings implements the security findings section: a triage list
// filtered by severity and status, with status transitions.
package findings

import (
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
)

// Status is the triage state of a finding.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusFalsePositive Status = "false_positive"
)

// Statuses lists every status in triage order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInvestigating, StatusResolved, StatusFalsePositive}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses() {
		if s == v {
			return true
		}
	}
	return false
}

// Finding is a security issue reported against an asset. AssetID is not
// checked against the asset inventory.
type Finding struct {
	ID          string         `json:"id"`
	AssetID     string         `json:"assetId"`
	Severity    severity.Level `json:"severity"`
	Title       string         `json:"title"`
	Status      Status         `json:"status"`
	Description string         `json:"description,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	ResolvedAt  string         `json:"resolvedAt,omitempty"`
}

// Stats counts findings by severity and by the two main statuses.
type Stats struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Open     int `json:"open"`
	Resolved int `json:"resolved"`
}

// Fixtures returns the seeded findings.
func Fixtures() []Finding {
	return []Finding{
		{ID: "f1", AssetID: "1", Severity: severity.Critical, Title: "Apache RCE Vulnerability", Status: StatusOpen,
			Description: "Remote code execution vulnerability in Apache HTTP Server", CreatedAt: "2024-11-10T10:30:00Z"},
		{ID: "f2", AssetID: "2", Severity: severity.High, Title: "SQL Injection in Login Form", Status: StatusInvestigating,
			Description: "Potential SQL injection vulnerability in user authentication", CreatedAt: "2024-11-09T14:15:00Z"},
		{ID: "f3", AssetID: "1", Severity: severity.Medium, Title: "Outdated SSL Certificate", Status: StatusResolved,
			Description: "SSL certificate is approaching expiration date", CreatedAt: "2024-11-08T09:20:00Z", ResolvedAt: "2024-11-09T16:45:00Z"},
		{ID: "f4", AssetID: "3", Severity: severity.Low, Title: "Missing Security Headers", Status: StatusOpen,
			Description: "HTTP security headers are not properly configured", CreatedAt: "2024-11-07T11:00:00Z"},
		{ID: "f5", AssetID: "2", Severity: severity.Critical, Title: "Unpatched OS Vulnerability", Status: StatusOpen,
			Description: "Critical security patch missing from operating system", CreatedAt: "2024-11-06T13:30:00Z"},
		{ID: "f6", AssetID: "4", Severity: severity.High, Title: "Weak Password Policy", Status: StatusResolved,
			Description: "Password policy does not meet security requirements", CreatedAt: "2024-11-05T15:45:00Z", ResolvedAt: "2024-11-08T10:20:00Z"},
	}
}

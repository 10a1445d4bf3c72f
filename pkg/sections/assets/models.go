// Package assets implements the asset inventory section: the asset list,
// per-asset detail pages with their vulnerabilities, and the JSON API over
// the same data.
package assets

import (
	"strings"

	"github.com/exploopio/vrx-portal/pkg/shared/severity"
)

// Type classifies an asset.
type Type string

const (
	TypeServer      Type = "server"
	TypeApplication Type = "application"
	TypeDatabase    Type = "database"
	TypeNetwork     Type = "network"
	TypeCloud       Type = "cloud"
)

// Status is the operational state of an asset.
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
)

// Environment is the deployment stage an asset belongs to.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

// VulnerabilityStatus is the triage state of a vulnerability.
type VulnerabilityStatus string

const (
	VulnOpen          VulnerabilityStatus = "open"
	VulnInvestigating VulnerabilityStatus = "investigating"
	VulnResolved      VulnerabilityStatus = "resolved"
	VulnFalsePositive VulnerabilityStatus = "false_positive"
)

// Valid reports whether s is a known vulnerability status.
func (s VulnerabilityStatus) Valid() bool {
	switch s {
	case VulnOpen, VulnInvestigating, VulnResolved, VulnFalsePositive:
		return true
	}
	return false
}

// Asset is an inventory entry.
type Asset struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Type               Type        `json:"type"`
	Status             Status      `json:"status"`
	Owner              string      `json:"owner"`
	Environment        Environment `json:"environment"`
	LastScanned        string      `json:"lastScanned,omitempty"`
	VulnerabilityCount *int        `json:"vulnerabilityCount,omitempty"`
	RiskScore          *float64    `json:"riskScore,omitempty"`
	Location           string      `json:"location,omitempty"`
	IPAddress          string      `json:"ipAddress,omitempty"`
	OperatingSystem    string      `json:"operatingSystem,omitempty"`
	Tags               []string    `json:"tags,omitempty"`
}

// Risk returns the risk score, treating a missing score as 0.
func (a Asset) Risk() float64 {
	if a.RiskScore == nil {
		return 0
	}
	return *a.RiskScore
}

// RiskLevel buckets the risk score.
func (a Asset) RiskLevel() severity.Level {
	return severity.FromScore(a.Risk())
}

// Vulnerability is a weakness found on an asset.
type Vulnerability struct {
	ID           string              `json:"id"`
	Severity     severity.Level      `json:"severity"`
	Description  string              `json:"description"`
	CVE          string              `json:"cve,omitempty"`
	DiscoveredAt string              `json:"discoveredAt"`
	Status       VulnerabilityStatus `json:"status"`
}

// Metadata carries bookkeeping about an asset record.
type Metadata struct {
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// Details is an asset together with its vulnerabilities.
type Details struct {
	Asset
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Metadata        *Metadata       `json:"metadata,omitempty"`
}

// CountBySeverity counts the vulnerabilities of the given level.
func (d Details) CountBySeverity(level severity.Level) int {
	n := 0
	for _, v := range d.Vulnerabilities {
		if v.Severity == level {
			n++
		}
	}
	return n
}

// Statistics summarizes the inventory.
type Statistics struct {
	Total                   int `json:"total"`
	Active                  int `json:"active"`
	Inactive                int `json:"inactive"`
	Maintenance             int `json:"maintenance"`
	HighRisk                int `json:"highRisk"`
	CriticalVulnerabilities int `json:"criticalVulnerabilities"`
}

// Filters is a conjunction of predicates. Empty or "all" disables a field.
type Filters struct {
	Type        string `json:"type,omitempty"`
	Status      string `json:"status,omitempty"`
	Environment string `json:"environment,omitempty"`
	RiskLevel   string `json:"riskLevel,omitempty"`
}

func active(v string) bool {
	return v != "" && v != severity.All
}

// Match reports whether a satisfies every enabled predicate.
func (f Filters) Match(a Asset) bool {
	if active(f.Type) && string(a.Type) != f.Type {
		return false
	}
	if active(f.Status) && string(a.Status) != f.Status {
		return false
	}
	if active(f.Environment) && string(a.Environment) != f.Environment {
		return false
	}
	if active(f.RiskLevel) {
		level, ok := severity.Parse(f.RiskLevel)
		if ok && a.RiskLevel() != level {
			return false
		}
	}
	return true
}

// IsZero reports whether no predicate is enabled.
func (f Filters) IsZero() bool {
	return !active(f.Type) && !active(f.Status) && !active(f.Environment) && !active(f.RiskLevel)
}

// TagList joins the tags for display and search.
func (a Asset) TagList() string {
	return strings.Join(a.Tags, ", ")
}

package assets

import "github.com/exploopio/vrx-portal/pkg/shared/severity"

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// Fixtures returns the seeded inventory.
func Fixtures() []Asset {
	return []Asset{
		{
			ID:                 "1",
			Name:               "Production Web Server",
			Type:               TypeServer,
			Status:             StatusActive,
			Owner:              "DevOps Team",
			Environment:        EnvProduction,
			LastScanned:        "2025-11-10T08:30:00Z",
			VulnerabilityCount: intPtr(3),
			RiskScore:          floatPtr(7.5),
			Location:           "AWS us-east-1",
			IPAddress:          "10.0.1.100",
			OperatingSystem:    "Ubuntu 22.04",
			Tags:               []string{"web", "nginx", "production"},
		},
		{
			ID:                 "2",
			Name:               "User Database",
			Type:               TypeDatabase,
			Status:             StatusActive,
			Owner:              "Database Team",
			Environment:        EnvProduction,
			LastScanned:        "2025-11-09T14:20:00Z",
			VulnerabilityCount: intPtr(1),
			RiskScore:          floatPtr(4.2),
			Location:           "AWS us-west-2",
			IPAddress:          "10.0.2.50",
			OperatingSystem:    "MySQL 8.0",
			Tags:               []string{"database", "mysql", "users"},
		},
		{
			ID:                 "3",
			Name:               "Payment Gateway",
			Type:               TypeApplication,
			Status:             StatusActive,
			Owner:              "Security Team",
			Environment:        EnvProduction,
			LastScanned:        "2025-11-10T10:15:00Z",
			VulnerabilityCount: intPtr(5),
			RiskScore:          floatPtr(9.1),
			Location:           "AWS eu-west-1",
			IPAddress:          "10.0.3.25",
			OperatingSystem:    "Node.js 18",
			Tags:               []string{"payment", "stripe", "critical"},
		},
		{
			ID:                 "4",
			Name:               "Development API",
			Type:               TypeApplication,
			Status:             StatusActive,
			Owner:              "Development Team",
			Environment:        EnvDevelopment,
			LastScanned:        "2025-11-08T16:45:00Z",
			VulnerabilityCount: intPtr(8),
			RiskScore:          floatPtr(5.3),
			Location:           "Local Docker",
			IPAddress:          "192.168.1.10",
			OperatingSystem:    "Python 3.11",
			Tags:               []string{"api", "development", "flask"},
		},
		{
			ID:                 "5",
			Name:               "Load Balancer",
			Type:               TypeNetwork,
			Status:             StatusMaintenance,
			Owner:              "Infrastructure Team",
			Environment:        EnvProduction,
			LastScanned:        "2025-11-07T09:00:00Z",
			VulnerabilityCount: intPtr(0),
			RiskScore:          floatPtr(2.1),
			Location:           "AWS ALB",
			IPAddress:          "52.1.2.3",
			OperatingSystem:    "AWS ALB",
			Tags:               []string{"load-balancer", "nginx", "aws"},
		},
		{
			ID:                 "6",
			Name:               "Analytics Database",
			Type:               TypeDatabase,
			Status:             StatusInactive,
			Owner:              "Analytics Team",
			Environment:        EnvStaging,
			LastScanned:        "2025-11-05T12:30:00Z",
			VulnerabilityCount: intPtr(2),
			RiskScore:          floatPtr(3.7),
			Location:           "AWS us-central-1",
			IPAddress:          "10.0.4.75",
			OperatingSystem:    "PostgreSQL 14",
			Tags:               []string{"analytics", "postgresql", "staging"},
		},
	}
}

// DetailFixtures returns the vulnerability records, keyed by asset ID.
// Only the first three assets have been scanned in depth.
func DetailFixtures() map[string]Details {
	assets := Fixtures()
	return map[string]Details{
		"1": {
			Asset: assets[0],
			Vulnerabilities: []Vulnerability{
				{ID: "v1", Severity: severity.High, Description: "Outdated OpenSSL package with known vulnerabilities", CVE: "CVE-2023-1234", DiscoveredAt: "2025-11-10T08:30:00Z", Status: VulnOpen},
				{ID: "v2", Severity: severity.Medium, Description: "Nginx configuration allows directory listing", DiscoveredAt: "2025-11-10T08:30:00Z", Status: VulnInvestigating},
				{ID: "v3", Severity: severity.Low, Description: "Missing security headers", DiscoveredAt: "2025-11-10T08:30:00Z", Status: VulnOpen},
			},
			Metadata: &Metadata{
				CreatedAt:   "2025-01-15T10:00:00Z",
				UpdatedAt:   "2025-11-10T08:30:00Z",
				Version:     "1.0.5",
				Description: "Primary web server handling user requests",
			},
		},
		"2": {
			Asset: assets[1],
			Vulnerabilities: []Vulnerability{
				{ID: "v4", Severity: severity.Medium, Description: "Database user with excessive privileges", DiscoveredAt: "2025-11-09T14:20:00Z", Status: VulnOpen},
			},
			Metadata: &Metadata{
				CreatedAt:   "2025-02-01T09:00:00Z",
				UpdatedAt:   "2025-11-09T14:20:00Z",
				Version:     "8.0.35",
				Description: "Primary user data storage",
			},
		},
		"3": {
			Asset: assets[2],
			Vulnerabilities: []Vulnerability{
				{ID: "v5", Severity: severity.Critical, Description: "SQL injection vulnerability in payment processing", CVE: "CVE-2023-5678", DiscoveredAt: "2025-11-10T10:15:00Z", Status: VulnInvestigating},
				{ID: "v6", Severity: severity.High, Description: "Insufficient input validation on payment endpoints", DiscoveredAt: "2025-11-10T10:15:00Z", Status: VulnOpen},
				{ID: "v7", Severity: severity.High, Description: "Weak encryption for stored payment data", DiscoveredAt: "2025-11-10T10:15:00Z", Status: VulnOpen},
				{ID: "v8", Severity: severity.Medium, Description: "Missing rate limiting on API endpoints", DiscoveredAt: "2025-11-10T10:15:00Z", Status: VulnOpen},
				{ID: "v9", Severity: severity.Low, Description: "Verbose error messages expose system information", DiscoveredAt: "2025-11-10T10:15:00Z", Status: VulnResolved},
			},
			Metadata: &Metadata{
				CreatedAt:   "2025-03-10T14:00:00Z",
				UpdatedAt:   "2025-11-10T10:15:00Z",
				Version:     "2.1.8",
				Description: "Critical payment processing system",
			},
		},
	}
}

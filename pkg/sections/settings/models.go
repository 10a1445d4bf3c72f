// Package settings implements the organisation settings section: general,
// security and notification preferences, each edited on its own sub-page.
package settings

import "github.com/exploopio/vrx-portal/pkg/shared/severity"

// General holds the organisation-wide display preferences.
type General struct {
	OrganizationName string `json:"organizationName" yaml:"organization_name"`
	Timezone         string `json:"timezone" yaml:"timezone"`
	DateFormat       string `json:"dateFormat" yaml:"date_format"`
}

// Security holds the account policy.
type Security struct {
	MFARequired           bool `json:"mfaRequired" yaml:"mfa_required"`
	SessionTimeoutMinutes int  `json:"sessionTimeoutMinutes" yaml:"session_timeout_minutes"`
	PasswordMinLength     int  `json:"passwordMinLength" yaml:"password_min_length"`
}

// Notifications controls alert delivery.
type Notifications struct {
	EmailAlerts     bool           `json:"emailAlerts" yaml:"email_alerts"`
	DigestFrequency string         `json:"digestFrequency" yaml:"digest_frequency"`
	MinSeverity     severity.Level `json:"minSeverity" yaml:"min_severity"`
}

// Settings is the full preference document.
type Settings struct {
	General       General       `json:"general" yaml:"general"`
	Security      Security      `json:"security" yaml:"security"`
	Notifications Notifications `json:"notifications" yaml:"notifications"`
}

// Accepted option values.
var (
	DateFormats       = []string{"YYYY-MM-DD", "MM/DD/YYYY", "DD/MM/YYYY"}
	DigestFrequencies = []string{"never", "daily", "weekly"}
)

// Bounds of the security policy.
const (
	MinSessionTimeout = 5
	MaxSessionTimeout = 1440
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// Defaults returns the settings a fresh portal starts with.
func Defaults() Settings {
	return Settings{
		General: General{
			OrganizationName: "VRX Security",
			Timezone:         "UTC",
			DateFormat:       "YYYY-MM-DD",
		},
		Security: Security{
			MFARequired:           true,
			SessionTimeoutMinutes: 30,
			PasswordMinLength:     12,
		},
		Notifications: Notifications{
			EmailAlerts:     true,
			DigestFrequency: "daily",
			MinSeverity:     severity.High,
		},
	}
}

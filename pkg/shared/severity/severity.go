// Package severity provides the severity levels shared by findings,
// vulnerabilities and asset risk scores.
package severity

import "strings"

// Level represents a severity level.
type Level string

const (
	// Critical - Immediate action required.
	Critical Level = "critical"

	// High - Serious issue that should be addressed urgently.
	High Level = "high"

	// Medium - Moderate risk, address in the normal cycle.
	Medium Level = "medium"

	// Low - Minor issue.
	Low Level = "low"
)

// All is the filter value that disables severity filtering.
const All = "all"

// AllLevels returns all severity levels in order of priority (highest first).
func AllLevels() []Level {
	return []Level{Critical, High, Medium, Low}
}

// String returns the string representation of the severity level.
func (l Level) String() string {
	return string(l)
}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	return l.Priority() > 0
}

// Priority returns the numeric priority of the severity level.
// Higher numbers = higher priority.
func (l Level) Priority() int {
	switch l {
	case Critical:
		return 4
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// IsHigherThan returns true if this severity is higher than the other.
func (l Level) IsHigherThan(other Level) bool {
	return l.Priority() > other.Priority()
}

// IsAtLeast returns true if this severity is at least as high as the other.
func (l Level) IsAtLeast(other Level) bool {
	return l.Priority() >= other.Priority()
}

// Parse normalizes a user-supplied severity. The second result is false for
// anything that is not one of the four levels.
func Parse(s string) (Level, bool) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	return l, l.Valid()
}

// FromScore buckets a 0-10 risk score:
//   - 9.0 and above: Critical
//   - 7.0 up to 9.0: High
//   - 4.0 up to 7.0: Medium
//   - below 4.0:     Low
//
// Every score maps to exactly one level; zero and negative scores are Low.
func FromScore(score float64) Level {
	switch {
	case score >= 9.0:
		return Critical
	case score >= 7.0:
		return High
	case score >= 4.0:
		return Medium
	default:
		return Low
	}
}

// ScoreRange returns the score range for a level as (min inclusive, max exclusive).
func (l Level) ScoreRange() (float64, float64) {
	switch l {
	case Critical:
		return 9.0, 10.1
	case High:
		return 7.0, 9.0
	case Medium:
		return 4.0, 7.0
	case Low:
		return 0.0, 4.0
	default:
		return 0.0, 0.0
	}
}

// RiskClass is the css class used for a risk score badge. A nil score has no class.
func RiskClass(score *float64) string {
	if score == nil || *score == 0 {
		return ""
	}
	return "risk-" + FromScore(*score).String()
}

// Compare returns:
//
//	-1 if a < b (a is lower severity)
//	 0 if a == b
//	+1 if a > b (a is higher severity)
func Compare(a, b Level) int {
	pa, pb := a.Priority(), b.Priority()
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// Max returns the higher severity of two levels.
func Max(a, b Level) Level {
	if a.IsHigherThan(b) {
		return a
	}
	return b
}

// CountBySeverity counts items by severity level.
type CountBySeverity struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Increment increases the count for the given severity.
func (c *CountBySeverity) Increment(level Level) {
	c.Total++
	switch level {
	case Critical:
		c.Critical++
	case High:
		c.High++
	case Medium:
		c.Medium++
	case Low:
		c.Low++
	}
}

// Get returns the count for one level.
func (c *CountBySeverity) Get(level Level) int {
	switch level {
	case Critical:
		return c.Critical
	case High:
		return c.High
	case Medium:
		return c.Medium
	case Low:
		return c.Low
	}
	return 0
}

// HighestSeverity returns the highest severity level that has a non-zero count.
// The second result is false when nothing was counted.
func (c *CountBySeverity) HighestSeverity() (Level, bool) {
	for _, l := range AllLevels() {
		if c.Get(l) > 0 {
			return l, true
		}
	}
	return "", false
}

package core

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// EmailPattern is the loose address check used by the user forms.
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError is a single rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors lists every rejected field of one input, in check order.
// Forms display Messages; the API returns the list as 422 details.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	parts := make([]string, len(e))
	for i := range e {
		parts[i] = e[i].Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field was rejected.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Add appends a failure for field.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// Messages returns the human-readable messages in the order they were added.
func (e ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return msgs
}

// Has reports whether field was rejected.
func (e ValidationErrors) Has(field string) bool {
	return slices.ContainsFunc(e, func(v ValidationError) bool { return v.Field == field })
}

// Validator chains checks and collects every failure instead of stopping at
// the first one.
type Validator struct {
	errors ValidationErrors
}

func NewValidator() *Validator {
	return &Validator{}
}

// Required rejects blank values.
func (v *Validator) Required(field, value string) *Validator {
	return v.Check(field, strings.TrimSpace(value) != "", "is required")
}

// Email checks value against EmailPattern. Empty values are left to Required.
func (v *Validator) Email(field, value string) *Validator {
	return v.Check(field, value == "" || EmailPattern.MatchString(value), "invalid email format")
}

// MinDuration rejects durations below min.
func (v *Validator) MinDuration(field string, value, min time.Duration) *Validator {
	return v.Check(field, value >= min, fmt.Sprintf("must be at least %v", min))
}

// Min rejects integers below min.
func (v *Validator) Min(field string, value, min int) *Validator {
	return v.Check(field, value >= min, fmt.Sprintf("must be at least %d", min))
}

// OneOf rejects values outside allowed. Empty values are left to Required.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	return v.Check(field, value == "" || slices.Contains(allowed, value),
		"must be one of: "+strings.Join(allowed, ", "))
}

// Check adds message for field when ok is false.
func (v *Validator) Check(field string, ok bool, message string) *Validator {
	if !ok {
		v.errors.Add(field, message)
	}
	return v
}

// Errors returns the collected failures.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// Validate returns the failures as an error, or nil.
func (v *Validator) Validate() error {
	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidator_CollectsAllFailures(t *testing.T) {
	v := NewValidator()
	v.Required("name", "  ").
		Email("email", "not-an-email").
		OneOf("role", "Owner", []string{"Admin", "Editor", "Viewer"}).
		Min("port", 0, 1)

	errs := v.Errors()
	if len(errs) != 4 {
		t.Fatalf("len(errors) = %d, want 4: %v", len(errs), errs)
	}

	fields := []string{"name", "email", "role", "port"}
	for i, f := range fields {
		if errs[i].Field != f {
			t.Errorf("errors[%d].Field = %q, want %q", i, errs[i].Field, f)
		}
	}

	err := v.Validate()
	var ve ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("Validate() returned %T, want ValidationErrors", err)
	}
	if !strings.HasPrefix(err.Error(), "validation failed: name: is required") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	v.Required("name", "Alice").
		Email("email", "alice@vrx.com").
		OneOf("role", "Admin", []string{"Admin", "Editor", "Viewer"}).
		MinDuration("timeout", 5*time.Second, time.Second).
		Min("port", 8080, 1)

	if err := v.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestEmailPattern(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"alice@vrx.com", true},
		{"a.b+c@sub.example.org", true},
		{"alice@vrx", false},
		{"alice vrx@x.com", false},
		{"@vrx.com", false},
		{"alice@@vrx.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := EmailPattern.MatchString(tt.email); got != tt.valid {
				t.Errorf("EmailPattern.MatchString(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestValidationErrors_Messages(t *testing.T) {
	var errs ValidationErrors
	errs.Add("name", "Name is required")
	errs.Add("email", "Email is already taken")

	got := errs.Messages()
	if len(got) != 2 || got[0] != "Name is required" || got[1] != "Email is already taken" {
		t.Errorf("Messages() = %v", got)
	}
	if !errs.HasErrors() {
		t.Error("HasErrors() = false")
	}
}

func TestValidator_Check(t *testing.T) {
	v := NewValidator()
	v.Check("a", true, "never").Check("b", false, "b failed").Check("c", false, "c failed")

	errs := v.Errors()
	msgs := errs.Messages()
	if len(msgs) != 2 || msgs[0] != "b failed" || msgs[1] != "c failed" {
		t.Errorf("Messages() = %v", msgs)
	}
	if errs.Has("a") || !errs.Has("c") {
		t.Errorf("Has() mismatch for %v", errs)
	}
}

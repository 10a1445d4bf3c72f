package settings

import (
	"context"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/shared/severity"
	"github.com/exploopio/vrx-portal/pkg/store"
)

// Section is the name the settings section is registered under.
const Section = "settings"

// Simulated backend latencies.
const (
	GetDelay  = 200 * time.Millisecond
	SaveDelay = 400 * time.Millisecond
)

// Service keeps the settings document in a single-element store.
type Service struct {
	sections.Service

	settings *store.Store[Settings]
}

// NewService creates the service holding initial.
func NewService(deps sections.Deps, initial Settings) *Service {
	return &Service{
		Service:  deps.Bind(Section),
		settings: store.New([]Settings{initial}),
	}
}

// Store exposes the document for subscribers.
func (s *Service) Store() *store.Store[Settings] {
	return s.settings
}

// Current returns the settings without simulated latency.
func (s *Service) Current() Settings {
	return s.settings.Snapshot()[0]
}

// Get returns the settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	defer s.Call("get")()

	if err := s.Wait(ctx, GetDelay); err != nil {
		return Settings{}, errors.Wrap(err, "settings.Get")
	}
	return s.Current(), nil
}

// UpdateGeneral replaces the general preferences.
func (s *Service) UpdateGeneral(ctx context.Context, g General) (Settings, error) {
	return s.save(ctx, "general", validateGeneral(g), func(st *Settings) { st.General = g })
}

// UpdateSecurity replaces the security policy.
func (s *Service) UpdateSecurity(ctx context.Context, sec Security) (Settings, error) {
	return s.save(ctx, "security", validateSecurity(sec), func(st *Settings) { st.Security = sec })
}

// UpdateNotifications replaces the notification preferences.
func (s *Service) UpdateNotifications(ctx context.Context, n Notifications) (Settings, error) {
	return s.save(ctx, "notifications", validateNotifications(n), func(st *Settings) { st.Notifications = n })
}

// Replace validates and stores a whole document.
func (s *Service) Replace(ctx context.Context, next Settings) (Settings, error) {
	var errs core.ValidationErrors
	errs = append(errs, validateGeneral(next.General)...)
	errs = append(errs, validateSecurity(next.Security)...)
	errs = append(errs, validateNotifications(next.Notifications)...)
	return s.save(ctx, "all", errs, func(st *Settings) { *st = next })
}

func (s *Service) save(ctx context.Context, group string, errs core.ValidationErrors, apply func(*Settings)) (Settings, error) {
	const op = "settings.Update"
	defer s.Call("update_" + group)()

	if errs.HasErrors() {
		s.Rejected(errs)
		return Settings{}, errs
	}
	if err := s.Wait(ctx, SaveDelay); err != nil {
		return Settings{}, errors.Wrap(err, op)
	}

	var saved Settings
	_ = s.settings.Update(func(items []Settings) ([]Settings, error) {
		apply(&items[0])
		saved = items[0]
		return items, nil
	})

	s.Mutated("update_" + group)
	s.Record(ctx, audit.EventSettingsUpdated, group, nil, "%s settings updated", group)
	s.Logger.Info("%s settings updated", group)
	return saved, nil
}

func validateGeneral(g General) core.ValidationErrors {
	v := core.NewValidator()
	v.Check("organizationName", strings.TrimSpace(g.OrganizationName) != "", "Organization name is required")
	if g.Timezone == "" {
		v.Check("timezone", false, "Timezone is required")
	} else {
		_, err := time.LoadLocation(g.Timezone)
		v.Check("timezone", err == nil, "Unknown timezone")
	}
	v.Check("dateFormat", slices.Contains(DateFormats, g.DateFormat), "Invalid date format selected")
	return v.Errors()
}

func validateSecurity(sec Security) core.ValidationErrors {
	v := core.NewValidator()
	v.Check("sessionTimeoutMinutes",
		sec.SessionTimeoutMinutes >= MinSessionTimeout && sec.SessionTimeoutMinutes <= MaxSessionTimeout,
		"Session timeout must be between 5 and 1440 minutes")
	v.Check("passwordMinLength",
		sec.PasswordMinLength >= MinPasswordLength && sec.PasswordMinLength <= MaxPasswordLength,
		"Minimum password length must be between 8 and 128")
	return v.Errors()
}

func validateNotifications(n Notifications) core.ValidationErrors {
	v := core.NewValidator()
	v.Check("digestFrequency", slices.Contains(DigestFrequencies, n.DigestFrequency), "Invalid digest frequency selected")
	v.Check("minSeverity", n.MinSeverity.Valid(), "Invalid minimum severity selected")
	return v.Errors()
}

// Levels lists the severities selectable as notification threshold.
func Levels() []severity.Level {
	return severity.AllLevels()
}

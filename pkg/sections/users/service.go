package users

import (
	"context"
	stderrors "errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/exploopio/vrx-portal/pkg/audit"
	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
	"github.com/exploopio/vrx-portal/pkg/sections"
	"github.com/exploopio/vrx-portal/pkg/store"
)

// Section is the name the users section is registered under.
const Section = "users"

// Simulated backend latencies.
const (
	ListDelay   = 300 * time.Millisecond
	GetDelay    = 100 * time.Millisecond
	CreateDelay = 500 * time.Millisecond
	UpdateDelay = 500 * time.Millisecond
	DeleteDelay = 300 * time.Millisecond
	MissDelay   = 100 * time.Millisecond
	StatsDelay  = 100 * time.Millisecond
)

// Service is the data-access layer of the users section.
type Service struct {
	sections.Service

	users *store.Store[User]
}

// NewService creates the service seeded with the fixtures.
func NewService(deps sections.Deps) *Service {
	return &Service{
		Service: deps.Bind(Section),
		users:   store.New(Fixtures()),
	}
}

// Store exposes the collection for subscribers.
func (s *Service) Store() *store.Store[User] {
	return s.users
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	defer s.Call("list")()

	if err := s.Wait(ctx, ListDelay); err != nil {
		return nil, errors.Wrap(err, "users.List")
	}
	return s.users.Snapshot(), nil
}

// GetByID returns one account or a not-found error.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	const op = "users.GetByID"
	defer s.Call("get")()

	if err := s.Wait(ctx, GetDelay); err != nil {
		return User{}, errors.Wrap(err, op)
	}
	u, ok := s.users.Find(func(u User) bool { return u.ID == id })
	if !ok {
		return User{}, errors.NotFound(op, "User", id)
	}
	return u, nil
}

// Validate checks req against the current accounts and returns every
// violation at once. An empty result means req can be created.
func (s *Service) Validate(req CreateRequest) core.ValidationErrors {
	return validateCreate(s.users.Snapshot(), req)
}

func validateCreate(existing []User, req CreateRequest) core.ValidationErrors {
	v := core.NewValidator()
	v.Check("name", strings.TrimSpace(req.Name) != "", "Name is required")

	switch {
	case strings.TrimSpace(req.Email) == "":
		v.Check("email", false, "Email is required")
	case !core.EmailPattern.MatchString(req.Email):
		v.Check("email", false, "Email format is invalid")
	case emailTaken(existing, req.Email, ""):
		v.Check("email", false, "Email is already taken")
	}

	switch {
	case strings.TrimSpace(string(req.Role)) == "":
		v.Check("role", false, "Role is required")
	case !req.Role.Valid():
		v.Check("role", false, "Invalid role selected")
	}
	return v.Errors()
}

func validateUpdate(existing []User, id string, req UpdateRequest) core.ValidationErrors {
	v := core.NewValidator()
	if req.Name != nil {
		v.Check("name", strings.TrimSpace(*req.Name) != "", "Name is required")
	}
	if req.Email != nil {
		switch {
		case strings.TrimSpace(*req.Email) == "":
			v.Check("email", false, "Email is required")
		case !core.EmailPattern.MatchString(*req.Email):
			v.Check("email", false, "Email format is invalid")
		case emailTaken(existing, *req.Email, id):
			v.Check("email", false, "Email is already taken")
		}
	}
	if req.Role != nil {
		v.Check("role", req.Role.Valid(), "Invalid role selected")
	}
	if req.Status != nil {
		v.Check("status", *req.Status == StatusActive || *req.Status == StatusInactive, "Invalid status selected")
	}
	return v.Errors()
}

// emailTaken compares case-insensitively, skipping the account except.
func emailTaken(users []User, email, except string) bool {
	for _, u := range users {
		if u.ID != except && u.Email != "" && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// nextID returns u<N> with N one past the highest numeric suffix in use, so
// ids stay unique after deletions.
func nextID(users []User) string {
	highest := 0
	for _, u := range users {
		if n, err := strconv.Atoi(strings.TrimPrefix(u.ID, "u")); err == nil && n > highest {
			highest = n
		}
	}
	return "u" + strconv.Itoa(highest+1)
}

// Create validates req and appends the new account. Validation and append
// happen inside one store update, so concurrent creates with the same email
// cannot both succeed. A rejected request returns core.ValidationErrors and
// leaves the store untouched.
func (s *Service) Create(ctx context.Context, req CreateRequest) (User, error) {
	const op = "users.Create"
	defer s.Call("create")()

	if errs := s.Validate(req); errs.HasErrors() {
		s.Rejected(errs)
		return User{}, errs
	}
	if err := s.Wait(ctx, CreateDelay); err != nil {
		return User{}, errors.Wrap(err, op)
	}

	var created User
	err := s.users.Update(func(items []User) ([]User, error) {
		if errs := validateCreate(items, req); errs.HasErrors() {
			return nil, errs
		}
		created = User{
			ID:        nextID(items),
			Name:      strings.TrimSpace(req.Name),
			Email:     strings.TrimSpace(req.Email),
			Role:      req.Role,
			LastLogin: NeverLoggedIn,
			Status:    StatusActive,
			Avatar:    Initials(req.Name),
		}
		return append(items, created), nil
	})
	if err != nil {
		var errs core.ValidationErrors
		if stderrors.As(err, &errs) {
			s.Rejected(errs)
		}
		return User{}, err
	}

	s.Mutated("create")
	s.Record(ctx, audit.EventUserCreated, created.ID,
		map[string]interface{}{"email": created.Email, "role": string(created.Role)},
		"user %s created", created.ID)
	s.Logger.Info("user %s created (%s)", created.ID, created.Role)
	return created, nil
}

// Update merges the non-nil fields of req into the account.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (User, error) {
	const op = "users.Update"
	defer s.Call("update")()

	if _, ok := s.users.Find(func(u User) bool { return u.ID == id }); !ok {
		if err := s.Wait(ctx, MissDelay); err != nil {
			return User{}, errors.Wrap(err, op)
		}
		return User{}, errors.NotFound(op, "User", id)
	}
	if err := s.Wait(ctx, UpdateDelay); err != nil {
		return User{}, errors.Wrap(err, op)
	}

	var updated User
	err := s.users.Update(func(items []User) ([]User, error) {
		i := slices.IndexFunc(items, func(u User) bool { return u.ID == id })
		if i < 0 {
			return nil, errors.NotFound(op, "User", id)
		}
		if errs := validateUpdate(items, id, req); errs.HasErrors() {
			return nil, errs
		}
		u := &items[i]
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
			u.Avatar = Initials(u.Name)
		}
		if req.Email != nil {
			u.Email = strings.TrimSpace(*req.Email)
		}
		if req.Role != nil {
			u.Role = *req.Role
		}
		if req.Status != nil {
			u.Status = *req.Status
		}
		updated = *u
		return items, nil
	})
	if err != nil {
		var errs core.ValidationErrors
		if stderrors.As(err, &errs) {
			s.Rejected(errs)
		}
		return User{}, err
	}

	s.Mutated("update")
	s.Record(ctx, audit.EventUserUpdated, id, map[string]interface{}{"role": string(updated.Role), "status": updated.Status}, "user %s updated", id)
	return updated, nil
}

// Delete removes the account. A missing id returns a not-found error and
// leaves the collection unchanged.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "users.Delete"
	defer s.Call("delete")()

	if _, ok := s.users.Find(func(u User) bool { return u.ID == id }); !ok {
		if err := s.Wait(ctx, MissDelay); err != nil {
			return errors.Wrap(err, op)
		}
		return errors.NotFound(op, "User", id)
	}
	if err := s.Wait(ctx, DeleteDelay); err != nil {
		return errors.Wrap(err, op)
	}

	err := s.users.Update(func(items []User) ([]User, error) {
		i := slices.IndexFunc(items, func(u User) bool { return u.ID == id })
		if i < 0 {
			return nil, errors.NotFound(op, "User", id)
		}
		return slices.Delete(items, i, i+1), nil
	})
	if err != nil {
		return err
	}

	s.Mutated("delete")
	s.Record(ctx, audit.EventUserDeleted, id, nil, "user %s deleted", id)
	s.Logger.Info("user %s deleted", id)
	return nil
}

// Stats counts accounts, those that ever signed in, and admins.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	defer s.Call("stats")()

	if err := s.Wait(ctx, StatsDelay); err != nil {
		return Stats{}, errors.Wrap(err, "users.Stats")
	}
	users := s.users.Snapshot()
	st := Stats{Total: len(users)}
	for _, u := range users {
		if u.LastLogin != NeverLoggedIn {
			st.Active++
		}
		if u.Role == RoleAdmin {
			st.Admins++
		}
	}
	return st, nil
}

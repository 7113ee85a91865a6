package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
// It is a validation error so that both cases look the same to the caller.
var ErrInvalidCredentials = util.Validationf("invalid credentials")

// Login checks an operator's credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if s.tokens == nil || s.hasher == nil {
		return "", nil, errors.New("authentication is not configured")
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, util.Validationf("email and password are required")
	}

	u, err := s.user.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	ok, err := s.hasher.Compare(u.PasswordHash, password)
	if err != nil {
		return "", nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}

	log.FromContext(ctx).Info("Operator signed in", "userID", u.ID)
	return token, u, nil
}

// RegisterUser creates an operator account. An empty role defaults to model.DefaultRole.
func (s *Service) RegisterUser(ctx context.Context, email, password, role string) (*model.User, error) {
	if s.hasher == nil {
		return nil, errors.New("authentication is not configured")
	}

	email = normalizeEmail(email)
	role = strings.TrimSpace(role)
	if email == "" || password == "" {
		return nil, util.Validationf("email and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, util.Validationf("email %q is not valid", email)
	}
	if role == "" {
		role = model.DefaultRole
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.user.Create(ctx, u); err != nil {
		return nil, err
	}

	log.FromContext(ctx).Info("Operator registered", "userID", u.ID, "role", u.Role)
	return u, nil
}

// EnsureUser creates the operator unless an account with that email already exists.
func (s *Service) EnsureUser(ctx context.Context, email, password, role string) error {
	_, err := s.user.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, util.ErrNotFound):
		return err
	}

	_, err = s.RegisterUser(ctx, email, password, role)
	if errors.Is(err, util.ErrConflict) {
		return nil
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

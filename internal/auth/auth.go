// Package auth checks operator credentials and tracks signed-in sessions.
//
// There is no identity service behind the portal. Operator accounts (admin and
// sales) are provisioned from configuration into storage with bcrypt hashes;
// job seekers and companies sign in without a credential check.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/jobportal/internal/storage"
)

// Role is what a signed-in user may do.
type Role string

const (
	RoleJobSeeker Role = "jobseeker"
	RoleCompany   Role = "company"
	RoleAdmin     Role = "admin"
	RoleSales     Role = "sales"
)

// ParseRole accepts the four role names in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleJobSeeker, RoleCompany, RoleAdmin, RoleSales:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Operator reports whether r is a back-office role that needs a credential check.
func (r Role) Operator() bool {
	return r == RoleAdmin || r == RoleSales
}

// CredentialChecker answers whether secret is valid for identifier.
type CredentialChecker interface {
	Check(ctx context.Context, identifier, secret string) (bool, error)
}

// CheckerFunc adapts a function to CredentialChecker.
type CheckerFunc func(ctx context.Context, identifier, secret string) (bool, error)

func (f CheckerFunc) Check(ctx context.Context, identifier, secret string) (bool, error) {
	return f(ctx, identifier, secret)
}

// OperatorStore is the part of storage that holds operator accounts.
type OperatorStore interface {
	GetOperator(ctx context.Context, email string) (storage.Operator, error)
	UpsertOperator(ctx context.Context, op storage.Operator) error
}

// StoreChecker verifies operator credentials for one role against stored
// bcrypt hashes.
type StoreChecker struct {
	store OperatorStore
	role  Role
}

func NewStoreChecker(store OperatorStore, role Role) *StoreChecker {
	return &StoreChecker{store: store, role: role}
}

func (c *StoreChecker) Check(ctx context.Context, identifier, secret string) (bool, error) {
	email := NormalizeEmail(identifier)
	if email == "" || secret == "" {
		return false, nil
	}
	op, err := c.store.GetOperator(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up operator: %w", err)
	}
	if Role(op.Role) != c.role {
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("comparing password hash: %w", err)
	}
	return true, nil
}

// Checkers returns a StoreChecker for every operator role.
func Checkers(store OperatorStore) map[Role]CredentialChecker {
	return map[Role]CredentialChecker{
		RoleAdmin: NewStoreChecker(store, RoleAdmin),
		RoleSales: NewStoreChecker(store, RoleSales),
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HashCost is the bcrypt cost used for new hashes.
var HashCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of secret.
func HashPassword(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), HashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// Account is an operator account to provision.
type Account struct {
	Email    string
	Role     Role
	Password string
}

// Provision upserts every complete account and returns how many were written.
// Accounts without an email or password are skipped.
func Provision(ctx context.Context, store OperatorStore, accounts []Account) (int, error) {
	n := 0
	for _, a := range accounts {
		email := NormalizeEmail(a.Email)
		if email == "" || a.Password == "" {
			continue
		}
		if !a.Role.Operator() {
			return n, fmt.Errorf("provisioning %s: %q is not an operator role", email, a.Role)
		}
		hash, err := HashPassword(a.Password)
		if err != nil {
			return n, err
		}
		if err := store.UpsertOperator(ctx, storage.Operator{Email: email, Role: string(a.Role), PasswordHash: hash}); err != nil {
			return n, fmt.Errorf("provisioning %s: %w", email, err)
		}
		n++
	}
	return n, nil
}

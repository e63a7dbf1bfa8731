// Package models holds the account record and the principal types handed
// out by the authentication layer.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is the persisted identity, credential and status record.
//
// EmailAddress is the natural key. Password holds an encoded hash or the
// unusable sentinel, never the raw secret.
type Account struct {
	ID            uuid.UUID
	EmailAddress  string
	Password      string
	IsActive      bool
	IsStaff       bool
	IsSuperuser   bool
	CreatedAt     time.Time
	DeactivatedAt *time.Time
	LastLogin     *time.Time
	CreatedByID   uuid.UUID
}

// NewAccount returns an unsaved account with a fresh id and the field
// defaults: active, not staff, not superuser.
func NewAccount(email string) *Account {
	return &Account{
		ID:           uuid.New(),
		EmailAddress: email,
		IsActive:     true,
	}
}

// Username returns the natural key.
func (a *Account) Username() string { return a.EmailAddress }

// NaturalKey returns the natural key as used by fixtures and lookups.
func (a *Account) NaturalKey() []string { return []string{a.EmailAddress} }

// IsSelfCreated reports whether the account references itself as creator.
// Only the system account does.
func (a *Account) IsSelfCreated() bool {
	return a.CreatedByID != uuid.Nil && a.CreatedByID == a.ID
}

// HasPerm reports whether the account holds perm. There is no permission
// table: active superusers hold every permission, everyone else none.
func (a *Account) HasPerm(perm string) bool {
	return a.IsActive && a.IsSuperuser
}

// HasModulePerms reports whether the account holds any permission in the
// given application label.
func (a *Account) HasModulePerms(label string) bool {
	return a.IsActive && a.IsSuperuser
}

func (a *Account) String() string {
	return fmt.Sprintf("<Account(id=%s, email_address=%q)>", a.ID, a.EmailAddress)
}

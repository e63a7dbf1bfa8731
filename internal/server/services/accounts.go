// Package services contains server-side business logic. This file
// implements AccountService, the account store: creation, validation,
// normalization, deactivation and the self-created system account.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/dbx"
	"github.com/dmitrijs2005/fdaccounts/internal/emailx"
	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/metrics"
	"github.com/dmitrijs2005/fdaccounts/internal/server/config"
	"github.com/dmitrijs2005/fdaccounts/internal/server/hashers"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/fdaccounts/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	fieldEmailAddress = "email_address"
	fieldPassword     = "password"
	fieldCreatedBy    = "created_by"
)

// AccountService owns the account records.
//
// Every write goes through a full clean: the email address is normalized
// and validated, the password field must be set and the creator must
// exist. The only write that skips the creator check is the first insert
// of the system account, which references itself.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hashers     *hashers.Registry
	systemEmail string
	logger      logging.Logger
	now         func() time.Time
}

// NewAccountService constructs an AccountService. The system account email
// comes from cfg.SystemUsername, which Config.Validate has checked.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, h *hashers.Registry, cfg *config.Config, logger logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		hashers:     h,
		systemEmail: emailx.Normalize(cfg.SystemUsername),
		logger:      logger.With("module", "accounts"),
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

type createOptions struct {
	password    *string
	isStaff     *bool
	isSuperuser *bool
	isActive    *bool
	createdBy   *uuid.UUID
}

// CreateOption customizes Create and CreateSuperuser.
type CreateOption func(*createOptions)

// WithPassword sets the raw password. An empty password, like no password
// at all, leaves the account with an unusable one.
func WithPassword(raw string) CreateOption {
	return func(o *createOptions) { o.password = &raw }
}

func WithStaff(v bool) CreateOption {
	return func(o *createOptions) { o.isStaff = &v }
}

func WithSuperuser(v bool) CreateOption {
	return func(o *createOptions) { o.isSuperuser = &v }
}

func WithActive(v bool) CreateOption {
	return func(o *createOptions) { o.isActive = &v }
}

// WithCreatedBy records creatorID as the creator. Without it the system
// account is the creator.
func WithCreatedBy(creatorID uuid.UUID) CreateOption {
	return func(o *createOptions) { o.createdBy = &creatorID }
}

// Create persists a new account. It fails with a validation error on field
// email_address if email is empty or invalid, or if another account already
// has the same normalized address.
func (s *AccountService) Create(ctx context.Context, email string, opts ...CreateOption) (*models.Account, error) {
	o := &createOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return s.create(ctx, email, o, metrics.KindRegular)
}

// CreateSuperuser is Create with is_staff and is_superuser defaulting to,
// and required to be, true. Passing either as false fails with
// common.ErrorInvalidValue and persists nothing.
func (s *AccountService) CreateSuperuser(ctx context.Context, email, password string, opts ...CreateOption) (*models.Account, error) {
	o := &createOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.isStaff != nil && !*o.isStaff {
		return nil, fmt.Errorf("%w: superuser must have is_staff=true", common.ErrorInvalidValue)
	}
	if o.isSuperuser != nil && !*o.isSuperuser {
		return nil, fmt.Errorf("%w: superuser must have is_superuser=true", common.ErrorInvalidValue)
	}
	yes := true
	o.isStaff, o.isSuperuser = &yes, &yes
	o.password = &password
	return s.create(ctx, email, o, metrics.KindSuperuser)
}

func (s *AccountService) create(ctx context.Context, email string, o *createOptions, kind string) (*models.Account, error) {
	if email == "" {
		return nil, common.NewFieldError(fieldEmailAddress, "the given email address must be set")
	}

	a := models.NewAccount(emailx.Normalize(email))
	if o.isStaff != nil {
		a.IsStaff = *o.isStaff
	}
	if o.isSuperuser != nil {
		a.IsSuperuser = *o.isSuperuser
	}
	if o.isActive != nil {
		a.IsActive = *o.isActive
	}
	if err := s.setPassword(a, o.password); err != nil {
		return nil, err
	}

	if o.createdBy != nil {
		a.CreatedByID = *o.createdBy
	} else {
		system, err := s.GetOrCreateSystemAccount(ctx)
		if err != nil {
			return nil, err
		}
		a.CreatedByID = system.ID
	}
	a.CreatedAt = s.now()

	if err := s.save(ctx, s.repomanager.Accounts(s.db), a, true); err != nil {
		return nil, err
	}

	metrics.IncAccountCreated(kind)
	s.logger.Info(ctx, "account created", "id", a.ID, "created_by", a.CreatedByID, "kind", kind)
	return a, nil
}

// GetOrCreateSystemAccount returns the account whose email is the
// configured system email, creating it on first use.
//
// Concurrent first callers race on the unique email constraint; the losers
// re-fetch the winner's row, so exactly one system account is persisted.
func (s *AccountService) GetOrCreateSystemAccount(ctx context.Context) (*models.Account, error) {
	a, _, err := s.getOrCreateSystemAccount(ctx)
	return a, err
}

// Bootstrap makes sure the system account exists. Call it once at startup.
func (s *AccountService) Bootstrap(ctx context.Context) (*models.Account, error) {
	a, created, err := s.getOrCreateSystemAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap system account: %w", err)
	}
	s.logger.Info(ctx, "system account ready", "id", a.ID, "email_address", a.EmailAddress, "created", created)
	return a, nil
}

func (s *AccountService) getOrCreateSystemAccount(ctx context.Context) (*models.Account, bool, error) {
	if s.systemEmail == "" {
		return nil, false, fmt.Errorf("%w: setting 'system_username' must be set", common.ErrorImproperlyConfigured)
	}

	repo := s.repomanager.Accounts(s.db)
	a, err := repo.GetByEmail(ctx, s.systemEmail)
	if err == nil {
		return a, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, err
	}

	a = models.NewAccount(s.systemEmail)
	a.CreatedByID = a.ID
	a.IsStaff = true
	a.IsSuperuser = true
	a.Password = s.hashers.MakeUnusable()
	a.CreatedAt = s.now()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := s.repomanager.Accounts(tx)
		// the creator is the row being inserted, so it cannot be checked yet
		if err := s.save(ctx, txRepo, a, false); err != nil {
			return err
		}
		return s.save(ctx, txRepo, a, true)
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		s.logger.Debug(ctx, "system account created concurrently, re-fetching", "email_address", s.systemEmail)
		a, err = repo.GetByEmail(ctx, s.systemEmail)
		if err != nil {
			return nil, false, err
		}
		return a, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	metrics.IncAccountCreated(metrics.KindSystem)
	s.logger.Info(ctx, "system account created", "id", a.ID)
	return a, true, nil
}

// Deactivate marks a inactive and stamps DeactivatedAt on the first call.
// Repeated calls keep the original timestamp. On a failed save a is left
// as it was.
func (s *AccountService) Deactivate(ctx context.Context, a *models.Account) error {
	wasActive, deactivatedAt := a.IsActive, a.DeactivatedAt
	first := a.DeactivatedAt == nil
	a.IsActive = false
	if first {
		t := s.now()
		a.DeactivatedAt = &t
	}
	if err := s.Save(ctx, a); err != nil {
		a.IsActive, a.DeactivatedAt = wasActive, deactivatedAt
		return err
	}
	if first {
		metrics.IncDeactivation()
		s.logger.Info(ctx, "account deactivated", "id", a.ID)
	}
	return nil
}

// Save runs the full clean on a and persists it.
func (s *AccountService) Save(ctx context.Context, a *models.Account) error {
	return s.save(ctx, s.repomanager.Accounts(s.db), a, true)
}

func (s *AccountService) save(ctx context.Context, repo accounts.Repository, a *models.Account, checkCreator bool) error {
	if err := s.clean(ctx, repo, a, checkCreator); err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}

	err := repo.Save(ctx, a)
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return &common.FieldError{Field: fieldEmailAddress, Msg: "account with this email address already exists", Err: common.ErrorAlreadyExists}
	case errors.Is(err, common.ErrorReferential):
		return &common.FieldError{Field: fieldCreatedBy, Msg: fmt.Sprintf("account %s does not exist", a.CreatedByID), Err: common.ErrorReferential}
	}
	return err
}

// clean normalizes a in place and validates it. The email address is
// normalized on every save because a may have been changed in memory.
func (s *AccountService) clean(ctx context.Context, repo accounts.Repository, a *models.Account, checkCreator bool) error {
	a.EmailAddress = emailx.Normalize(a.EmailAddress)
	if a.EmailAddress == "" {
		return common.NewFieldError(fieldEmailAddress, "this field cannot be blank")
	}
	if !emailx.IsValid(a.EmailAddress) {
		return &common.FieldError{Field: fieldEmailAddress, Msg: "enter a valid email address", Err: common.ErrorInvalidValue}
	}
	if a.Password == "" {
		return common.NewFieldError(fieldPassword, "this field cannot be blank")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedByID == uuid.Nil {
		return common.NewFieldError(fieldCreatedBy, "this field cannot be null")
	}
	if a.IsSelfCreated() && a.EmailAddress != s.systemEmail {
		return &common.FieldError{Field: fieldCreatedBy, Msg: "only the system account may reference itself", Err: common.ErrorReferential}
	}

	if !checkCreator {
		return nil
	}
	if _, err := repo.GetByID(ctx, a.CreatedByID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &common.FieldError{Field: fieldCreatedBy, Msg: fmt.Sprintf("account %s does not exist", a.CreatedByID), Err: common.ErrorReferential}
		}
		return err
	}
	return nil
}

// GetByID returns the account or common.ErrorNotFound.
func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByID(ctx, id)
}

// GetByNaturalKey looks an account up by email address. The key is
// normalized first.
func (s *AccountService) GetByNaturalKey(ctx context.Context, email string) (*models.Account, error) {
	return s.repomanager.Accounts(s.db).GetByEmail(ctx, emailx.Normalize(email))
}

// ListCreatedBy returns the accounts whose creator is creatorID.
func (s *AccountService) ListCreatedBy(ctx context.Context, creatorID uuid.UUID) ([]*models.Account, error) {
	return s.repomanager.Accounts(s.db).ListCreatedBy(ctx, creatorID)
}

// SetPassword encodes raw with the preferred hasher and saves a.
func (s *AccountService) SetPassword(ctx context.Context, a *models.Account, raw string) error {
	if err := s.setPassword(a, &raw); err != nil {
		return err
	}
	return s.Save(ctx, a)
}

// SetUnusablePassword makes a unable to authenticate by password and saves it.
func (s *AccountService) SetUnusablePassword(ctx context.Context, a *models.Account) error {
	a.Password = s.hashers.MakeUnusable()
	return s.Save(ctx, a)
}

// HasUsablePassword reports whether a has a password that can ever verify.
func (s *AccountService) HasUsablePassword(a *models.Account) bool {
	return hashers.IsUsable(a.Password)
}

// UpdateLastLogin stamps a's last_login. Only that column is written.
func (s *AccountService) UpdateLastLogin(ctx context.Context, a *models.Account) error {
	t := s.now()
	if err := s.repomanager.Accounts(s.db).UpdateLastLogin(ctx, a.ID, t); err != nil {
		return err
	}
	a.LastLogin = &t
	return nil
}

func (s *AccountService) setPassword(a *models.Account, raw *string) error {
	if raw == nil || *raw == "" {
		a.Password = s.hashers.MakeUnusable()
		return nil
	}
	encoded, err := s.hashers.Make(*raw)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.Password = encoded
	return nil
}

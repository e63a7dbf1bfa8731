package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/server/auth"
	"github.com/dmitrijs2005/fdaccounts/internal/server/backends"
	"github.com/dmitrijs2005/fdaccounts/internal/server/config"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
)

// LoginResult is what a successful login hands back.
type LoginResult struct {
	AccessToken string
	Principal   models.Authenticated
}

// SessionService turns a successful authentication into a signed access
// token and resolves tokens back into principals.
type SessionService struct {
	accounts                    *AccountService
	chain                       *backends.Chain
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
}

func NewSessionService(accounts *AccountService, chain *backends.Chain, cfg *config.Config, logger logging.Logger) *SessionService {
	return &SessionService{
		accounts:                    accounts,
		chain:                       chain,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger.With("module", "sessions"),
	}
}

// Login authenticates creds through the backend chain, records the login
// time and mints an access token. No match yields common.ErrorUnauthorized.
func (s *SessionService) Login(ctx context.Context, creds backends.Credentials) (*LoginResult, error) {
	p, err := s.chain.Authenticate(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	authenticated, ok := p.(models.Authenticated)
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	if err := s.accounts.UpdateLastLogin(ctx, authenticated.Account); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	token, err := auth.GenerateToken(authenticated.Account.ID.String(), authenticated.Backend, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "logged in", "id", authenticated.Account.ID, "backend", authenticated.Backend)
	return &LoginResult{AccessToken: token, Principal: authenticated}, nil
}

// Resolve returns the principal behind token. Invalid or expired tokens and
// accounts that can no longer authenticate resolve to Anonymous.
func (s *SessionService) Resolve(ctx context.Context, token string) (models.Principal, error) {
	if token == "" {
		return models.Anonymous{}, nil
	}
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		if !errors.Is(err, common.ErrTokenExpired) {
			s.logger.Debug(ctx, "rejected access token", "error", err)
		}
		return models.Anonymous{}, nil
	}
	return s.chain.GetUser(ctx, claims.Backend, claims.AccountID)
}

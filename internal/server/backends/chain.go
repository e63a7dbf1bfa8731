package backends

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/metrics"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
)

// Chain tries its backends in order. The first one that returns an account
// wins.
type Chain struct {
	backends []Backend
	logger   logging.Logger
}

func NewChain(logger logging.Logger, backends ...Backend) *Chain {
	return &Chain{backends: backends, logger: logger.With("module", "backends")}
}

// Authenticate returns an Authenticated principal for the first backend that
// accepts creds, and Anonymous when none does. A backend that does not
// understand the shape of creds is skipped; any other backend error aborts
// the chain.
func (c *Chain) Authenticate(ctx context.Context, creds Credentials) (models.Principal, error) {
	for _, b := range c.backends {
		a, err := b.Authenticate(ctx, creds)
		if errors.Is(err, ErrMissingIdentity) {
			metrics.IncAuthentication(metrics.OutcomeSkipped)
			c.logger.Debug(ctx, "backend skipped", "backend", b.Name(), "error", err)
			continue
		}
		if err != nil {
			metrics.IncAuthentication(metrics.OutcomeError)
			c.logger.Error(ctx, "authentication error", "backend", b.Name(), "error", err)
			return models.Anonymous{}, err
		}
		if a != nil {
			metrics.IncAuthentication(metrics.OutcomeSuccess)
			return models.Authenticated{Account: a, Backend: b.Name()}, nil
		}
	}

	metrics.IncAuthentication(metrics.OutcomeFailure)
	c.logger.Info(ctx, "authentication failed")
	return models.Anonymous{}, nil
}

// GetUser resolves id through the backend named backendName. Unknown
// backends and missing accounts yield Anonymous.
func (c *Chain) GetUser(ctx context.Context, backendName, id string) (models.Principal, error) {
	for _, b := range c.backends {
		if b.Name() != backendName {
			continue
		}
		a, err := b.GetUser(ctx, id)
		if err != nil {
			return models.Anonymous{}, err
		}
		if a == nil {
			return models.Anonymous{}, nil
		}
		return models.Authenticated{Account: a, Backend: b.Name()}, nil
	}
	return models.Anonymous{}, nil
}

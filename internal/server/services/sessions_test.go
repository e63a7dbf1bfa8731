package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/logging"
	"github.com/dmitrijs2005/fdaccounts/internal/server/auth"
	"github.com/dmitrijs2005/fdaccounts/internal/server/backends"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(t *testing.T, env *testEnv) *SessionService {
	t.Helper()
	backend := backends.NewModelBackend(env.accounts, env.hashers, logging.Nop{})
	chain := backends.NewChain(logging.Nop{}, backend)
	return NewSessionService(env.accounts, chain, env.cfg, logging.Nop{})
}

func login(email, password string) backends.Credentials {
	return backends.Credentials{backends.KeyUsername: email, backends.KeyPassword: password}
}

func TestLogin_Scenario(t *testing.T) {
	env := newTestEnv(t)
	sessions := newSessionService(t, env)
	ctx := context.Background()

	a, err := env.accounts.Create(ctx, "a@example.com", WithPassword("p1"))
	require.NoError(t, err)

	res, err := sessions.Login(ctx, login("a@example.com", "p1"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.Principal.Account.ID)
	assert.Equal(t, backends.ModelBackendName, res.Principal.Backend)
	assert.NotEmpty(t, res.AccessToken)

	_, err = sessions.Login(ctx, login("a@example.com", "wrong"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	require.NoError(t, env.accounts.Deactivate(ctx, a))
	_, err = sessions.Login(ctx, login("a@example.com", "p1"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_UnknownAndMalformedIdentity(t *testing.T) {
	env := newTestEnv(t)
	sessions := newSessionService(t, env)
	ctx := context.Background()

	for _, creds := range []backends.Credentials{
		login("ghost@example.com", "p1"),
		login("", "p1"),
		login("not an email", "p1"),
		{backends.KeyPassword: "p1"},
	} {
		_, err := sessions.Login(ctx, creds)
		assert.ErrorIs(t, err, common.ErrorUnauthorized, "%v", creds)
	}
}

func TestLogin_UpdatesLastLogin(t *testing.T) {
	env := newTestEnv(t)
	sessions := newSessionService(t, env)
	ctx := context.Background()

	a, err := env.accounts.Create(ctx, "a@example.com", WithPassword("p1"))
	require.NoError(t, err)
	require.Nil(t, a.LastLogin)

	_, err = sessions.Login(ctx, login("A@EXAMPLE.COM", "p1"))
	require.Error(t, err, "the local part is case sensitive")

	res, err := sessions.Login(ctx, login("a@EXAMPLE.COM", "p1"))
	require.NoError(t, err)

	stored, err := env.accounts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, res.Principal.Account.LastLogin.Equal(*stored.LastLogin))
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	sessions := newSessionService(t, env)
	ctx := context.Background()

	a, err := env.accounts.Create(ctx, "a@example.com", WithPassword("p1"))
	require.NoError(t, err)
	res, err := sessions.Login(ctx, login("a@example.com", "p1"))
	require.NoError(t, err)

	p, err := sessions.Resolve(ctx, res.AccessToken)
	require.NoError(t, err)
	require.True(t, p.IsAuthenticated())
	got, err := models.AccountOf(p)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, env.accounts.Deactivate(ctx, a))
	p, err = sessions.Resolve(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Anonymous{}, p, "inactive accounts resolve to anonymous")
}

func TestResolve_BadTokens(t *testing.T) {
	env := newTestEnv(t)
	sessions := newSessionService(t, env)
	ctx := context.Background()

	a, err := env.accounts.Create(ctx, "a@example.com", WithPassword("p1"))
	require.NoError(t, err)

	expired, err := auth.GenerateToken(a.ID.String(), backends.ModelBackendName, []byte(env.cfg.SecretKey), -time.Minute)
	require.NoError(t, err)
	forged, err := auth.GenerateToken(a.ID.String(), backends.ModelBackendName, []byte("other-secret"), time.Hour)
	require.NoError(t, err)
	unknownBackend, err := auth.GenerateToken(a.ID.String(), "ldap", []byte(env.cfg.SecretKey), time.Hour)
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", expired, forged, unknownBackend} {
		p, err := sessions.Resolve(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, models.Anonymous{}, p)
	}
}

func TestLogin_SystemAccountCannotLogIn(t *testing.T) {
	env := newTestEnv(t)
	sessions := newSessionService(t, env)
	ctx := context.Background()

	system, err := env.accounts.Bootstrap(ctx)
	require.NoError(t, err)

	for _, pw := range []string{"", "!", system.Password} {
		_, err := sessions.Login(ctx, login(testSystemEmail, pw))
		assert.ErrorIs(t, err, common.ErrorUnauthorized)
	}
}

package grpc

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
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: fullMethod(MethodWhoAmI)}

func capturePrincipal(ctx context.Context, t *testing.T, s *GRPCServer) models.Principal {
	t.Helper()
	var got models.Principal
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		got = principalFrom(ctx)
		return "ok", nil
	}
	resp, err := s.principalInterceptor(ctx, nil, testInfo, h)
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	return got
}

func TestInterceptor_NoTokenIsAnonymous(t *testing.T) {
	s := &GRPCServer{logger: logging.Nop{}}

	got := capturePrincipal(context.Background(), t, s)
	assert.Equal(t, models.Anonymous{}, got)
}

func TestInterceptor_ValidTokenResolvesAccount(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.sessions.Login(context.Background(), backends.Credentials{
		backends.KeyUsername: testRootEmail,
		backends.KeyPassword: testRootPass,
	})
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, res.AccessToken))
	got := capturePrincipal(ctx, t, env.server)

	require.True(t, got.IsAuthenticated())
	a, err := models.AccountOf(got)
	require.NoError(t, err)
	assert.Equal(t, env.root.ID, a.ID)
}

func TestInterceptor_BadTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "not-a-jwt"))
	got := capturePrincipal(ctx, t, env.server)
	assert.False(t, got.IsAuthenticated())
}

func TestInterceptor_ExpiredTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	tok, err := auth.GenerateToken(env.root.ID.String(), backends.ModelBackendName, []byte("test-secret"), -time.Minute)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, tok))
	got := capturePrincipal(ctx, t, env.server)
	assert.False(t, got.IsAuthenticated())
}

func TestRequirePerm(t *testing.T) {
	active := &models.Account{IsActive: true, IsSuperuser: true}
	plain := &models.Account{IsActive: true}
	inactive := &models.Account{IsActive: false, IsSuperuser: true}

	tests := []struct {
		name string
		p    models.Principal
		want codes.Code
	}{
		{name: "anonymous", p: models.Anonymous{}, want: codes.Unauthenticated},
		{name: "plain account", p: models.Authenticated{Account: plain}, want: codes.PermissionDenied},
		{name: "inactive superuser", p: models.Authenticated{Account: inactive}, want: codes.PermissionDenied},
		{name: "active superuser", p: models.Authenticated{Account: active}, want: codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.WithValue(context.Background(), principalKey, tt.p)
			a, err := requirePerm(ctx, permAddAccount)
			assert.Equal(t, tt.want, status.Code(err))
			if tt.want == codes.OK {
				assert.Same(t, active, a)
			}
		})
	}
}

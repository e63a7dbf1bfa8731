package grpc

import (
	"context"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

// principalInterceptor resolves the access token, if any, into the
// principal of the call. Calls without a usable token run as Anonymous;
// the handlers decide what needs authentication.
func (s *GRPCServer) principalInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}

	var p models.Principal = models.Anonymous{}
	if accessToken != "" {
		resolved, err := s.sessions.Resolve(ctx, accessToken)
		if err != nil {
			s.logger.Error(ctx, "resolve access token", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
		p = resolved
	}

	return handler(context.WithValue(ctx, principalKey, p), req)
}

func principalFrom(ctx context.Context) models.Principal {
	if p, ok := ctx.Value(principalKey).(models.Principal); ok {
		return p
	}
	return models.Anonymous{}
}

// requirePerm returns the caller's account if it holds perm.
func requirePerm(ctx context.Context, perm string) (*models.Account, error) {
	p := principalFrom(ctx)
	if !p.IsAuthenticated() {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	if !p.HasPerm(perm) {
		return nil, status.Error(codes.PermissionDenied, "permission denied")
	}
	return models.AccountOf(p)
}

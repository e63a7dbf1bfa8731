package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"github.com/dmitrijs2005/fdaccounts/internal/server/backends"
	"github.com/dmitrijs2005/fdaccounts/internal/server/models"
	"github.com/dmitrijs2005/fdaccounts/internal/server/services"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	permAddAccount    = "accounts.add_account"
	permChangeAccount = "accounts.change_account"
	permViewAccount   = "accounts.view_account"
)

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	creds := backends.Credentials{}
	for k, v := range req.GetFields() {
		if sv, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			creds[k] = sv.StringValue
		}
	}

	res, err := s.sessions.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		}
		return nil, s.toStatus(ctx, err)
	}

	account, err := accountToMap(s.accounts, res.Principal.Account)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{
		"access_token": res.AccessToken,
		"account":      account,
	})
}

func (s *GRPCServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	a, err := models.AccountOf(principalFrom(ctx))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	return s.accountReply(ctx, a)
}

func (s *GRPCServer) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := requirePerm(ctx, permAddAccount)
	if err != nil {
		return nil, err
	}

	opts := []services.CreateOption{services.WithCreatedBy(caller.ID)}
	if v, ok := stringField(req, "password"); ok {
		opts = append(opts, services.WithPassword(v))
	}
	if v, ok := boolField(req, "is_staff"); ok {
		opts = append(opts, services.WithStaff(v))
	}
	if v, ok := boolField(req, "is_superuser"); ok {
		opts = append(opts, services.WithSuperuser(v))
	}
	if v, ok := boolField(req, "is_active"); ok {
		opts = append(opts, services.WithActive(v))
	}

	email, _ := stringField(req, "email_address")
	a, err := s.accounts.Create(ctx, email, opts...)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.accountReply(ctx, a)
}

func (s *GRPCServer) CreateSuperuser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := requirePerm(ctx, permAddAccount)
	if err != nil {
		return nil, err
	}

	opts := []services.CreateOption{services.WithCreatedBy(caller.ID)}
	if v, ok := boolField(req, "is_staff"); ok {
		opts = append(opts, services.WithStaff(v))
	}
	if v, ok := boolField(req, "is_superuser"); ok {
		opts = append(opts, services.WithSuperuser(v))
	}

	email, _ := stringField(req, "email_address")
	password, _ := stringField(req, "password")
	a, err := s.accounts.CreateSuperuser(ctx, email, password, opts...)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.accountReply(ctx, a)
}

func (s *GRPCServer) GetAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requirePerm(ctx, permViewAccount); err != nil {
		return nil, err
	}
	a, err := s.accountByID(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.accountReply(ctx, a)
}

func (s *GRPCServer) Deactivate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requirePerm(ctx, permChangeAccount); err != nil {
		return nil, err
	}
	a, err := s.accountByID(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Deactivate(ctx, a); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return s.accountReply(ctx, a)
}

func (s *GRPCServer) ListCreatedBy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := requirePerm(ctx, permViewAccount); err != nil {
		return nil, err
	}
	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	list, err := s.accounts.ListCreatedBy(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	items := make([]any, 0, len(list))
	for _, a := range list {
		m, err := accountToMap(s.accounts, a)
		if err != nil {
			return nil, s.toStatus(ctx, err)
		}
		items = append(items, m)
	}
	return structpb.NewStruct(map[string]any{"accounts": items})
}

func (s *GRPCServer) accountByID(ctx context.Context, req *structpb.Struct) (*models.Account, error) {
	id, err := idField(req)
	if err != nil {
		return nil, err
	}
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return a, nil
}

func (s *GRPCServer) accountReply(ctx context.Context, a *models.Account) (*structpb.Struct, error) {
	m, err := accountToMap(s.accounts, a)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return st, nil
}

// toStatus maps service errors to gRPC status codes. Unknown errors are
// logged and hidden behind codes.Internal.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	var fe *common.FieldError
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.As(err, &fe), errors.Is(err, common.ErrorInvalidValue):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "account not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, common.ErrorPermissionDenied):
		return status.Error(codes.PermissionDenied, "permission denied")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(req *structpb.Struct, name string) (string, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", false
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return sv.StringValue, true
}

func boolField(req *structpb.Struct, name string) (bool, bool) {
	v, ok := req.GetFields()[name]
	if !ok {
		return false, false
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, false
	}
	return bv.BoolValue, true
}

func idField(req *structpb.Struct) (uuid.UUID, error) {
	raw, _ := stringField(req, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "id: must be a valid uuid")
	}
	return id, nil
}

// accountToMap renders a for the wire. The password hash never leaves the
// server; only whether it is usable.
func accountToMap(svc *services.AccountService, a *models.Account) (map[string]any, error) {
	if a == nil {
		return nil, common.ErrorNotFound
	}
	return map[string]any{
		"id":                  a.ID.String(),
		"email_address":       a.EmailAddress,
		"is_active":           a.IsActive,
		"is_staff":            a.IsStaff,
		"is_superuser":        a.IsSuperuser,
		"has_usable_password": svc.HasUsablePassword(a),
		"created_at":          formatTime(&a.CreatedAt),
		"deactivated_at":      formatTime(a.DeactivatedAt),
		"last_login":          formatTime(a.LastLogin),
		"created_by":          a.CreatedByID.String(),
	}, nil
}

func formatTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

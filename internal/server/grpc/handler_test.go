package grpc

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/fdaccounts/internal/server/backends"
	"github.com/dmitrijs2005/fdaccounts/internal/server/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func newStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func field(s *structpb.Struct, name string) *structpb.Value {
	return s.GetFields()[name]
}

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, status.Code(err), "error: %v", err)
}

func TestLogin_ReturnsTokenAndAccount(t *testing.T) {
	env := newTestEnv(t)
	c, _ := env.client(t)

	out, err := c.Login(context.Background(), map[string]string{
		backends.KeyEmailAddress: testRootEmail,
		backends.KeyPassword:     testRootPass,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, field(out, "access_token").GetStringValue())
	assert.Equal(t, c.AccessToken(), field(out, "access_token").GetStringValue())

	account := field(out, "account").GetStructValue()
	require.NotNil(t, account)
	assert.Equal(t, env.root.ID.String(), field(account, "id").GetStringValue())
	assert.NotEmpty(t, field(account, "last_login").GetStringValue())
	assert.Nil(t, field(account, "password"))
}

func TestLogin_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		creds map[string]string
	}{
		{name: "wrong password", creds: map[string]string{backends.KeyUsername: testRootEmail, backends.KeyPassword: "nope"}},
		{name: "unknown account", creds: map[string]string{backends.KeyUsername: "ghost@example.com", backends.KeyPassword: "x"}},
		{name: "no identity", creds: map[string]string{backends.KeyPassword: testRootPass}},
		{name: "system account", creds: map[string]string{backends.KeyUsername: testSystemEmail, backends.KeyPassword: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := env.client(t)
			_, err := c.Login(ctx, tt.creds)
			requireCode(t, err, codes.Unauthenticated)
			assert.Empty(t, c.AccessToken())
		})
	}
}

func TestWhoAmI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	anon, _ := env.client(t)
	_, err := anon.WhoAmI(ctx)
	requireCode(t, err, codes.Unauthenticated)

	anon.SetAccessToken("garbage")
	_, err = anon.WhoAmI(ctx)
	requireCode(t, err, codes.Unauthenticated)

	out, err := env.rootClient(t).WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, testRootEmail, field(out, "email_address").GetStringValue())
	assert.True(t, field(out, "is_superuser").GetBoolValue())
}

func TestCreateAccount_SetsCallerAsCreator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.rootClient(t)

	out, err := c.CreateAccount(ctx, newStruct(t, map[string]any{
		"email_address": "Alice@EXAMPLE.com",
		"password":      "alice-pass",
		"is_staff":      true,
	}))
	require.NoError(t, err)

	assert.Equal(t, "Alice@example.com", field(out, "email_address").GetStringValue())
	assert.Equal(t, env.root.ID.String(), field(out, "created_by").GetStringValue())
	assert.True(t, field(out, "is_staff").GetBoolValue())
	assert.False(t, field(out, "is_superuser").GetBoolValue())
	assert.True(t, field(out, "has_usable_password").GetBoolValue())

	id, err := uuid.Parse(field(out, "id").GetStringValue())
	require.NoError(t, err)
	stored, err := env.accounts.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, env.root.ID, stored.CreatedByID)
}

func TestCreateAccount_WithoutPasswordIsUnusable(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.rootClient(t).CreateAccount(context.Background(), newStruct(t, map[string]any{
		"email_address": "nopass@example.com",
	}))
	require.NoError(t, err)
	assert.False(t, field(out, "has_usable_password").GetBoolValue())
}

func TestCreateAccount_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.rootClient(t)

	_, err := c.CreateAccount(ctx, newStruct(t, map[string]any{"email_address": "bob@example.com"}))
	require.NoError(t, err)

	tests := []struct {
		name string
		req  map[string]any
		want codes.Code
	}{
		{name: "duplicate", req: map[string]any{"email_address": "bob@EXAMPLE.COM"}, want: codes.AlreadyExists},
		{name: "invalid email", req: map[string]any{"email_address": "not-an-email"}, want: codes.InvalidArgument},
		{name: "missing email", req: map[string]any{}, want: codes.InvalidArgument},
		{name: "system address", req: map[string]any{"email_address": testSystemEmail}, want: codes.AlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateAccount(ctx, newStruct(t, tt.req))
			requireCode(t, err, tt.want)
		})
	}
}

func TestCreateAccount_RequiresSuperuser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Create(ctx, "staff@example.com", services.WithPassword("staff-pass"), services.WithStaff(true))
	require.NoError(t, err)

	anon, _ := env.client(t)
	_, err = anon.CreateAccount(ctx, newStruct(t, map[string]any{"email_address": "x@example.com"}))
	requireCode(t, err, codes.Unauthenticated)

	staff, _ := env.client(t)
	_, err = staff.Login(ctx, map[string]string{backends.KeyUsername: "staff@example.com", backends.KeyPassword: "staff-pass"})
	require.NoError(t, err)
	_, err = staff.CreateAccount(ctx, newStruct(t, map[string]any{"email_address": "x@example.com"}))
	requireCode(t, err, codes.PermissionDenied)

	_, err = env.accounts.GetByNaturalKey(ctx, "x@example.com")
	assert.Error(t, err)
}

func TestCreateSuperuser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.rootClient(t)

	out, err := c.CreateSuperuser(ctx, newStruct(t, map[string]any{
		"email_address": "admin2@example.com",
		"password":      "admin2-pass",
	}))
	require.NoError(t, err)
	assert.True(t, field(out, "is_staff").GetBoolValue())
	assert.True(t, field(out, "is_superuser").GetBoolValue())
	assert.Equal(t, env.root.ID.String(), field(out, "created_by").GetStringValue())

	_, err = c.CreateSuperuser(ctx, newStruct(t, map[string]any{
		"email_address": "admin3@example.com",
		"password":      "admin3-pass",
		"is_staff":      false,
	}))
	requireCode(t, err, codes.InvalidArgument)
	_, err = env.accounts.GetByNaturalKey(ctx, "admin3@example.com")
	assert.Error(t, err)
}

func TestGetAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.rootClient(t)

	out, err := c.GetAccount(ctx, env.system.ID.String())
	require.NoError(t, err)
	assert.Equal(t, testSystemEmail, field(out, "email_address").GetStringValue())
	assert.Equal(t, env.system.ID.String(), field(out, "created_by").GetStringValue())
	assert.False(t, field(out, "has_usable_password").GetBoolValue())

	_, err = c.GetAccount(ctx, "not-a-uuid")
	requireCode(t, err, codes.InvalidArgument)

	_, err = c.GetAccount(ctx, uuid.NewString())
	requireCode(t, err, codes.NotFound)
}

func TestDeactivate_EndsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := env.rootClient(t)

	bob, err := env.accounts.Create(ctx, "bob@example.com", services.WithPassword("bob-pass"))
	require.NoError(t, err)

	bobClient, _ := env.client(t)
	_, err = bobClient.Login(ctx, map[string]string{backends.KeyUsername: "bob@example.com", backends.KeyPassword: "bob-pass"})
	require.NoError(t, err)
	_, err = bobClient.WhoAmI(ctx)
	require.NoError(t, err)

	out, err := root.Deactivate(ctx, bob.ID.String())
	require.NoError(t, err)
	assert.False(t, field(out, "is_active").GetBoolValue())
	deactivatedAt := field(out, "deactivated_at").GetStringValue()
	assert.NotEmpty(t, deactivatedAt)

	_, err = bobClient.WhoAmI(ctx)
	requireCode(t, err, codes.Unauthenticated)

	_, err = bobClient.Login(ctx, map[string]string{backends.KeyUsername: "bob@example.com", backends.KeyPassword: "bob-pass"})
	requireCode(t, err, codes.Unauthenticated)

	again, err := root.Deactivate(ctx, bob.ID.String())
	require.NoError(t, err)
	assert.Equal(t, deactivatedAt, field(again, "deactivated_at").GetStringValue())
}

func TestListCreatedBy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.rootClient(t)

	for _, email := range []string{"b@example.com", "a@example.com"} {
		_, err := c.CreateAccount(ctx, newStruct(t, map[string]any{"email_address": email}))
		require.NoError(t, err)
	}

	out, err := c.ListCreatedBy(ctx, env.root.ID.String())
	require.NoError(t, err)
	items := field(out, "accounts").GetListValue().GetValues()
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, env.root.ID.String(), field(item.GetStructValue(), "created_by").GetStringValue())
	}

	out, err = c.ListCreatedBy(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, field(out, "accounts").GetListValue().GetValues())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	_, conn := env.client(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

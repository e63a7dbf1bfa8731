package grpc

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls ServiceName. After a successful Login it attaches the
// access token to every call.
type Client struct {
	cc grpc.ClientConnInterface

	mu          sync.RWMutex
	accessToken string
}

// NewClient wraps an existing connection. Use Dial to let the client
// manage the connection and its token interceptor.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	c := &Client{}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, nil, err
	}
	c.cc = conn
	return c, conn, nil
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.AccessToken(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// AccessToken returns the token of the last successful Login.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken replaces the token sent with subsequent calls.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Login sends creds and remembers the returned access token.
func (c *Client) Login(ctx context.Context, creds map[string]string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(creds))}
	for k, v := range creds {
		in.Fields[k] = structpb.NewStringValue(v)
	}
	out, err := c.invoke(ctx, MethodLogin, in, opts...)
	if err != nil {
		return nil, err
	}
	c.SetAccessToken(out.GetFields()["access_token"].GetStringValue())
	return out, nil
}

func (c *Client) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodWhoAmI, &emptypb.Empty{}, opts...)
}

func (c *Client) CreateAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateAccount, in, opts...)
}

func (c *Client) CreateSuperuser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateSuperuser, in, opts...)
}

func (c *Client) GetAccount(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetAccount, idRequest(id), opts...)
}

func (c *Client) Deactivate(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeactivate, idRequest(id), opts...)
}

func (c *Client) ListCreatedBy(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListCreatedBy, idRequest(id), opts...)
}

func idRequest(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}

func (c *Client) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fdaccounts.v1.AccountService"

const (
	MethodLogin           = "Login"
	MethodWhoAmI          = "WhoAmI"
	MethodCreateAccount   = "CreateAccount"
	MethodCreateSuperuser = "CreateSuperuser"
	MethodGetAccount      = "GetAccount"
	MethodDeactivate      = "Deactivate"
	MethodListCreatedBy   = "ListCreatedBy"
)

// AccountServiceServer is the server API of ServiceName. Requests and
// replies are protobuf Structs keyed like the account fields.
type AccountServiceServer interface {
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CreateAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateSuperuser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Deactivate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCreatedBy(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AccountServiceDesc describes ServiceName for grpc.Server.RegisterService.
var AccountServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodLogin, AccountServiceServer.Login),
		unary(MethodWhoAmI, AccountServiceServer.WhoAmI),
		unary(MethodCreateAccount, AccountServiceServer.CreateAccount),
		unary(MethodCreateSuperuser, AccountServiceServer.CreateSuperuser),
		unary(MethodGetAccount, AccountServiceServer.GetAccount),
		unary(MethodDeactivate, AccountServiceServer.Deactivate),
		unary(MethodListCreatedBy, AccountServiceServer.ListCreatedBy),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fdaccounts/v1/accounts.proto",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req any](method string, call func(AccountServiceServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AccountServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AccountServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

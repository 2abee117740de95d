package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chat.v1.ChatService"

// Method names, also the keys of FullMethod.
const (
	MethodRegister            = "Register"
	MethodLogin               = "Login"
	MethodListUsers           = "ListUsers"
	MethodResolveConversation = "ResolveConversation"
	MethodListMessages        = "ListMessages"
	MethodSendMessage         = "SendMessage"
)

// FullMethod returns "/chat.v1.ChatService/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ChatServiceServer is implemented by the API server.
type ChatServiceServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	ResolveConversation(context.Context, *ResolveConversationRequest) (*ResolveConversationResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
}

// ServiceDesc describes ChatService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, ChatServiceServer.Register),
		unary(MethodLogin, ChatServiceServer.Login),
		unary(MethodListUsers, ChatServiceServer.ListUsers),
		unary(MethodResolveConversation, ChatServiceServer.ResolveConversation),
		unary(MethodListMessages, ChatServiceServer.ListMessages),
		unary(MethodSendMessage, ChatServiceServer.SendMessage),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat/v1/chat.json",
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds the method descriptor the protoc plugin would generate.
func unary[Req, Resp any](name string, call func(ChatServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ChatServiceClient is the low-level stub. Every call uses the JSON codec.
type ChatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) *ChatServiceClient {
	return &ChatServiceClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChatServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[RegisterRequest, AuthResponse](ctx, c.cc, MethodRegister, in, opts...)
}

func (c *ChatServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[LoginRequest, AuthResponse](ctx, c.cc, MethodLogin, in, opts...)
}

func (c *ChatServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	return invoke[ListUsersRequest, ListUsersResponse](ctx, c.cc, MethodListUsers, in, opts...)
}

func (c *ChatServiceClient) ResolveConversation(ctx context.Context, in *ResolveConversationRequest, opts ...grpc.CallOption) (*ResolveConversationResponse, error) {
	return invoke[ResolveConversationRequest, ResolveConversationResponse](ctx, c.cc, MethodResolveConversation, in, opts...)
}

func (c *ChatServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesRequest, ListMessagesResponse](ctx, c.cc, MethodListMessages, in, opts...)
}

func (c *ChatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageRequest, SendMessageResponse](ctx, c.cc, MethodSendMessage, in, opts...)
}

package secure_channel

import (
	"context"

	"google.golang.org/grpc"
)

// SecureChannelServer is the server API for the SecureChannel
// service, the call boundary between the host and the enclave.
type SecureChannelServer interface {
	InitSecureChannel(context.Context, *Empty) (*Empty, error)
	ShutdownSecureChannel(context.Context, *Empty) (*Empty, error)
	GetEnclavePublicKey(context.Context, *PublicKeyRequest) (*PublicKeyResponse, error)
	GetExchangeParamLength(context.Context, *SessionRequest) (*LengthResponse, error)
	GetExchangeParam(context.Context, *ExchangeParamRequest) (*ExchangeParamResponse, error)
	SetPeerExchangeParam(context.Context, *PeerParamRequest) (*Empty, error)
	InstallWrappedKey(context.Context, *WrappedKeyRequest) (*Empty, error)
	RemoveSession(context.Context, *SessionRequest) (*Empty, error)
	Encrypt(context.Context, *PayloadRequest) (*PayloadResponse, error)
	Decrypt(context.Context, *PayloadRequest) (*PayloadResponse, error)
}

// SecureChannelClient is the client API for the SecureChannel
// service.
type SecureChannelClient interface {
	InitSecureChannel(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	ShutdownSecureChannel(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	GetEnclavePublicKey(ctx context.Context, in *PublicKeyRequest, opts ...grpc.CallOption) (*PublicKeyResponse, error)
	GetExchangeParamLength(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*LengthResponse, error)
	GetExchangeParam(ctx context.Context, in *ExchangeParamRequest, opts ...grpc.CallOption) (*ExchangeParamResponse, error)
	SetPeerExchangeParam(ctx context.Context, in *PeerParamRequest, opts ...grpc.CallOption) (*Empty, error)
	InstallWrappedKey(ctx context.Context, in *WrappedKeyRequest, opts ...grpc.CallOption) (*Empty, error)
	RemoveSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*Empty, error)
	Encrypt(ctx context.Context, in *PayloadRequest, opts ...grpc.CallOption) (*PayloadResponse, error)
	Decrypt(ctx context.Context, in *PayloadRequest, opts ...grpc.CallOption) (*PayloadResponse, error)
}

const serviceName = "secure_channel.SecureChannel"

type secureChannelClient struct {
	cc *grpc.ClientConn
}

func NewSecureChannelClient(cc *grpc.ClientConn) SecureChannelClient {
	return &secureChannelClient{cc}
}

func (c *secureChannelClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *secureChannelClient) InitSecureChannel(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, "InitSecureChannel", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) ShutdownSecureChannel(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, "ShutdownSecureChannel", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) GetEnclavePublicKey(ctx context.Context, in *PublicKeyRequest, opts ...grpc.CallOption) (*PublicKeyResponse, error) {
	out := new(PublicKeyResponse)
	if err := c.invoke(ctx, "GetEnclavePublicKey", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) GetExchangeParamLength(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*LengthResponse, error) {
	out := new(LengthResponse)
	if err := c.invoke(ctx, "GetExchangeParamLength", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) GetExchangeParam(ctx context.Context, in *ExchangeParamRequest, opts ...grpc.CallOption) (*ExchangeParamResponse, error) {
	out := new(ExchangeParamResponse)
	if err := c.invoke(ctx, "GetExchangeParam", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) SetPeerExchangeParam(ctx context.Context, in *PeerParamRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, "SetPeerExchangeParam", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) InstallWrappedKey(ctx context.Context, in *WrappedKeyRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, "InstallWrappedKey", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) RemoveSession(ctx context.Context, in *SessionRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, "RemoveSession", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) Encrypt(ctx context.Context, in *PayloadRequest, opts ...grpc.CallOption) (*PayloadResponse, error) {
	out := new(PayloadResponse)
	if err := c.invoke(ctx, "Encrypt", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *secureChannelClient) Decrypt(ctx context.Context, in *PayloadRequest, opts ...grpc.CallOption) (*PayloadResponse, error) {
	out := new(PayloadResponse)
	if err := c.invoke(ctx, "Decrypt", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterSecureChannelServer(s *grpc.Server, srv SecureChannelServer) {
	s.RegisterService(&secureChannelServiceDesc, srv)
}

// unaryHandler builds the grpc.MethodDesc handler of one method. in
// allocates the request message, call forwards it to the server.
func unaryHandler(method string, in func() interface{}, call func(SecureChannelServer, context.Context, interface{}) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			req := in()
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SecureChannelServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(SecureChannelServer), ctx, req)
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

var secureChannelServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SecureChannelServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("InitSecureChannel", func() interface{} { return new(Empty) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.InitSecureChannel(ctx, req.(*Empty))
			}),
		unaryHandler("ShutdownSecureChannel", func() interface{} { return new(Empty) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.ShutdownSecureChannel(ctx, req.(*Empty))
			}),
		unaryHandler("GetEnclavePublicKey", func() interface{} { return new(PublicKeyRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.GetEnclavePublicKey(ctx, req.(*PublicKeyRequest))
			}),
		unaryHandler("GetExchangeParamLength", func() interface{} { return new(SessionRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.GetExchangeParamLength(ctx, req.(*SessionRequest))
			}),
		unaryHandler("GetExchangeParam", func() interface{} { return new(ExchangeParamRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.GetExchangeParam(ctx, req.(*ExchangeParamRequest))
			}),
		unaryHandler("SetPeerExchangeParam", func() interface{} { return new(PeerParamRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.SetPeerExchangeParam(ctx, req.(*PeerParamRequest))
			}),
		unaryHandler("InstallWrappedKey", func() interface{} { return new(WrappedKeyRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.InstallWrappedKey(ctx, req.(*WrappedKeyRequest))
			}),
		unaryHandler("RemoveSession", func() interface{} { return new(SessionRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.RemoveSession(ctx, req.(*SessionRequest))
			}),
		unaryHandler("Encrypt", func() interface{} { return new(PayloadRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.Encrypt(ctx, req.(*PayloadRequest))
			}),
		unaryHandler("Decrypt", func() interface{} { return new(PayloadRequest) },
			func(s SecureChannelServer, ctx context.Context, req interface{}) (interface{}, error) {
				return s.Decrypt(ctx, req.(*PayloadRequest))
			}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "secure_channel.proto",
}

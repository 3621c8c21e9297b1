package secure_channel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server exposes a SessionManager as a SecureChannelServer.
type Server struct {
	sm SessionManager
}

func NewServer(sm SessionManager) *Server {
	return &Server{sm: sm}
}

// statusError translates a channel error into a gRPC status.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch {
	case errors.Is(err, ErrBufferTooSmall):
		code = codes.OutOfRange
	case errors.Is(err, ErrInvalidCiphertext):
		code = codes.InvalidArgument
	case errors.Is(err, ErrNoBackend):
		code = codes.Unimplemented
	default:
		switch Classify(err) {
		case ClassParameter:
			code = codes.InvalidArgument
		case ClassNotFound:
			code = codes.NotFound
		case ClassCapacity:
			code = codes.ResourceExhausted
		case ClassResource:
			code = codes.Unavailable
		case ClassState:
			code = codes.FailedPrecondition
		case ClassCrypto:
			if errors.Is(err, ErrMalformed) {
				code = codes.InvalidArgument
			}
		}
	}
	return status.Error(code, err.Error())
}

// tooSmall is the status for a caller buffer that cannot hold need
// bytes. The size travels as a LengthResponse detail, see
// RequiredLength.
func tooSmall(need int, capacity uint32) error {
	st := status.Newf(codes.OutOfRange, "%v: need %d bytes, capacity is %d", ErrBufferTooSmall, need, capacity)
	if detailed, err := st.WithDetails(&LengthResponse{Length: uint32(need)}); err == nil {
		st = detailed
	}
	return st.Err()
}

// RequiredLength returns the buffer size an OutOfRange error from the
// server asks for.
func RequiredLength(err error) (int, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.OutOfRange {
		return 0, false
	}
	for _, d := range st.Details() {
		if l, ok := d.(*LengthResponse); ok {
			return int(l.GetLength()), true
		}
	}
	return 0, false
}

// buffer allocates the caller buffer for a result of need bytes. The
// capacity the caller asked for only matters when it is smaller than
// need; the server never allocates more than need.
func buffer(capacity uint32, need int) []byte {
	if capacity == 0 || uint64(capacity) >= uint64(need) {
		return make([]byte, need)
	}
	return make([]byte, capacity)
}

// fail logs err with the request logger and converts it for the wire.
func fail(ctx context.Context, method string, id SessionID, err error) error {
	zerolog.Ctx(ctx).Warn().Err(err).
		Str("call", method).
		Uint64("session_id", uint64(id)).
		Msg("secure channel call failed")
	if _, ok := status.FromError(err); ok {
		return err
	}
	return statusError(err)
}

func (s *Server) InitSecureChannel(ctx context.Context, in *Empty) (*Empty, error) {
	s.sm.Start()
	return &Empty{}, nil
}

func (s *Server) ShutdownSecureChannel(ctx context.Context, in *Empty) (*Empty, error) {
	s.sm.Stop()
	return &Empty{}, nil
}

func (s *Server) GetEnclavePublicKey(ctx context.Context, in *PublicKeyRequest) (*PublicKeyResponse, error) {
	// the key size is fixed, so ask for it with an empty buffer first
	_, need, _ := s.sm.GetEnclavePublicKey(nil)
	buf := buffer(in.Capacity, need)
	id, n, err := s.sm.GetEnclavePublicKey(buf)
	if errors.Is(err, ErrBufferTooSmall) {
		return nil, fail(ctx, "GetEnclavePublicKey", 0, tooSmall(n, in.Capacity))
	} else if err != nil {
		return nil, fail(ctx, "GetEnclavePublicKey", 0, err)
	}
	zerolog.Ctx(ctx).Debug().Uint64("session_id", uint64(id)).Msg("created session for public key")
	return &PublicKeyResponse{
		SessionId: uint64(id),
		PublicKey: buf[:n],
		Length:    uint32(n),
	}, nil
}

func (s *Server) GetExchangeParamLength(ctx context.Context, in *SessionRequest) (*LengthResponse, error) {
	id := SessionID(in.SessionId)
	l, err := s.sm.ExchangeParamLen(id)
	if err != nil {
		return nil, fail(ctx, "GetExchangeParamLength", id, err)
	}
	return &LengthResponse{Length: uint32(l)}, nil
}

func (s *Server) GetExchangeParam(ctx context.Context, in *ExchangeParamRequest) (*ExchangeParamResponse, error) {
	id := SessionID(in.SessionId)
	need, err := s.sm.ExchangeParamLen(id)
	if err != nil {
		return nil, fail(ctx, "GetExchangeParam", id, err)
	}
	buf := buffer(in.Capacity, need)
	n, err := s.sm.ExchangeParam(id, buf)
	if errors.Is(err, ErrBufferTooSmall) {
		return nil, fail(ctx, "GetExchangeParam", id, tooSmall(n, in.Capacity))
	} else if err != nil {
		return nil, fail(ctx, "GetExchangeParam", id, err)
	}
	return &ExchangeParamResponse{Param: buf[:n]}, nil
}

func (s *Server) SetPeerExchangeParam(ctx context.Context, in *PeerParamRequest) (*Empty, error) {
	id := SessionID(in.SessionId)
	if err := s.sm.SetPeerExchangeParam(id, in.Param); err != nil {
		return nil, fail(ctx, "SetPeerExchangeParam", id, err)
	}
	return &Empty{}, nil
}

func (s *Server) InstallWrappedKey(ctx context.Context, in *WrappedKeyRequest) (*Empty, error) {
	id := SessionID(in.SessionId)
	if err := s.sm.InstallWrappedKey(id, in.Wrapped); err != nil {
		return nil, fail(ctx, "InstallWrappedKey", id, err)
	}
	return &Empty{}, nil
}

func (s *Server) RemoveSession(ctx context.Context, in *SessionRequest) (*Empty, error) {
	s.sm.RemoveSession(SessionID(in.SessionId))
	return &Empty{}, nil
}

func (s *Server) Encrypt(ctx context.Context, in *PayloadRequest) (*PayloadResponse, error) {
	id := SessionID(in.SessionId)
	buf := buffer(in.Capacity, RequiredEncryptedLen(len(in.Payload)))
	n, err := s.sm.Encrypt(id, in.Payload, buf)
	if errors.Is(err, ErrBufferTooSmall) {
		return nil, fail(ctx, "Encrypt", id, tooSmall(n, in.Capacity))
	} else if err != nil {
		return nil, fail(ctx, "Encrypt", id, err)
	}
	return &PayloadResponse{Payload: buf[:n]}, nil
}

func (s *Server) Decrypt(ctx context.Context, in *PayloadRequest) (*PayloadResponse, error) {
	id := SessionID(in.SessionId)
	buf := buffer(in.Capacity, RequiredPlainLen(in.Payload))
	n, err := s.sm.Decrypt(id, in.Payload, buf)
	if errors.Is(err, ErrBufferTooSmall) {
		return nil, fail(ctx, "Decrypt", id, tooSmall(n, in.Capacity))
	} else if err != nil {
		return nil, fail(ctx, "Decrypt", id, err)
	}
	return &PayloadResponse{Payload: buf[:n]}, nil
}

// LoggingInterceptor tags every call with a request id. The id is
// carried by the logger in the call's context, so everything a handler
// logs through zerolog.Ctx can be tied to the request.
func LoggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	logger := log.With().Str("request_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)

	resp, err := handler(ctx, req)

	ev := logger.Debug()
	if err != nil {
		ev = logger.Warn().Err(err)
	}
	ev.Str("method", info.FullMethod).
		Dur("elapsed", time.Since(start)).
		Msg("handled secure channel call")
	return resp, err
}

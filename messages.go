package secure_channel

import proto "github.com/golang/protobuf/proto"

// Messages of the secure_channel.proto service. They are plain
// golang/protobuf structs; the tags drive the wire encoding.

// ExchangeParam is the serialized public half of an ephemeral key
// pair, as shipped between host and enclave.
type ExchangeParam struct {
	Curve                uint32   `protobuf:"varint,1,opt,name=curve,proto3" json:"curve,omitempty"`
	PublicKey            []byte   `protobuf:"bytes,2,opt,name=public_key,json=publicKey,proto3" json:"public_key,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *ExchangeParam) Reset()         { *m = ExchangeParam{} }
func (m *ExchangeParam) String() string { return proto.CompactTextString(m) }
func (*ExchangeParam) ProtoMessage()    {}

func (m *ExchangeParam) GetCurve() uint32 {
	if m != nil {
		return m.Curve
	}
	return 0
}

func (m *ExchangeParam) GetPublicKey() []byte {
	if m != nil {
		return m.PublicKey
	}
	return nil
}

type Empty struct {
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *Empty) Reset()         { *m = Empty{} }
func (m *Empty) String() string { return proto.CompactTextString(m) }
func (*Empty) ProtoMessage()    {}

type PublicKeyRequest struct {
	// Size of the buffer the caller has for the key; 0 means any.
	Capacity             uint32   `protobuf:"varint,1,opt,name=capacity,proto3" json:"capacity,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *PublicKeyRequest) Reset()         { *m = PublicKeyRequest{} }
func (m *PublicKeyRequest) String() string { return proto.CompactTextString(m) }
func (*PublicKeyRequest) ProtoMessage()    {}

type PublicKeyResponse struct {
	SessionId            uint64   `protobuf:"varint,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	PublicKey            []byte   `protobuf:"bytes,2,opt,name=public_key,json=publicKey,proto3" json:"public_key,omitempty"`
	Length               uint32   `protobuf:"varint,3,opt,name=length,proto3" json:"length,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *PublicKeyResponse) Reset()         { *m = PublicKeyResponse{} }
func (m *PublicKeyResponse) String() string { return proto.CompactTextString(m) }
func (*PublicKeyResponse) ProtoMessage()    {}

func (m *PublicKeyResponse) GetSessionId() uint64 {
	if m != nil {
		return m.SessionId
	}
	return 0
}

func (m *PublicKeyResponse) GetPublicKey() []byte {
	if m != nil {
		return m.PublicKey
	}
	return nil
}

type SessionRequest struct {
	SessionId            uint64   `protobuf:"varint,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *SessionRequest) Reset()         { *m = SessionRequest{} }
func (m *SessionRequest) String() string { return proto.CompactTextString(m) }
func (*SessionRequest) ProtoMessage()    {}

type LengthResponse struct {
	Length               uint32   `protobuf:"varint,1,opt,name=length,proto3" json:"length,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *LengthResponse) Reset()         { *m = LengthResponse{} }
func (m *LengthResponse) String() string { return proto.CompactTextString(m) }
func (*LengthResponse) ProtoMessage()    {}

func (m *LengthResponse) GetLength() uint32 {
	if m != nil {
		return m.Length
	}
	return 0
}

type ExchangeParamRequest struct {
	SessionId            uint64   `protobuf:"varint,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Capacity             uint32   `protobuf:"varint,2,opt,name=capacity,proto3" json:"capacity,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *ExchangeParamRequest) Reset()         { *m = ExchangeParamRequest{} }
func (m *ExchangeParamRequest) String() string { return proto.CompactTextString(m) }
func (*ExchangeParamRequest) ProtoMessage()    {}

type ExchangeParamResponse struct {
	Param                []byte   `protobuf:"bytes,1,opt,name=param,proto3" json:"param,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *ExchangeParamResponse) Reset()         { *m = ExchangeParamResponse{} }
func (m *ExchangeParamResponse) String() string { return proto.CompactTextString(m) }
func (*ExchangeParamResponse) ProtoMessage()    {}

func (m *ExchangeParamResponse) GetParam() []byte {
	if m != nil {
		return m.Param
	}
	return nil
}

type PeerParamRequest struct {
	SessionId            uint64   `protobuf:"varint,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Param                []byte   `protobuf:"bytes,2,opt,name=param,proto3" json:"param,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *PeerParamRequest) Reset()         { *m = PeerParamRequest{} }
func (m *PeerParamRequest) String() string { return proto.CompactTextString(m) }
func (*PeerParamRequest) ProtoMessage()    {}

type WrappedKeyRequest struct {
	SessionId            uint64   `protobuf:"varint,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Wrapped              []byte   `protobuf:"bytes,2,opt,name=wrapped,proto3" json:"wrapped,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *WrappedKeyRequest) Reset()         { *m = WrappedKeyRequest{} }
func (m *WrappedKeyRequest) String() string { return proto.CompactTextString(m) }
func (*WrappedKeyRequest) ProtoMessage()    {}

type PayloadRequest struct {
	SessionId            uint64   `protobuf:"varint,1,opt,name=session_id,json=sessionId,proto3" json:"session_id,omitempty"`
	Payload              []byte   `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
	Capacity             uint32   `protobuf:"varint,3,opt,name=capacity,proto3" json:"capacity,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *PayloadRequest) Reset()         { *m = PayloadRequest{} }
func (m *PayloadRequest) String() string { return proto.CompactTextString(m) }
func (*PayloadRequest) ProtoMessage()    {}

type PayloadResponse struct {
	Payload              []byte   `protobuf:"bytes,1,opt,name=payload,proto3" json:"payload,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *PayloadResponse) Reset()         { *m = PayloadResponse{} }
func (m *PayloadResponse) String() string { return proto.CompactTextString(m) }
func (*PayloadResponse) ProtoMessage()    {}

func (m *PayloadResponse) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

func init() {
	proto.RegisterType((*ExchangeParam)(nil), "secure_channel.ExchangeParam")
	proto.RegisterType((*Empty)(nil), "secure_channel.Empty")
	proto.RegisterType((*PublicKeyRequest)(nil), "secure_channel.PublicKeyRequest")
	proto.RegisterType((*PublicKeyResponse)(nil), "secure_channel.PublicKeyResponse")
	proto.RegisterType((*SessionRequest)(nil), "secure_channel.SessionRequest")
	proto.RegisterType((*LengthResponse)(nil), "secure_channel.LengthResponse")
	proto.RegisterType((*ExchangeParamRequest)(nil), "secure_channel.ExchangeParamRequest")
	proto.RegisterType((*ExchangeParamResponse)(nil), "secure_channel.ExchangeParamResponse")
	proto.RegisterType((*PeerParamRequest)(nil), "secure_channel.PeerParamRequest")
	proto.RegisterType((*WrappedKeyRequest)(nil), "secure_channel.WrappedKeyRequest")
	proto.RegisterType((*PayloadRequest)(nil), "secure_channel.PayloadRequest")
	proto.RegisterType((*PayloadResponse)(nil), "secure_channel.PayloadResponse")
}

// Package pb is the wire contract between the frontend and the numbers
// service.
//
// The payloads are google.protobuf.Struct rather than messages of our own, so
// nothing here needs generating. It's laid out like protoc-gen-go-grpc output
// anyway, so that swapping in a real .proto later only changes the types. See
// pkg/proto/conv for the field names.
package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "numbers.Primes"

	Primes_Compute_FullMethodName = "/numbers.Primes/Compute"

	// RequestIDKey is the metadata key which the frontend uses to pass along
	// the ID of the request that it's serving, so that the logs on both sides
	// can be lined up.
	RequestIDKey = "x-request-id"
)

// PrimesClient is the client API for the Primes service.
type PrimesClient interface {
	// Compute returns the primes in the requested range, and the ident of the
	// instance which computed them.
	Compute(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type primesClient struct {
	cc grpc.ClientConnInterface
}

func NewPrimesClient(cc grpc.ClientConnInterface) PrimesClient {
	return &primesClient{cc}
}

func (c *primesClient) Compute(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, Primes_Compute_FullMethodName, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PrimesServer is the server API for the Primes service.
type PrimesServer interface {
	Compute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterPrimesServer(s grpc.ServiceRegistrar, srv PrimesServer) {
	s.RegisterService(&Primes_ServiceDesc, srv)
}

func _Primes_Compute_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PrimesServer).Compute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Primes_Compute_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PrimesServer).Compute(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Primes_ServiceDesc is the grpc.ServiceDesc for the Primes service.
var Primes_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PrimesServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Compute",
			Handler:    _Primes_Compute_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "numbers/primes.proto",
}

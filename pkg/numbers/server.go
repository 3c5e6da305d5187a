package numbers

import (
	"context"
	"time"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/metrics"
	"github.com/adammck/numbers/pkg/proto/conv"
	"github.com/adammck/numbers/pkg/proto/pb"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	svc *Service
	log *zap.Logger
}

func NewServer(svc *Service, log *zap.Logger) *Server {
	return &Server{
		svc: svc,
		log: log,
	}
}

func (s *Server) Register(srv grpc.ServiceRegistrar) {
	pb.RegisterPrimesServer(srv, s)
}

func (s *Server) Compute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := conv.RangeFromProto(req)
	if err != nil {
		metrics.RecordComputeError(s.svc.InstanceID(), codes.InvalidArgument.String())
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	ps, ident := s.svc.ComputePrimes(r.From, r.To)
	d := time.Since(start)

	metrics.RecordCompute(ident, len(ps), d)
	s.log.Debug("computed",
		zap.String("request_id", requestID(ctx)),
		zap.Stringer("range", r),
		zap.Int("primes", len(ps)),
		zap.Duration("duration", d))

	return conv.ResultToProto(api.PrimeResult{
		Primes:     ps,
		InstanceID: ident,
	}), nil
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	if v := md.Get(pb.RequestIDKey); len(v) > 0 {
		return v[0]
	}

	return ""
}

func init() {
	// Ensure that Server implements the PrimesServer interface
	var s *Server = nil
	var _ pb.PrimesServer = s
}

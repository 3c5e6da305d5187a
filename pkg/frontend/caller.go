package frontend

import (
	"context"
	"errors"
	"fmt"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/metrics"
	"github.com/adammck/numbers/pkg/proto/conv"
	"github.com/adammck/numbers/pkg/proto/pb"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ErrMalformedResponse wraps the error from decoding a response which the
// numbers service shouldn't have sent.
var ErrMalformedResponse = errors.New("malformed response")

// ErrInvalidRange wraps the reason that a range can't be sent at all.
var ErrInvalidRange = errors.New("invalid range")

// Submitter is what the HTTP server needs from a Caller.
type Submitter interface {
	Submit(ctx context.Context, from, to int) (api.Submission, error)
}

// Picker is the part of Balancer that Caller needs. The func returned by Pick
// must be called once the client is no longer in use.
type Picker interface {
	Pick() (api.Remote, pb.PrimesClient, func(), error)
}

// Caller sends ranges to the numbers service and times the round trip.
type Caller struct {
	picker Picker
	clock  clockwork.Clock
	log    *zap.Logger
}

func NewCaller(picker Picker, clock clockwork.Clock, log *zap.Logger) *Caller {
	return &Caller{
		picker: picker,
		clock:  clock,
		log:    log,
	}
}

// Submit asks one instance of the numbers service for the primes in [from, to]
// and blocks until it answers. There's exactly one attempt. If it fails,
// whether because no instance could be found, the call failed, or the response
// made no sense, that's the error.
func (c *Caller) Submit(ctx context.Context, from, to int) (api.Submission, error) {
	r := api.Range{From: from, To: to}
	if err := conv.ValidateRange(r); err != nil {
		return api.Submission{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	reqID := uuid.NewString()
	log := c.log.With(zap.String("request_id", reqID), zap.Stringer("range", r))

	start := c.clock.Now()

	rem, client, done, err := c.picker.Pick()
	if err != nil {
		metrics.RecordSubmit("", codes.Unavailable.String(), c.clock.Since(start))
		log.Warn("no backend", zap.Error(err))
		return api.Submission{}, err
	}
	defer done()

	log = log.With(zap.String("backend", rem.Ident))
	ctx = metadata.AppendToOutgoingContext(ctx, pb.RequestIDKey, reqID)

	res, err := client.Compute(ctx, conv.RangeToProto(r))
	elapsed := c.clock.Since(start)
	if err != nil {
		metrics.RecordSubmit(rem.Ident, status.Code(err).String(), elapsed)
		log.Warn("compute failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return api.Submission{}, fmt.Errorf("error computing %s via %s: %w", r, rem.Ident, err)
	}

	pr, err := conv.ResultFromProto(res)
	if err != nil {
		metrics.RecordSubmit(rem.Ident, codes.Internal.String(), elapsed)
		log.Warn("malformed response", zap.Error(err))
		return api.Submission{}, fmt.Errorf("%w from %s: %v", ErrMalformedResponse, rem.Ident, err)
	}

	metrics.RecordSubmit(pr.InstanceID, codes.OK.String(), elapsed)
	log.Debug("submitted",
		zap.String("instance", pr.InstanceID),
		zap.Int("primes", len(pr.Primes)),
		zap.Duration("elapsed", elapsed))

	return api.Submission{
		PrimeResult: pr,
		Elapsed:     elapsed,
	}, nil
}

package numbers

import "github.com/adammck/numbers/pkg/primes"

// Service is the numbers service minus the network. It has no state besides
// the ident of the instance that it's running in, which never changes.
type Service struct {
	instanceID string
}

func NewService(instanceID string) *Service {
	return &Service{instanceID: instanceID}
}

// ComputePrimes returns the primes in [from, to], ascending, and the ident of
// this instance. An inverted range returns no primes rather than an error.
func (s *Service) ComputePrimes(from, to int) ([]int, string) {
	return primes.Compute(from, to), s.instanceID
}

func (s *Service) InstanceID() string {
	return s.instanceID
}

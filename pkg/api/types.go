package api

import (
	"fmt"
	"time"
)

// DefaultRange is what the frontend offers when nobody has asked for anything
// in particular.
var DefaultRange = Range{From: 0, To: 100}

// Range is an inclusive interval of integers to be scanned for primes. From
// may exceed To, in which case the range is empty. That's not an error.
type Range struct {
	From int
	To   int
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.From, r.To)
}

// PrimeResult is what an instance of the numbers service returns: the primes
// it found, ascending, and the ident of the instance which found them.
type PrimeResult struct {
	Primes     []int
	InstanceID string
}

// Submission is a PrimeResult as seen by the frontend, along with how long the
// round trip took. Elapsed is measured locally; it never goes over the wire.
type Submission struct {
	PrimeResult
	Elapsed time.Duration
}

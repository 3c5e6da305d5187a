// Package primes finds the primes in a range by counting divisors.
//
// This is deliberately the slow way. Every candidate n costs O(n), so a range
// [from, to] costs O(range * to). Don't swap in a sieve or stop at sqrt(n);
// the cost of a request is part of its behavior, and the replicas exist to
// spread it around.
package primes

// DivisorCount returns the number of integers d in [1, n] which divide n.
// The loop runs from n down to 1, so for n <= 0 it never runs at all and the
// count is zero.
func DivisorCount(n int) int {
	c := 0
	for d := n; d >= 1; d-- {
		if n%d == 0 {
			c++
		}
	}
	return c
}

// IsPrime returns true if n has exactly two divisors.
func IsPrime(n int) bool {
	return DivisorCount(n) == 2
}

// Compute returns every prime in the inclusive range [from, to], ascending.
// An inverted range (from > to) is not an error; it's just empty.
func Compute(from, to int) []int {
	out := []int{}

	for n := from; n <= to; n++ {
		if IsPrime(n) {
			out = append(out, n)
		}

		// Don't wrap around if the range ends at the top of int.
		if n == to {
			break
		}
	}

	return out
}

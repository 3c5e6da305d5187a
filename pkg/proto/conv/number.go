package conv

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// maxExact is the largest magnitude that a float64 (which is what structpb
// numbers are) can hold while still telling it apart from its neighbours. 2^53
// itself is out, since 2^53+1 rounds to it.
const maxExact = 1<<53 - 1

// checkInt returns an error if n can't go over the wire without rounding.
func checkInt(n int) error {
	if n > maxExact || n < -maxExact {
		return fmt.Errorf("out of range: %d", n)
	}
	return nil
}

func intToProto(n int) *structpb.Value {
	return structpb.NewNumberValue(float64(n))
}

func intFromProto(v *structpb.Value) (int, error) {
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("not a number: %v", v)
	}

	f := nv.NumberValue
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %v", f)
	}

	if f > maxExact || f < -maxExact {
		return 0, fmt.Errorf("out of range: %v", f)
	}

	return int(f), nil
}

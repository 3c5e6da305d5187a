package conv

import (
	"errors"
	"fmt"

	"github.com/adammck/numbers/pkg/api"
	"google.golang.org/protobuf/types/known/structpb"
)

func ResultToProto(r api.PrimeResult) *structpb.Struct {
	vals := make([]*structpb.Value, len(r.Primes))
	for i, n := range r.Primes {
		vals[i] = intToProto(n)
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldPrimes:     structpb.NewListValue(&structpb.ListValue{Values: vals}),
			FieldInstanceID: structpb.NewStringValue(r.InstanceID),
		},
	}
}

// ResultFromProto returns an error if the response is malformed. An empty list
// of primes is fine; a missing one is not.
func ResultFromProto(p *structpb.Struct) (api.PrimeResult, error) {
	if p == nil {
		return api.PrimeResult{}, errors.New("missing: result")
	}

	f := p.GetFields()

	lv, ok := f[FieldPrimes].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return api.PrimeResult{}, fmt.Errorf("missing: %s", FieldPrimes)
	}

	vals := lv.ListValue.GetValues()
	primes := make([]int, len(vals))
	for i, v := range vals {
		n, err := intFromProto(v)
		if err != nil {
			return api.PrimeResult{}, fmt.Errorf("invalid %s[%d]: %w", FieldPrimes, i, err)
		}
		primes[i] = n
	}

	id := f[FieldInstanceID].GetStringValue()
	if id == "" {
		return api.PrimeResult{}, fmt.Errorf("missing: %s", FieldInstanceID)
	}

	return api.PrimeResult{
		Primes:     primes,
		InstanceID: id,
	}, nil
}

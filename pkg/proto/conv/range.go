package conv

import (
	"errors"
	"fmt"

	"github.com/adammck/numbers/pkg/api"
	"google.golang.org/protobuf/types/known/structpb"
)

// ValidateRange returns an error if either bound of r would be rounded on the
// way to the numbers service, which would then compute some other range.
// Check before calling RangeToProto.
func ValidateRange(r api.Range) error {
	if err := checkInt(r.From); err != nil {
		return fmt.Errorf("invalid %s: %w", FieldFrom, err)
	}

	if err := checkInt(r.To); err != nil {
		return fmt.Errorf("invalid %s: %w", FieldTo, err)
	}

	return nil
}

func RangeToProto(r api.Range) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldFrom: intToProto(r.From),
			FieldTo:   intToProto(r.To),
		},
	}
}

// RangeFromProto returns an error if either bound is missing or isn't an
// integer. It doesn't care about the order of the bounds.
func RangeFromProto(p *structpb.Struct) (api.Range, error) {
	if p == nil {
		return api.Range{}, errors.New("missing: range")
	}

	from, err := requiredInt(p, FieldFrom)
	if err != nil {
		return api.Range{}, err
	}

	to, err := requiredInt(p, FieldTo)
	if err != nil {
		return api.Range{}, err
	}

	return api.Range{From: from, To: to}, nil
}

func requiredInt(p *structpb.Struct, name string) (int, error) {
	v, ok := p.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("missing: %s", name)
	}

	n, err := intFromProto(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return n, nil
}

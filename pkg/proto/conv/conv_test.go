package conv

import (
	"math"
	"testing"

	"github.com/adammck/numbers/pkg/api"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRangeToProto(t *testing.T) {
	want := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"from": structpb.NewNumberValue(-5),
			"to":   structpb.NewNumberValue(100),
		},
	}

	got := RangeToProto(api.Range{From: -5, To: 100})
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("RangeToProto mismatch (-want +got):\n%s", diff)
	}
}

func TestRangeFromProto(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    api.Range
		wantErr string
	}{
		{"ok", `{"from": 0, "to": 100}`, api.Range{From: 0, To: 100}, ""},
		{"inverted", `{"from": 10, "to": -10}`, api.Range{From: 10, To: -10}, ""},
		{"missing from", `{"to": 100}`, api.Range{}, "missing: from"},
		{"missing to", `{"from": 0}`, api.Range{}, "missing: to"},
		{"null", `{"from": null, "to": 1}`, api.Range{}, "invalid from: not a number"},
		{"string", `{"from": 0, "to": "100"}`, api.Range{}, "invalid to: not a number"},
		{"fraction", `{"from": 0.5, "to": 1}`, api.Range{}, "invalid from: not an integer"},
		{"huge", `{"from": 0, "to": 1e300}`, api.Range{}, "invalid to: out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &structpb.Struct{}
			require.NoError(t, protojson.Unmarshal([]byte(tt.json), p))

			got, err := RangeFromProto(p)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeFromProtoNil(t *testing.T) {
	_, err := RangeFromProto(nil)
	assert.EqualError(t, err, "missing: range")
}

func TestResultRoundTripOverWire(t *testing.T) {
	res := api.PrimeResult{
		Primes:     []int{2, 3, 5, 7},
		InstanceID: "9001",
	}

	// Through the binary encoding, since that's what grpc will do to it.
	b, err := proto.Marshal(ResultToProto(res))
	require.NoError(t, err)

	p := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(b, p))

	got, err := ResultFromProto(p)
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestResultEmptyPrimesSurvivesWire(t *testing.T) {
	b, err := proto.Marshal(ResultToProto(api.PrimeResult{Primes: []int{}, InstanceID: "a"}))
	require.NoError(t, err)

	p := &structpb.Struct{}
	require.NoError(t, proto.Unmarshal(b, p))

	got, err := ResultFromProto(p)
	require.NoError(t, err)
	assert.NotNil(t, got.Primes)
	assert.Empty(t, got.Primes)
}

func TestResultToProtoJSON(t *testing.T) {
	p := ResultToProto(api.PrimeResult{Primes: []int{17}, InstanceID: "localhost:9000"})

	b, err := protojson.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"primeNumbers": [17], "instanceId": "localhost:9000"}`, string(b))
}

func TestResultFromProtoMalformed(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{"missing primes", `{"instanceId": "a"}`, "missing: primeNumbers"},
		{"primes not a list", `{"primeNumbers": 2, "instanceId": "a"}`, "missing: primeNumbers"},
		{"bad element", `{"primeNumbers": [2, "3"], "instanceId": "a"}`, "invalid primeNumbers[1]"},
		{"missing instance", `{"primeNumbers": [2]}`, "missing: instanceId"},
		{"empty instance", `{"primeNumbers": [2], "instanceId": ""}`, "missing: instanceId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &structpb.Struct{}
			require.NoError(t, protojson.Unmarshal([]byte(tt.json), p))

			_, err := ResultFromProto(p)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIntFromProto(t *testing.T) {
	n, err := intFromProto(structpb.NewNumberValue(-(1<<53 - 1)))
	require.NoError(t, err)
	assert.Equal(t, -(1<<53 - 1), n)

	// Could have been 2^53+1 before it was rounded.
	_, err = intFromProto(structpb.NewNumberValue(1 << 53))
	assert.ErrorContains(t, err, "out of range")

	_, err = intFromProto(structpb.NewNumberValue(math.NaN()))
	assert.Error(t, err)

	_, err = intFromProto(structpb.NewNumberValue(math.Inf(1)))
	assert.Error(t, err)

	_, err = intFromProto(nil)
	assert.Error(t, err)
}

func TestValidateRange(t *testing.T) {
	tests := []struct {
		name    string
		r       api.Range
		wantErr string
	}{
		{"default", api.DefaultRange, ""},
		{"largest exact", api.Range{From: -(1<<53 - 1), To: 1<<53 - 1}, ""},
		{"from too big", api.Range{From: 1<<53 + 1, To: 0}, "invalid from: out of range: 9007199254740993"},
		{"to too small", api.Range{From: 0, To: -(1 << 53)}, "invalid to: out of range"},
		{"huge", api.Range{From: 1 << 60, To: 0}, "invalid from: out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRange(tt.r)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRangeNotRoundedOverWire(t *testing.T) {
	r := api.Range{From: 1<<53 + 1, To: 1<<53 + 1}

	// 2^53+1 becomes 2^53 as a float, which mustn't come back out as a valid
	// bound of some other range.
	_, err := RangeFromProto(RangeToProto(r))
	assert.ErrorContains(t, err, "invalid from: out of range")
}

package bridge

import (
	"fmt"

	fxcbor "github.com/fxamacker/cbor/v2"

	"github.com/mash-protocol/mash-cbor/pkg/cbor"
)

// encMode encodes Go structs with the same map order cbor.Encode uses.
var encMode fxcbor.EncMode

// decMode decodes into Go structs.
var decMode fxcbor.DecMode

func init() {
	var err error

	encOpts := fxcbor.EncOptions{
		Sort:          fxcbor.SortBytewiseLexical,
		IndefLength:   fxcbor.IndefLengthForbidden,
		NilContainers: fxcbor.NilContainerAsNull,
		Time:          fxcbor.TimeUnix,
		TimeTag:       fxcbor.EncTagRequired,
		BigIntConvert: fxcbor.BigIntConvertShortest,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := fxcbor.DecOptions{
		DupMapKey:         fxcbor.DupMapKeyQuiet, // last wins
		IndefLength:       fxcbor.IndefLengthAllowed,
		ExtraReturnErrors: fxcbor.ExtraDecErrorNone,
		MaxNestedLevels:   cbor.DefaultMaxNestedLevels,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal converts v, typically a struct with cbor field tags, to a Value.
func Marshal(v any) (cbor.Value, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	value, err := cbor.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return value, nil
}

// Unmarshal stores the Go form of v in the value pointed to by dst.
func Unmarshal(v cbor.Value, dst any) error {
	if err := decMode.Unmarshal(cbor.Encode(v), dst); err != nil {
		return fmt.Errorf("unmarshal into %T: %w", dst, err)
	}
	return nil
}

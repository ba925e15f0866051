package median

import (
	"fmt"
	"math/big"

	"github.com/smartcontractkit/libocr/bigbigendian"
)

const onchainConfigVersion = 1

var onchainConfigVersionBig = big.NewInt(onchainConfigVersion)

const onchainConfigEncodedLength = 3 * WordLength // version, min, max

// OnchainConfig carries the answer bounds enforced by the aggregator so that
// oracles can discard observations the contract would saturate.
type OnchainConfig struct {
	Min *big.Int
	Max *big.Int
}

// OnchainConfigCodec encodes an OnchainConfig in the format
// <version><min><max>, each a signed 32-byte big-endian word.
type OnchainConfigCodec struct{}

func (OnchainConfigCodec) Decode(b []byte) (OnchainConfig, error) {
	if len(b) != onchainConfigEncodedLength {
		return OnchainConfig{}, fmt.Errorf("unexpected length of OnchainConfig, expected %v, got %v", onchainConfigEncodedLength, len(b))
	}

	v, err := bigbigendian.DeserializeSigned(WordLength, b[:WordLength])
	if err != nil {
		return OnchainConfig{}, fmt.Errorf("unable to decode version: %w", err)
	}
	if v.Cmp(onchainConfigVersionBig) != 0 {
		return OnchainConfig{}, fmt.Errorf("unexpected version of OnchainConfig, expected %v, got %v", onchainConfigVersion, v)
	}

	lo, err := bigbigendian.DeserializeSigned(WordLength, b[WordLength:2*WordLength])
	if err != nil {
		return OnchainConfig{}, err
	}
	hi, err := bigbigendian.DeserializeSigned(WordLength, b[2*WordLength:])
	if err != nil {
		return OnchainConfig{}, err
	}
	if lo.Cmp(hi) > 0 {
		return OnchainConfig{}, fmt.Errorf("OnchainConfig min (%v) should not be greater than max (%v)", lo, hi)
	}
	return OnchainConfig{Min: lo, Max: hi}, nil
}

func (OnchainConfigCodec) Encode(c OnchainConfig) ([]byte, error) {
	if c.Min == nil || c.Max == nil {
		return nil, fmt.Errorf("OnchainConfig min and max must be set")
	}
	if c.Min.Cmp(c.Max) > 0 {
		return nil, fmt.Errorf("OnchainConfig min (%v) should not be greater than max (%v)", c.Min, c.Max)
	}
	result := make([]byte, 0, onchainConfigEncodedLength)
	var err error
	for _, v := range []*big.Int{onchainConfigVersionBig, c.Min, c.Max} {
		if result, err = AppendSigned(result, v); err != nil {
			return nil, err
		}
	}
	return result, nil
}

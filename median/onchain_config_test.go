package median

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_OnchainConfigCodec(t *testing.T) {
	codec := OnchainConfigCodec{}

	t.Run("encodes version, min and max as signed words", func(t *testing.T) {
		b, err := codec.Encode(OnchainConfig{Min: big.NewInt(-10), Max: big.NewInt(1_000_000_000)})
		require.NoError(t, err)
		require.Len(t, b, 96)
		assert.Equal(t, byte(1), b[31])
		assert.Equal(t, byte(0xff), b[32])

		c, err := codec.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, "-10", c.Min.String())
		assert.Equal(t, "1000000000", c.Max.String())
	})

	t.Run("rejects min greater than max", func(t *testing.T) {
		_, err := codec.Encode(OnchainConfig{Min: big.NewInt(2), Max: big.NewInt(1)})
		assert.EqualError(t, err, "OnchainConfig min (2) should not be greater than max (1)")
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := codec.Decode(make([]byte, 64))
		assert.EqualError(t, err, "unexpected length of OnchainConfig, expected 96, got 64")
	})

	t.Run("rejects unknown version", func(t *testing.T) {
		_, err := codec.Decode(make([]byte, 96))
		assert.EqualError(t, err, "unexpected version of OnchainConfig, expected 1, got 0")
	})
}

func FuzzDecodeOnchainConfig(f *testing.F) {
	valid, err := OnchainConfigCodec{}.Encode(OnchainConfig{Min: big.NewInt(1), Max: big.NewInt(1000)})
	if err != nil {
		f.Fatalf("failed to construct valid OnchainConfig: %s", err)
	}

	f.Add([]byte{})
	f.Add(valid)
	f.Fuzz(func(t *testing.T, encoded []byte) {
		decoded, err := OnchainConfigCodec{}.Decode(encoded)
		if err != nil {
			return
		}

		encoded2, err := OnchainConfigCodec{}.Encode(decoded)
		if err != nil {
			t.Fatalf("failed to re-encode decoded input: %s", err)
		}

		if !bytes.Equal(encoded, encoded2) {
			t.Fatalf("re-encoding of decoded input %x did not match original input %x", encoded2, encoded)
		}
	})
}

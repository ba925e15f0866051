package median

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/smartcontractkit/libocr/bigbigendian"
)

// WordLength is the width of every field in the hashed report and config
// layouts.
const WordLength = 32

// ChunkLength is the number of payload bytes packed into one word when
// encoding variable length byte strings. One byte of headroom keeps each
// chunk inside the 252-bit field.
const ChunkLength = 31

var (
	MinInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	MaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
)

// InInt128Range reports whether v can be represented as a signed 128-bit
// integer.
func InInt128Range(v *big.Int) bool {
	return v != nil && v.Cmp(MinInt128) >= 0 && v.Cmp(MaxInt128) <= 0
}

// AppendUint appends v as a big-endian word.
func AppendUint(b []byte, v uint64) []byte {
	var w [WordLength]byte
	binary.BigEndian.PutUint64(w[WordLength-8:], v)
	return append(b, w[:]...)
}

// AppendSigned appends v as a two's complement big-endian word.
func AppendSigned(b []byte, v *big.Int) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot encode nil integer")
	}
	w, err := bigbigendian.SerializeSigned(WordLength, v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %v as signed word: %w", v, err)
	}
	return append(b, w...), nil
}

// AppendBytes appends data as a length word followed by ChunkLength sized
// chunks, each right aligned in its own word.
func AppendBytes(b []byte, data []byte) []byte {
	b = AppendUint(b, uint64(len(data)))
	for i := 0; i < len(data); i += ChunkLength {
		end := min(i+ChunkLength, len(data))
		var w [WordLength]byte
		chunk := data[i:end]
		copy(w[WordLength-len(chunk):], chunk)
		b = append(b, w[:]...)
	}
	return b
}

// AppendFixed appends a fixed width value of at most WordLength bytes, right
// aligned.
func AppendFixed(b []byte, data []byte) ([]byte, error) {
	if len(data) > WordLength {
		return nil, fmt.Errorf("value of %d bytes does not fit into a word", len(data))
	}
	var w [WordLength]byte
	copy(w[WordLength-len(data):], data)
	return append(b, w[:]...), nil
}

func readUint(word []byte) (uint64, error) {
	for _, c := range word[:WordLength-8] {
		if c != 0 {
			return 0, fmt.Errorf("word 0x%x overflows uint64", word)
		}
	}
	return binary.BigEndian.Uint64(word[WordLength-8:]), nil
}

package median

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/smartcontractkit/libocr/bigbigendian"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"
)

// Report is the raw report co-signed by a quorum of oracles.
//
// Encoded layout, one WordLength word per field:
//
//	observation_timestamp
//	observers
//	observations_len
//	observations...
//	juels_per_fee_coin
type Report struct {
	ObservationTimestamp uint64
	Observers            ObserverMask
	Observations         []*big.Int
	JuelsPerFeeCoin      *big.Int
}

const reportFixedWords = 4 // timestamp, observers, len, juels

// EpochAndRound packs an epoch and round into a single ordered value. The
// packed order matches lexicographic order on (epoch, round).
func EpochAndRound(ts ocr2types.ReportTimestamp) uint64 {
	return uint64(ts.Epoch)<<8 | uint64(ts.Round)
}

// SplitEpochAndRound is the inverse of EpochAndRound.
func SplitEpochAndRound(v uint64) (epoch uint32, round uint8) {
	return uint32(v >> 8), uint8(v) //nolint:gosec // packed from uint32/uint8
}

type ReportCodec struct{}

func (ReportCodec) Encode(r Report) ([]byte, error) {
	if r.JuelsPerFeeCoin == nil {
		return nil, errors.New("report is missing juelsPerFeeCoin")
	}
	b := make([]byte, 0, (reportFixedWords+len(r.Observations))*WordLength)
	b = AppendUint(b, r.ObservationTimestamp)
	b = AppendUint(b, uint64(r.Observers))
	b = AppendUint(b, uint64(len(r.Observations)))
	var err error
	for i, o := range r.Observations {
		if b, err = AppendSigned(b, o); err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	if b, err = AppendSigned(b, r.JuelsPerFeeCoin); err != nil {
		return nil, fmt.Errorf("juelsPerFeeCoin: %w", err)
	}
	return b, nil
}

func (ReportCodec) Decode(b []byte) (r Report, err error) {
	if len(b)%WordLength != 0 || len(b) < reportFixedWords*WordLength {
		return r, fmt.Errorf("invalid report length %d", len(b))
	}
	word := func(i int) []byte { return b[i*WordLength : (i+1)*WordLength] }

	if r.ObservationTimestamp, err = readUint(word(0)); err != nil {
		return r, fmt.Errorf("observation timestamp: %w", err)
	}
	observers, err := readUint(word(1))
	if err != nil || observers > 1<<32-1 {
		return r, fmt.Errorf("observers word 0x%x is not a 32-bit mask", word(1))
	}
	r.Observers = ObserverMask(observers)
	n, err := readUint(word(2))
	if err != nil {
		return r, fmt.Errorf("observations length: %w", err)
	}
	if n > MaxObservers {
		return r, fmt.Errorf("too many observations: %d", n)
	}
	expected := (reportFixedWords + int(n)) * WordLength
	if len(b) != expected {
		return r, fmt.Errorf("invalid report length %d, expected %d for %d observations", len(b), expected, n)
	}
	r.Observations = make([]*big.Int, n)
	for i := range r.Observations {
		if r.Observations[i], err = decodeSigned(word(3 + i)); err != nil {
			return r, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	if r.JuelsPerFeeCoin, err = decodeSigned(word(3 + int(n))); err != nil {
		return r, fmt.Errorf("juelsPerFeeCoin: %w", err)
	}
	return r, nil
}

// ReportDigest is the message every oracle signs: keccak256 over the report
// context words followed by the encoded report.
func ReportDigest(rc ocr2types.ReportContext, r Report) ([32]byte, error) {
	encoded, err := ReportCodec{}.Encode(r)
	if err != nil {
		return [32]byte{}, err
	}
	msg := make([]byte, 0, 3*WordLength+len(encoded))
	msg = append(msg, rc.ConfigDigest[:]...)
	msg = AppendUint(msg, EpochAndRound(rc.ReportTimestamp))
	msg = append(msg, rc.ExtraHash[:]...)
	msg = append(msg, encoded...)
	return crypto.Keccak256Hash(msg), nil
}

// AttributedObservation is a single oracle's contribution before aggregation.
type AttributedObservation struct {
	Timestamp       uint64
	Value           *big.Int
	JuelsPerFeeCoin *big.Int
	Observer        int
}

// BuildReport assembles a report from attributed observations. Timestamp and
// juelsPerFeeCoin take the median of the observed values; observations are
// stored sorted ascending.
func BuildReport(oo []AttributedObservation) (Report, error) {
	n := len(oo)
	if n == 0 {
		return Report{}, errors.New("couldn't build report from empty attributed observations")
	}

	// preserve original slice
	oo = append([]AttributedObservation{}, oo...)

	slots := make([]int, n)
	for i, o := range oo {
		if !InInt128Range(o.Value) || !InInt128Range(o.JuelsPerFeeCoin) {
			return Report{}, fmt.Errorf("observation from oracle %d is not in int128 range: value = (%v), fee = (%v)", o.Observer, o.Value, o.JuelsPerFeeCoin)
		}
		slots[i] = o.Observer
	}
	observers, err := NewObserverMask(slots...)
	if err != nil {
		return Report{}, err
	}

	sort.Slice(oo, func(i, j int) bool { return oo[i].Timestamp < oo[j].Timestamp })
	timestamp := oo[medianIndex(n)].Timestamp

	sort.Slice(oo, func(i, j int) bool { return oo[i].JuelsPerFeeCoin.Cmp(oo[j].JuelsPerFeeCoin) < 0 })
	juels := oo[medianIndex(n)].JuelsPerFeeCoin

	sort.Slice(oo, func(i, j int) bool { return oo[i].Value.Cmp(oo[j].Value) < 0 })
	observations := make([]*big.Int, n)
	for i, o := range oo {
		observations[i] = new(big.Int).Set(o.Value)
	}

	return Report{
		ObservationTimestamp: timestamp,
		Observers:            observers,
		Observations:         observations,
		JuelsPerFeeCoin:      new(big.Int).Set(juels),
	}, nil
}

func decodeSigned(word []byte) (*big.Int, error) {
	return bigbigendian.DeserializeSigned(WordLength, word)
}

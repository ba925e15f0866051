package aggregator

import (
	"math/big"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"
)

type RoundData struct {
	RoundID         uint64
	Answer          *big.Int
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// Decimal scales the raw answer down by the feed's decimals, e.g. an answer
// of 12345 with 2 decimals is 123.45.
func (r RoundData) Decimal(decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(r.Answer, -int32(decimals))
}

// transmission is the committed record of one accepted report.
type transmission struct {
	round                RoundData
	blockNumber          uint64
	observationTimestamp uint64
	transmitter          common.Address
	configDigest         ocr2types.ConfigDigest
	epochAndRound        uint64
}

func (t transmission) roundData() RoundData {
	r := t.round
	r.Answer = new(big.Int).Set(t.round.Answer)
	return r
}

// LatestRoundData fails with ErrNoData until the first report is accepted.
func (a *Aggregator) LatestRoundData() (RoundData, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.rounds) == 0 {
		return RoundData{}, errorsmod.Wrap(ErrNoData, "no round has been committed")
	}
	return a.rounds[len(a.rounds)-1].roundData(), nil
}

// RoundData fails with ErrNoData for ids that were never committed. Round ids
// start at 1.
func (a *Aggregator) RoundData(roundID uint64) (RoundData, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if roundID == 0 || roundID > uint64(len(a.rounds)) {
		return RoundData{}, errorsmod.Wrapf(ErrNoData, "round %d", roundID)
	}
	return a.rounds[roundID-1].roundData(), nil
}

func (a *Aggregator) LatestAnswer() (*big.Int, error) {
	r, err := a.LatestRoundData()
	if err != nil {
		return nil, err
	}
	return r.Answer, nil
}

func (a *Aggregator) LatestRound() (uint64, error) {
	r, err := a.LatestRoundData()
	if err != nil {
		return 0, err
	}
	return r.RoundID, nil
}

// appendRound commits the next round. Ids are contiguous.
func (a *Aggregator) appendRound(t transmission) uint64 {
	id := uint64(len(a.rounds)) + 1
	t.round.RoundID = id
	t.round.AnsweredInRound = id
	a.rounds = append(a.rounds, t)

	promLatestRoundID.WithLabelValues(a.params.Description).Set(float64(id))
	promLatestAnswer.WithLabelValues(a.params.Description).Set(t.round.Decimal(a.params.Decimals).InexactFloat64())
	return id
}

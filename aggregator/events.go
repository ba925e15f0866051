package aggregator

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/median"
)

// Event is a notification emitted by a successful call.
type Event interface {
	EventName() string
}

// EventRecord wraps an Event with its position in the contract's event
// stream. Seq starts at 1 and increases by one per emitted event.
type EventRecord struct {
	Contract    common.Address `json:"contract"`
	Seq         uint64         `json:"seq"`
	BlockNumber uint64         `json:"blockNumber"`
	Name        string         `json:"name"`
	Event       Event          `json:"event"`
}

// EventSink receives the events of a call only after the call committed, in
// emission order. Implementations must not call back into the Aggregator.
type EventSink interface {
	Emit(records ...EventRecord)
}

type ConfigSet struct {
	PreviousConfigBlockNumber uint64                 `json:"previousConfigBlockNumber"`
	ConfigDigest              ocr2types.ConfigDigest `json:"configDigest"`
	ConfigCount               uint64                 `json:"configCount"`
	Oracles                   []Oracle               `json:"oracles"`
	F                         uint8                  `json:"f"`
	OnchainConfig             []byte                 `json:"onchainConfig"`
	OffchainConfigVersion     uint64                 `json:"offchainConfigVersion"`
	OffchainConfig            []byte                 `json:"offchainConfig"`
}

type NewTransmission struct {
	RoundID              uint64                 `json:"roundId"`
	Answer               *big.Int               `json:"answer"`
	Transmitter          common.Address         `json:"transmitter"`
	ObservationTimestamp uint64                 `json:"observationTimestamp"`
	Observers            median.ObserverMask    `json:"observers"`
	Observations         []*big.Int             `json:"observations"`
	JuelsPerFeeCoin      *big.Int               `json:"juelsPerFeeCoin"`
	ConfigDigest         ocr2types.ConfigDigest `json:"configDigest"`
	EpochAndRound        uint64                 `json:"epochAndRound"`
}

type AnswerUpdated struct {
	Current   *big.Int `json:"current"`
	RoundID   uint64   `json:"roundId"`
	UpdatedAt int64    `json:"updatedAt"`
}

type PayeeshipTransferRequested struct {
	Transmitter common.Address `json:"transmitter"`
	Current     common.Address `json:"current"`
	Proposed    common.Address `json:"proposed"`
}

type PayeeshipTransferred struct {
	Transmitter common.Address `json:"transmitter"`
	Previous    common.Address `json:"previous"`
	Current     common.Address `json:"current"`
}

type OwnershipTransferRequested struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
}

type OwnershipTransferred struct {
	From common.Address `json:"from"`
	To   common.Address `json:"to"`
}

func (ConfigSet) EventName() string                  { return "ConfigSet" }
func (NewTransmission) EventName() string            { return "NewTransmission" }
func (AnswerUpdated) EventName() string              { return "AnswerUpdated" }
func (PayeeshipTransferRequested) EventName() string { return "PayeeshipTransferRequested" }
func (PayeeshipTransferred) EventName() string       { return "PayeeshipTransferred" }
func (OwnershipTransferRequested) EventName() string { return "OwnershipTransferRequested" }
func (OwnershipTransferred) EventName() string       { return "OwnershipTransferred" }

type nopSink struct{}

func (nopSink) Emit(...EventRecord) {}

// pending collects the events of one call. Nothing leaves the Aggregator
// unless the call succeeds.
type pending struct {
	tx     Tx
	events []Event
}

func (p *pending) emit(e Event) {
	p.events = append(p.events, e)
}

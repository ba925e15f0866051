// Package aggregator implements the on-ledger state machine of an OCR2 median
// aggregator: oracle set configuration, verification and aggregation of
// transmitted reports, round history and payee bookkeeping.
//
// Every entry point runs to completion with exclusive access to the
// contract state. A failed call returns one of the registered errors and
// leaves the state exactly as it found it.
package aggregator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/median"
	"github.com/smartcontractkit/chainlink-ocr2-aggregator/signature"
)

const typeAndVersion = "OCR2Aggregator 1.0.0"

type Config struct {
	// Log rejected transmissions at info level instead of debug
	VerboseLogging bool
}

type Opts struct {
	Params Params
	Config Config
	Logger logger.Logger
	// Defaults to signature.Secp256k1Verifier
	Verifier signature.Verifier
	// Optional; receives committed events
	Sink EventSink
}

func (o *Opts) verifyConfig() error {
	var errs []error

	if o.Logger == nil {
		errs = append(errs, errors.New("logger is required for aggregator"))
	}
	if err := o.Params.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid aggregator configuration: %w", errors.Join(errs...))
	}
	return nil
}

type Aggregator struct {
	lggr     logger.SugaredLogger
	params   Params
	config   Config
	verifier signature.Verifier
	digester ConfigDigester
	sink     EventSink

	mu sync.RWMutex

	owner        common.Address
	pendingOwner common.Address

	configCount             uint64
	latestConfigBlockNumber uint64
	contractConfig          *ContractConfig

	ordering orderingState
	rounds   []transmission
	payees   map[common.Address]PayeeState

	eventSeq uint64
}

func New(opts Opts) (*Aggregator, error) {
	if err := opts.verifyConfig(); err != nil {
		return nil, err
	}
	verifier := opts.Verifier
	if verifier == nil {
		verifier = signature.Secp256k1Verifier{}
	}
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	lggr := logger.Sugared(opts.Logger).Named("OCR2Aggregator").With("contract", opts.Params.Address, "description", opts.Params.Description)

	return &Aggregator{
		lggr:     lggr,
		params:   opts.Params,
		config:   opts.Config,
		verifier: verifier,
		digester: ConfigDigester{ChainID: opts.Params.ChainID, ContractAddress: opts.Params.Address},
		sink:     sink,
		owner:    opts.Params.Owner,
		payees:   make(map[common.Address]PayeeState),
	}, nil
}

// commit hands the events of a successful call to the sink. Must be called
// with the write lock held so that event order matches call order.
func (a *Aggregator) commit(p *pending) {
	if len(p.events) == 0 {
		return
	}
	records := make([]EventRecord, len(p.events))
	for i, e := range p.events {
		a.eventSeq++
		records[i] = EventRecord{
			Contract:    a.params.Address,
			Seq:         a.eventSeq,
			BlockNumber: p.tx.BlockNumber,
			Name:        e.EventName(),
			Event:       e,
		}
	}
	a.sink.Emit(records...)
}

func (a *Aggregator) TypeAndVersion() string {
	return typeAndVersion
}

func (a *Aggregator) Description() string {
	return a.params.Description
}

func (a *Aggregator) Decimals() uint8 {
	return a.params.Decimals
}

func (a *Aggregator) LinkToken() common.Address {
	return a.params.LinkToken
}

// OnchainConfig encodes the answer bounds for the reporting plugin, which
// must not report medians the aggregator would clamp.
func (a *Aggregator) OnchainConfig() ([]byte, error) {
	return median.OnchainConfigCodec{}.Encode(median.OnchainConfig{Min: a.params.MinAnswer, Max: a.params.MaxAnswer})
}

package aggregator

import (
	"bytes"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/median"
	"github.com/smartcontractkit/chainlink-ocr2-aggregator/signature"
)

// MaxOracles is bounded by the width of the observer mask.
const MaxOracles = median.MaxObservers

// Oracle occupies one slot of the active oracle set.
type Oracle struct {
	Signer      signature.PublicKey `json:"signer"`
	Transmitter common.Address      `json:"transmitter"`
}

// ConfigArgs are the owner supplied inputs of SetConfig.
type ConfigArgs struct {
	Oracles               []Oracle
	F                     uint8
	OnchainConfig         []byte
	OffchainConfigVersion uint64
	OffchainConfig        []byte
}

// ContractConfig is the active configuration.
type ContractConfig struct {
	ConfigArgs
	ConfigCount  uint64
	ConfigDigest ocr2types.ConfigDigest
	// Block in which this configuration was set
	BlockNumber uint64
}

func (args ConfigArgs) validate() error {
	if args.F == 0 {
		return errorsmod.Wrap(ErrInvalidConfig, "f must be positive")
	}
	if len(args.Oracles) > MaxOracles {
		return errorsmod.Wrapf(ErrInvalidConfig, "too many oracles: %d > %d", len(args.Oracles), MaxOracles)
	}
	if need := 3*int(args.F) + 1; len(args.Oracles) < need {
		return errorsmod.Wrapf(ErrInvalidConfig, "faulty-oracle f too high: %d oracles need at least %d for f=%d", len(args.Oracles), need, args.F)
	}

	signers := make(map[signature.PublicKey]struct{}, len(args.Oracles))
	transmitters := make(map[common.Address]struct{}, len(args.Oracles))
	for i, o := range args.Oracles {
		if o.Signer.IsZero() {
			return errorsmod.Wrapf(ErrInvalidConfig, "oracle %d has an empty signer", i)
		}
		if o.Transmitter == (common.Address{}) {
			return errorsmod.Wrapf(ErrInvalidConfig, "oracle %d has an empty transmitter", i)
		}
		if _, ok := signers[o.Signer]; ok {
			return errorsmod.Wrapf(ErrInvalidConfig, "repeated signer %s", o.Signer)
		}
		if _, ok := transmitters[o.Transmitter]; ok {
			return errorsmod.Wrapf(ErrInvalidConfig, "repeated transmitter %s", o.Transmitter)
		}
		signers[o.Signer] = struct{}{}
		transmitters[o.Transmitter] = struct{}{}
	}
	return nil
}

func (args ConfigArgs) clone() ConfigArgs {
	return ConfigArgs{
		Oracles:               append([]Oracle(nil), args.Oracles...),
		F:                     args.F,
		OnchainConfig:         bytes.Clone(args.OnchainConfig),
		OffchainConfigVersion: args.OffchainConfigVersion,
		OffchainConfig:        bytes.Clone(args.OffchainConfig),
	}
}

// SetConfig replaces the oracle set and returns the new config digest that
// oracles must sign against. Reports signed under earlier digests are
// rejected from here on.
func (a *Aggregator) SetConfig(tx Tx, args ConfigArgs) (ocr2types.ConfigDigest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyOwner(tx); err != nil {
		return ocr2types.ConfigDigest{}, err
	}
	if err := args.validate(); err != nil {
		return ocr2types.ConfigDigest{}, err
	}
	args = args.clone()

	configCount := a.configCount + 1
	digest, err := a.digester.ConfigDigest(configCount, args)
	if err != nil {
		return ocr2types.ConfigDigest{}, errorsmod.Wrap(ErrInvalidConfig, err.Error())
	}

	// Payees follow their transmitter; a transmitter leaving the set takes
	// its payee with it.
	active := make(map[common.Address]struct{}, len(args.Oracles))
	for _, o := range args.Oracles {
		active[o.Transmitter] = struct{}{}
	}
	for t := range a.payees {
		if _, ok := active[t]; !ok {
			delete(a.payees, t)
		}
	}

	previousBlockNumber := a.latestConfigBlockNumber
	a.configCount = configCount
	a.latestConfigBlockNumber = tx.BlockNumber
	a.contractConfig = &ContractConfig{
		ConfigArgs:   args,
		ConfigCount:  configCount,
		ConfigDigest: digest,
		BlockNumber:  tx.BlockNumber,
	}

	promConfigCount.WithLabelValues(a.params.Description).Set(float64(configCount))
	a.lggr.Infow("Config set", "configDigest", digest, "configCount", configCount, "f", args.F, "nOracles", len(args.Oracles))

	p := &pending{tx: tx}
	p.emit(ConfigSet{
		PreviousConfigBlockNumber: previousBlockNumber,
		ConfigDigest:              digest,
		ConfigCount:               configCount,
		Oracles:                   append([]Oracle(nil), args.Oracles...),
		F:                         args.F,
		OnchainConfig:             bytes.Clone(args.OnchainConfig),
		OffchainConfigVersion:     args.OffchainConfigVersion,
		OffchainConfig:            bytes.Clone(args.OffchainConfig),
	})
	a.commit(p)
	return digest, nil
}

// LatestConfigDetails returns zero values until the first SetConfig.
func (a *Aggregator) LatestConfigDetails() (configCount uint64, blockNumber uint64, digest ocr2types.ConfigDigest) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.contractConfig == nil {
		return 0, 0, digest
	}
	return a.configCount, a.latestConfigBlockNumber, a.contractConfig.ConfigDigest
}

func (a *Aggregator) Transmitters() []common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.contractConfig == nil {
		return nil
	}
	out := make([]common.Address, len(a.contractConfig.Oracles))
	for i, o := range a.contractConfig.Oracles {
		out[i] = o.Transmitter
	}
	return out
}

func (a *Aggregator) Oracles() []Oracle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.contractConfig == nil {
		return nil
	}
	return append([]Oracle(nil), a.contractConfig.Oracles...)
}

func (a *Aggregator) isActiveTransmitter(t common.Address) bool {
	if a.contractConfig == nil {
		return false
	}
	for _, o := range a.contractConfig.Oracles {
		if o.Transmitter == t {
			return true
		}
	}
	return false
}

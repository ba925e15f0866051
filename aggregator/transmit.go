package aggregator

import (
	"errors"
	"math"
	"math/big"
	"time"

	errorsmod "cosmossdk.io/errors"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/median"
	"github.com/smartcontractkit/chainlink-ocr2-aggregator/signature"
)

// orderingState is the last accepted (epoch, round) under a config digest.
// A digest that does not match has no baseline yet.
type orderingState struct {
	configDigest  ocr2types.ConfigDigest
	epochAndRound uint64
	seen          bool
}

func (o orderingState) accepts(digest ocr2types.ConfigDigest, epochAndRound uint64) bool {
	if !o.seen || o.configDigest != digest {
		return true
	}
	return epochAndRound > o.epochAndRound
}

// TransmissionDetails describes the latest accepted report.
type TransmissionDetails struct {
	ConfigDigest    ocr2types.ConfigDigest
	Epoch           uint32
	Round           uint8
	LatestAnswer    *big.Int
	LatestTimestamp time.Time
}

// Transmit verifies a report co-signed by a quorum of the active oracles and
// commits its median as the next round.
//
// Checks run in a fixed order and the first failure aborts the call:
// config digest, epoch/round ordering, signature count, signers and
// signatures, then the report contents.
func (a *Aggregator) Transmit(tx Tx, rc ocr2types.ReportContext, report median.Report, sigs []signature.Signature) (roundID uint64, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer func() {
		status := "success"
		if err != nil {
			status = transmitStatus(err)
			a.logRejected(rc, err)
		}
		promTransmitCount.WithLabelValues(a.params.Description, status).Inc()
	}()

	cfg := a.contractConfig
	if cfg == nil {
		return 0, errorsmod.Wrap(ErrStaleConfig, "no config has been set")
	}
	if rc.ConfigDigest != cfg.ConfigDigest {
		return 0, errorsmod.Wrapf(ErrStaleConfig, "report digest %s, expected %s", rc.ConfigDigest, cfg.ConfigDigest)
	}

	epochAndRound := median.EpochAndRound(rc.ReportTimestamp)
	if !a.ordering.accepts(rc.ConfigDigest, epochAndRound) {
		epoch, round := median.SplitEpochAndRound(a.ordering.epochAndRound)
		return 0, errorsmod.Wrapf(ErrStaleReport, "epoch %d round %d, latest accepted epoch %d round %d", rc.Epoch, rc.Round, epoch, round)
	}

	if len(sigs) < int(cfg.F)+1 {
		return 0, errorsmod.Wrapf(ErrInsufficientSignatures, "got %d signatures, need %d", len(sigs), int(cfg.F)+1)
	}

	msg, err := median.ReportDigest(rc, report)
	if err != nil {
		return 0, errorsmod.Wrap(ErrInvalidReport, err.Error())
	}

	slots := make(map[signature.PublicKey]int, len(cfg.Oracles))
	for i, o := range cfg.Oracles {
		slots[o.Signer] = i
	}
	signed := make(map[signature.PublicKey]struct{}, len(sigs))
	for i, sig := range sigs {
		if _, ok := slots[sig.PublicKey]; !ok {
			return 0, errorsmod.Wrapf(ErrUnknownSigner, "signature %d from %s", i, sig.PublicKey)
		}
		if _, ok := signed[sig.PublicKey]; ok {
			return 0, errorsmod.Wrapf(ErrDuplicateSigner, "signature %d repeats signer %s", i, sig.PublicKey)
		}
		signed[sig.PublicKey] = struct{}{}
		if !a.verifier.Verify(msg, sig) {
			return 0, errorsmod.Wrapf(ErrInvalidSignature, "signature %d from %s", i, sig.PublicKey)
		}
	}

	if err = validateReport(report, cfg); err != nil {
		return 0, err
	}

	answer, err := median.Median(report.Observations)
	if err != nil {
		return 0, errorsmod.Wrap(ErrInvalidReport, err.Error())
	}
	answer = median.Clamp(answer, a.params.MinAnswer, a.params.MaxAnswer)

	roundID = a.appendRound(transmission{
		round: RoundData{
			Answer:    answer,
			StartedAt: time.Unix(int64(report.ObservationTimestamp), 0).UTC(),
			UpdatedAt: tx.Timestamp,
		},
		blockNumber:          tx.BlockNumber,
		observationTimestamp: report.ObservationTimestamp,
		transmitter:          tx.Caller,
		configDigest:         rc.ConfigDigest,
		epochAndRound:        epochAndRound,
	})
	a.ordering = orderingState{configDigest: rc.ConfigDigest, epochAndRound: epochAndRound, seen: true}

	a.lggr.Debugw("Transmission accepted", "roundID", roundID, "answer", answer, "transmitter", tx.Caller,
		"configDigest", rc.ConfigDigest, "epoch", rc.Epoch, "round", rc.Round)

	observations := make([]*big.Int, len(report.Observations))
	for i, o := range report.Observations {
		observations[i] = new(big.Int).Set(o)
	}
	p := &pending{tx: tx}
	p.emit(NewTransmission{
		RoundID:              roundID,
		Answer:               new(big.Int).Set(answer),
		Transmitter:          tx.Caller,
		ObservationTimestamp: report.ObservationTimestamp,
		Observers:            report.Observers,
		Observations:         observations,
		JuelsPerFeeCoin:      new(big.Int).Set(report.JuelsPerFeeCoin),
		ConfigDigest:         rc.ConfigDigest,
		EpochAndRound:        epochAndRound,
	})
	p.emit(AnswerUpdated{
		Current:   new(big.Int).Set(answer),
		RoundID:   roundID,
		UpdatedAt: tx.Timestamp.Unix(),
	})
	a.commit(p)
	return roundID, nil
}

// validateReport checks the decoded report against the active oracle set.
func validateReport(r median.Report, cfg *ContractConfig) error {
	n := len(r.Observations)
	switch {
	case n == 0:
		return errorsmod.Wrap(ErrInvalidReport, "report has no observations")
	case n > len(cfg.Oracles):
		return errorsmod.Wrapf(ErrInvalidReport, "%d observations from %d oracles", n, len(cfg.Oracles))
	case n <= 2*int(cfg.F):
		return errorsmod.Wrapf(ErrInvalidReport, "%d observations, need more than %d", n, 2*int(cfg.F))
	}
	if r.ObservationTimestamp > math.MaxInt64 {
		return errorsmod.Wrapf(ErrInvalidReport, "observation timestamp %d overflows unix seconds", r.ObservationTimestamp)
	}
	if highest := r.Observers.HighestSlot(); highest >= len(cfg.Oracles) {
		return errorsmod.Wrapf(ErrInvalidReport, "observer slot %d is not active", highest)
	}
	if c := r.Observers.Count(); c != n {
		return errorsmod.Wrapf(ErrInvalidReport, "observer mask %s names %d observers, report carries %d observations", r.Observers, c, n)
	}
	for i, o := range r.Observations {
		if !median.InInt128Range(o) {
			return errorsmod.Wrapf(ErrInvalidReport, "observation %d (%v) is not in int128 range", i, o)
		}
	}
	if !median.InInt128Range(r.JuelsPerFeeCoin) {
		return errorsmod.Wrapf(ErrInvalidReport, "juelsPerFeeCoin (%v) is not in int128 range", r.JuelsPerFeeCoin)
	}
	return nil
}

var transmitErrors = []*errorsmod.Error{
	ErrStaleConfig,
	ErrStaleReport,
	ErrInsufficientSignatures,
	ErrUnknownSigner,
	ErrDuplicateSigner,
	ErrInvalidSignature,
	ErrInvalidReport,
}

// transmitStatus labels a rejected transmission with the failing check.
func transmitStatus(err error) string {
	for _, e := range transmitErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "error"
}

func (a *Aggregator) logRejected(rc ocr2types.ReportContext, err error) {
	log := a.lggr.Debugw
	if a.config.VerboseLogging {
		log = a.lggr.Infow
	}
	log("Transmission rejected", "err", err, "configDigest", rc.ConfigDigest, "epoch", rc.Epoch, "round", rc.Round)
}

// LatestTransmissionDetails returns the digest of the active config together
// with the latest accepted report under it. Answer and timestamp refer to the
// latest round regardless of config.
func (a *Aggregator) LatestTransmissionDetails() TransmissionDetails {
	a.mu.RLock()
	defer a.mu.RUnlock()

	d := TransmissionDetails{LatestAnswer: new(big.Int)}
	if a.contractConfig != nil {
		d.ConfigDigest = a.contractConfig.ConfigDigest
		if a.ordering.seen && a.ordering.configDigest == d.ConfigDigest {
			d.Epoch, d.Round = median.SplitEpochAndRound(a.ordering.epochAndRound)
		}
	}
	if len(a.rounds) > 0 {
		latest := a.rounds[len(a.rounds)-1]
		d.LatestAnswer = new(big.Int).Set(latest.round.Answer)
		d.LatestTimestamp = latest.round.UpdatedAt
	}
	return d
}

package aggregator

import (
	"bytes"
	"sort"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/maps"
)

// PayeeState is the payee of record of one transmitter and the payee it has
// proposed to hand over to, if any.
type PayeeState struct {
	Current  common.Address `json:"current"`
	Proposed common.Address `json:"proposed"`
}

// SetPayees assigns initial payees. Re-asserting an existing assignment is a
// no-op; changing one fails with ErrPayeeAlreadySet and must go through
// TransferPayeeship instead.
func (a *Aggregator) SetPayees(tx Tx, transmitters, payees []common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyOwner(tx); err != nil {
		return err
	}
	if len(transmitters) != len(payees) {
		return errorsmod.Wrapf(ErrLengthMismatch, "%d transmitters, %d payees", len(transmitters), len(payees))
	}

	staged := make(map[common.Address]common.Address, len(transmitters))
	var order []common.Address
	for i, t := range transmitters {
		if !a.isActiveTransmitter(t) {
			return errorsmod.Wrapf(ErrInvalidConfig, "transmitter %s is not active", t)
		}
		current, ok := staged[t]
		if !ok {
			current = a.payees[t].Current
		}
		switch {
		case current == payees[i]:
			continue
		case current != (common.Address{}):
			return errorsmod.Wrapf(ErrPayeeAlreadySet, "transmitter %s already pays %s", t, current)
		}
		if _, ok := staged[t]; !ok {
			order = append(order, t)
		}
		staged[t] = payees[i]
	}

	p := &pending{tx: tx}
	for _, t := range order {
		state := a.payees[t]
		previous := state.Current
		state.Current = staged[t]
		a.payees[t] = state
		p.emit(PayeeshipTransferred{Transmitter: t, Previous: previous, Current: state.Current})
	}
	a.commit(p)
	return nil
}

// TransferPayeeship proposes a new payee for transmitter. Only the current
// payee may propose, and the transfer completes once proposed accepts.
func (a *Aggregator) TransferPayeeship(tx Tx, transmitter, proposed common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if proposed == tx.Caller {
		return errorsmod.Wrap(ErrInvalidTransfer, "cannot transfer to self")
	}
	state := a.payees[transmitter]
	if state.Current == (common.Address{}) || tx.Caller != state.Current {
		return errorsmod.Wrapf(ErrUnauthorized, "caller %s is not the payee of %s", tx.Caller, transmitter)
	}

	previous := state.Proposed
	state.Proposed = proposed
	a.payees[transmitter] = state

	p := &pending{tx: tx}
	if previous != proposed {
		p.emit(PayeeshipTransferRequested{Transmitter: transmitter, Current: state.Current, Proposed: proposed})
	}
	a.commit(p)
	return nil
}

func (a *Aggregator) AcceptPayeeship(tx Tx, transmitter common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.payees[transmitter]
	if state.Proposed == (common.Address{}) || tx.Caller != state.Proposed {
		return errorsmod.Wrapf(ErrUnauthorized, "caller %s is not the proposed payee of %s", tx.Caller, transmitter)
	}

	previous := state.Current
	a.payees[transmitter] = PayeeState{Current: tx.Caller}
	a.lggr.Infow("Payeeship transferred", "transmitter", transmitter, "previous", previous, "current", tx.Caller)

	p := &pending{tx: tx}
	p.emit(PayeeshipTransferred{Transmitter: transmitter, Previous: previous, Current: tx.Caller})
	a.commit(p)
	return nil
}

// Payee returns the zero PayeeState for transmitters without a payee.
func (a *Aggregator) Payee(transmitter common.Address) PayeeState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.payees[transmitter]
}

// Payees lists every transmitter with a payee, ordered by transmitter
// address.
func (a *Aggregator) Payees() ([]common.Address, []PayeeState) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	transmitters := maps.Keys(a.payees)
	sort.Slice(transmitters, func(i, j int) bool {
		return bytes.Compare(transmitters[i][:], transmitters[j][:]) < 0
	})
	states := make([]PayeeState, len(transmitters))
	for i, t := range transmitters {
		states[i] = a.payees[t]
	}
	return transmitters, states
}

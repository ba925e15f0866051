package aggregator

import (
	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
)

func (a *Aggregator) Owner() common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.owner
}

// PendingOwner is the proposed owner awaiting acceptance, or the zero
// address.
func (a *Aggregator) PendingOwner() common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pendingOwner
}

func (a *Aggregator) onlyOwner(tx Tx) error {
	if tx.Caller != a.owner {
		return errorsmod.Wrapf(ErrUnauthorized, "caller %s is not the owner", tx.Caller)
	}
	return nil
}

// TransferOwnership proposes to as the next owner. Ownership only moves once
// to calls AcceptOwnership.
func (a *Aggregator) TransferOwnership(tx Tx, to common.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.onlyOwner(tx); err != nil {
		return err
	}
	if to == tx.Caller {
		return errorsmod.Wrap(ErrUnauthorized, "cannot transfer ownership to self")
	}

	a.pendingOwner = to
	p := &pending{tx: tx}
	p.emit(OwnershipTransferRequested{From: a.owner, To: to})
	a.commit(p)
	return nil
}

func (a *Aggregator) AcceptOwnership(tx Tx) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pendingOwner == (common.Address{}) || tx.Caller != a.pendingOwner {
		return errorsmod.Wrapf(ErrUnauthorized, "caller %s is not the proposed owner", tx.Caller)
	}

	previous := a.owner
	a.owner = tx.Caller
	a.pendingOwner = common.Address{}
	a.lggr.Infow("Ownership transferred", "from", previous, "to", a.owner)

	p := &pending{tx: tx}
	p.emit(OwnershipTransferred{From: previous, To: a.owner})
	a.commit(p)
	return nil
}

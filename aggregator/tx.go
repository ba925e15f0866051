package aggregator

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Tx is the execution context the host ledger supplies with every mutating
// call: the authenticated caller and the ledger clock.
type Tx struct {
	Caller      common.Address
	BlockNumber uint64
	Timestamp   time.Time
}

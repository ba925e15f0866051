package aggregator

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/median"
	"github.com/smartcontractkit/chainlink-ocr2-aggregator/signature"
)

var (
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	contract  = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	linkToken = common.HexToAddress("0x00000000000000000000000000000000000000dd")
)

type eventRecorder struct {
	mu      sync.Mutex
	records []EventRecord
}

func (r *eventRecorder) Emit(records ...EventRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
}

func (r *eventRecorder) all() []EventRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventRecord(nil), r.records...)
}

func (r *eventRecorder) last() EventRecord {
	all := r.all()
	if len(all) == 0 {
		return EventRecord{}
	}
	return all[len(all)-1]
}

func (r *eventRecorder) names() []string {
	var names []string
	for _, rec := range r.all() {
		names = append(names, rec.Name)
	}
	return names
}

func testParams() Params {
	return Params{
		Address:     contract,
		ChainID:     "SN_TEST",
		Owner:       owner,
		LinkToken:   linkToken,
		MinAnswer:   big.NewInt(-1_000),
		MaxAnswer:   big.NewInt(1_000_000),
		Decimals:    8,
		Description: "FOO/BAR",
	}
}

func transmitterAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

func payeeAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x2000 + i)))
}

type harness struct {
	t       *testing.T
	agg     *Aggregator
	events  *eventRecorder
	signers []*signature.Signer
	block   uint64
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	events := &eventRecorder{}
	agg, err := New(Opts{
		Params: testParams(),
		Logger: logger.Test(t),
		Sink:   events,
	})
	require.NoError(t, err)
	return &harness{
		t:      t,
		agg:    agg,
		events: events,
		now:    time.Unix(1_700_000_000, 0).UTC(),
	}
}

func (h *harness) tx(caller common.Address) Tx {
	h.block++
	h.now = h.now.Add(time.Second)
	return Tx{Caller: caller, BlockNumber: h.block, Timestamp: h.now}
}

// oracles generates n fresh oracles and keeps their signers.
func (h *harness) oracles(n int) []Oracle {
	h.t.Helper()
	h.signers = make([]*signature.Signer, n)
	oracles := make([]Oracle, n)
	for i := range oracles {
		s, err := signature.GenerateSigner()
		require.NoError(h.t, err)
		h.signers[i] = s
		oracles[i] = Oracle{Signer: s.PublicKey(), Transmitter: transmitterAddress(i)}
	}
	return oracles
}

// configure sets a fresh oracle set of n oracles tolerating f faults.
func (h *harness) configure(n int, f uint8) ocr2types.ConfigDigest {
	h.t.Helper()
	digest, err := h.agg.SetConfig(h.tx(owner), ConfigArgs{
		Oracles:               h.oracles(n),
		F:                     f,
		OnchainConfig:         []byte{1},
		OffchainConfigVersion: 2,
		OffchainConfig:        []byte{1},
	})
	require.NoError(h.t, err)
	return digest
}

func reportContext(digest ocr2types.ConfigDigest, epoch uint32, round uint8) ocr2types.ReportContext {
	return ocr2types.ReportContext{
		ReportTimestamp: ocr2types.ReportTimestamp{ConfigDigest: digest, Epoch: epoch, Round: round},
	}
}

// report attributes observations to slots 0..len(values)-1.
func report(values ...int64) median.Report {
	slots := make([]int, len(values))
	observations := make([]*big.Int, len(values))
	for i, v := range values {
		slots[i] = i
		observations[i] = big.NewInt(v)
	}
	mask, err := median.NewObserverMask(slots...)
	if err != nil {
		panic(err)
	}
	return median.Report{
		ObservationTimestamp: 1_700_000_000,
		Observers:            mask,
		Observations:         observations,
		JuelsPerFeeCoin:      big.NewInt(1),
	}
}

// sign collects signatures from the oracles at the given slots.
func (h *harness) sign(rc ocr2types.ReportContext, r median.Report, slots ...int) []signature.Signature {
	h.t.Helper()
	digest, err := median.ReportDigest(rc, r)
	require.NoError(h.t, err)
	sigs := make([]signature.Signature, len(slots))
	for i, slot := range slots {
		sigs[i], err = h.signers[slot].Sign(digest)
		require.NoError(h.t, err)
	}
	return sigs
}

func (h *harness) transmit(rc ocr2types.ReportContext, r median.Report, slots ...int) (uint64, error) {
	h.t.Helper()
	return h.agg.Transmit(h.tx(transmitterAddress(0)), rc, r, h.sign(rc, r, slots...))
}

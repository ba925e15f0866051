package aggregator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/signature"
)

func Test_SetConfig(t *testing.T) {
	t.Run("owner only", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.agg.SetConfig(h.tx(stranger), ConfigArgs{Oracles: h.oracles(4), F: 1})
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Empty(t, h.events.all())
	})

	t.Run("structural validation", func(t *testing.T) {
		h := newHarness(t)
		valid := h.oracles(4)

		repeatedSigner := append([]Oracle(nil), valid...)
		repeatedSigner[3].Signer = repeatedSigner[0].Signer
		repeatedTransmitter := append([]Oracle(nil), valid...)
		repeatedTransmitter[3].Transmitter = repeatedTransmitter[1].Transmitter
		emptySigner := append([]Oracle(nil), valid...)
		emptySigner[2].Signer = signature.PublicKey{}
		emptyTransmitter := append([]Oracle(nil), valid...)
		emptyTransmitter[2].Transmitter = common.Address{}

		cases := []struct {
			name string
			args ConfigArgs
		}{
			{"f is zero", ConfigArgs{Oracles: valid, F: 0}},
			{"fewer than 3f+1 oracles", ConfigArgs{Oracles: valid[:3], F: 1}},
			{"f too high for 4 oracles", ConfigArgs{Oracles: valid, F: 2}},
			{"repeated signer", ConfigArgs{Oracles: repeatedSigner, F: 1}},
			{"repeated transmitter", ConfigArgs{Oracles: repeatedTransmitter, F: 1}},
			{"empty signer", ConfigArgs{Oracles: emptySigner, F: 1}},
			{"empty transmitter", ConfigArgs{Oracles: emptyTransmitter, F: 1}},
			{"too many oracles", ConfigArgs{Oracles: h.oracles(MaxOracles + 1), F: 1}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := h.agg.SetConfig(h.tx(owner), tc.args)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			})
		}
		count, _, digest := h.agg.LatestConfigDetails()
		assert.Zero(t, count)
		assert.Equal(t, ocr2types.ConfigDigest{}, digest)
	})

	t.Run("accepts 3f+1 and more", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.agg.SetConfig(h.tx(owner), ConfigArgs{Oracles: h.oracles(7), F: 2})
		require.NoError(t, err)
		_, err = h.agg.SetConfig(h.tx(owner), ConfigArgs{Oracles: h.oracles(MaxOracles), F: 10})
		require.NoError(t, err)
	})

	t.Run("updates config details and emits ConfigSet", func(t *testing.T) {
		h := newHarness(t)
		first := h.configure(4, 1)
		firstBlock := h.block
		second := h.configure(4, 1)
		assert.NotEqual(t, first, second)

		count, block, digest := h.agg.LatestConfigDetails()
		assert.Equal(t, uint64(2), count)
		assert.Equal(t, h.block, block)
		assert.Equal(t, second, digest)

		ev, ok := h.events.last().Event.(ConfigSet)
		require.True(t, ok)
		assert.Equal(t, second, ev.ConfigDigest)
		assert.Equal(t, uint64(2), ev.ConfigCount)
		assert.Equal(t, firstBlock, ev.PreviousConfigBlockNumber)
		assert.Equal(t, uint8(1), ev.F)
		assert.Len(t, ev.Oracles, 4)

		transmitters := h.agg.Transmitters()
		require.Len(t, transmitters, 4)
		for i, tr := range transmitters {
			assert.Equal(t, transmitterAddress(i), tr)
		}
		oracles := h.agg.Oracles()
		for i, o := range oracles {
			assert.Equal(t, h.signers[i].PublicKey(), o.Signer)
		}
	})

	t.Run("does not alias caller slices", func(t *testing.T) {
		h := newHarness(t)
		oracles := h.oracles(4)
		_, err := h.agg.SetConfig(h.tx(owner), ConfigArgs{Oracles: oracles, F: 1})
		require.NoError(t, err)
		oracles[0].Transmitter = stranger
		assert.Equal(t, transmitterAddress(0), h.agg.Transmitters()[0])
	})

	t.Run("removed transmitters lose their payee", func(t *testing.T) {
		h := newHarness(t)
		oracles := h.oracles(5)
		_, err := h.agg.SetConfig(h.tx(owner), ConfigArgs{Oracles: oracles, F: 1})
		require.NoError(t, err)
		require.NoError(t, h.agg.SetPayees(h.tx(owner),
			[]common.Address{transmitterAddress(0), transmitterAddress(4)},
			[]common.Address{payeeAddress(0), payeeAddress(4)}))

		_, err = h.agg.SetConfig(h.tx(owner), ConfigArgs{Oracles: oracles[:4], F: 1})
		require.NoError(t, err)
		assert.Equal(t, payeeAddress(0), h.agg.Payee(transmitterAddress(0)).Current)
		assert.Equal(t, PayeeState{}, h.agg.Payee(transmitterAddress(4)))
	})
}

func Test_ConfigDigester(t *testing.T) {
	h := newHarness(t)
	args := ConfigArgs{
		Oracles:               h.oracles(4),
		F:                     1,
		OnchainConfig:         []byte{1},
		OffchainConfigVersion: 2,
		OffchainConfig:        []byte("offchain"),
	}
	d := ConfigDigester{ChainID: "SN_TEST", ContractAddress: contract}

	digest, err := d.ConfigDigest(1, args)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x04}, digest[:2])

	again, err := d.ConfigDigest(1, args)
	require.NoError(t, err)
	assert.Equal(t, digest, again, "digest is a pure function of its inputs")

	t.Run("every field is bound", func(t *testing.T) {
		mutations := map[string]func(ConfigDigester, ConfigArgs) (ocr2types.ConfigDigest, error){
			"config count": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				return d.ConfigDigest(2, a)
			},
			"chain id": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				d.ChainID = "SN_MAIN"
				return d.ConfigDigest(1, a)
			},
			"contract": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				d.ContractAddress = stranger
				return d.ConfigDigest(1, a)
			},
			"oracle order": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				a.Oracles = []Oracle{a.Oracles[1], a.Oracles[0], a.Oracles[2], a.Oracles[3]}
				return d.ConfigDigest(1, a)
			},
			"f": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				a.F = 2
				return d.ConfigDigest(1, a)
			},
			"onchain config": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				a.OnchainConfig = []byte{2}
				return d.ConfigDigest(1, a)
			},
			"offchain config version": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				a.OffchainConfigVersion = 3
				return d.ConfigDigest(1, a)
			},
			"offchain config": func(d ConfigDigester, a ConfigArgs) (ocr2types.ConfigDigest, error) {
				a.OffchainConfig = []byte("offchain2")
				return d.ConfigDigest(1, a)
			},
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				mutated, err := mutate(d, args)
				require.NoError(t, err)
				assert.NotEqual(t, digest, mutated)
			})
		}
	})

	t.Run("chain id too long", func(t *testing.T) {
		_, err := ConfigDigester{ChainID: "0123456789012345678901234567890123", ContractAddress: contract}.ConfigDigest(1, args)
		assert.ErrorContains(t, err, "exceeds 31 bytes")
	})
}

func Test_ConfigDigester_UniqueAcrossConfigCounts(t *testing.T) {
	h := newHarness(t)
	args := ConfigArgs{Oracles: h.oracles(4), F: 1}
	d := ConfigDigester{ChainID: "SN_TEST", ContractAddress: contract}

	properties := gopter.NewProperties(nil)

	properties.Property("same inputs at different config counts give different digests", prop.ForAll(
		func(a, b uint64) bool {
			da, err := d.ConfigDigest(a, args)
			if err != nil {
				return false
			}
			db, err := d.ConfigDigest(b, args)
			if err != nil {
				return false
			}
			return (a == b) == (da == db)
		},
		gen.UInt64(),
		gen.UInt64(),
	))

	properties.Property("offchain config is bound", prop.ForAll(
		func(a, b []byte) bool {
			x, y := args, args
			x.OffchainConfig, y.OffchainConfig = a, b
			da, err := d.ConfigDigest(1, x)
			if err != nil {
				return false
			}
			db, err := d.ConfigDigest(1, y)
			if err != nil {
				return false
			}
			return (string(a) == string(b)) == (da == db)
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

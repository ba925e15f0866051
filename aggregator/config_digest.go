package aggregator

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ocr2types "github.com/smartcontractkit/libocr/offchainreporting2plus/types"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/median"
)

// ConfigDigestPrefix marks digests produced by this aggregator. Written over
// the two most significant bytes, it also keeps every digest below 2^243.
const ConfigDigestPrefix ocr2types.ConfigDigestPrefix = 0x0004

// ConfigDigester derives the config digest bound into every signed report.
type ConfigDigester struct {
	ChainID         string
	ContractAddress common.Address
}

// ConfigDigest hashes, one word per field:
//
//	chain_id
//	contract_address
//	config_count
//	oracles_len
//	(signer, transmitter)...
//	f
//	onchain_config
//	offchain_config_version
//	offchain_config
//
// Signers and both config blobs are encoded as a length word followed by
// 31 byte chunks.
func (d ConfigDigester) ConfigDigest(configCount uint64, args ConfigArgs) (ocr2types.ConfigDigest, error) {
	var digest ocr2types.ConfigDigest

	if len(d.ChainID) > median.ChunkLength {
		return digest, fmt.Errorf("chainID %q exceeds %d bytes", d.ChainID, median.ChunkLength)
	}

	msg := make([]byte, 0, (7+3*len(args.Oracles))*median.WordLength)
	msg, err := median.AppendFixed(msg, []byte(d.ChainID))
	if err != nil {
		return digest, fmt.Errorf("chainID: %w", err)
	}
	if msg, err = median.AppendFixed(msg, d.ContractAddress.Bytes()); err != nil {
		return digest, fmt.Errorf("contract address: %w", err)
	}
	msg = median.AppendUint(msg, configCount)
	msg = median.AppendUint(msg, uint64(len(args.Oracles)))
	for i, o := range args.Oracles {
		msg = median.AppendBytes(msg, o.Signer[:])
		if msg, err = median.AppendFixed(msg, o.Transmitter.Bytes()); err != nil {
			return digest, fmt.Errorf("transmitter %d: %w", i, err)
		}
	}
	msg = median.AppendUint(msg, uint64(args.F))
	msg = median.AppendBytes(msg, args.OnchainConfig)
	msg = median.AppendUint(msg, args.OffchainConfigVersion)
	msg = median.AppendBytes(msg, args.OffchainConfig)

	digest = ocr2types.ConfigDigest(crypto.Keccak256Hash(msg))
	binary.BigEndian.PutUint16(digest[:2], uint16(ConfigDigestPrefix))
	return digest, nil
}

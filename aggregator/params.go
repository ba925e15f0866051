package aggregator

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/median"
)

// Params are fixed at deployment and never change afterwards.
type Params struct {
	// Contract identity, bound into every config digest
	Address common.Address
	// Chain identifier, bound into every config digest; at most 31 bytes
	ChainID     string
	Owner       common.Address
	LinkToken   common.Address
	MinAnswer   *big.Int
	MaxAnswer   *big.Int
	Decimals    uint8
	Description string
}

// Validate checks all fields and reports every problem at once.
func (p Params) Validate() error {
	var errs []error

	if p.Address == (common.Address{}) {
		errs = append(errs, errors.New("contract address is required"))
	}
	if p.Owner == (common.Address{}) {
		errs = append(errs, errors.New("owner is required"))
	}
	if len(p.ChainID) > median.ChunkLength {
		errs = append(errs, fmt.Errorf("chain id exceeds max length of %d bytes", median.ChunkLength))
	}
	switch {
	case p.MinAnswer == nil || p.MaxAnswer == nil:
		errs = append(errs, errors.New("min and max answer are required"))
	case !median.InInt128Range(p.MinAnswer) || !median.InInt128Range(p.MaxAnswer):
		errs = append(errs, fmt.Errorf("answer bounds [%v, %v] exceed int128 range", p.MinAnswer, p.MaxAnswer))
	case p.MinAnswer.Cmp(p.MaxAnswer) > 0:
		errs = append(errs, fmt.Errorf("min answer (%v) should not be greater than max answer (%v)", p.MinAnswer, p.MaxAnswer))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid aggregator params: %w", errors.Join(errs...))
	}
	return nil
}

type jsonParams struct {
	Address     common.Address `json:"address"`
	ChainID     string         `json:"chainID"`
	Owner       common.Address `json:"owner"`
	LinkToken   common.Address `json:"linkToken"`
	MinAnswer   string         `json:"minAnswer"`
	MaxAnswer   string         `json:"maxAnswer"`
	Decimals    uint8          `json:"decimals"`
	Description string         `json:"description"`
}

// UnmarshalJSON accepts hex addresses and decimal string bounds, e.g.
//
//	{"address":"0x..","owner":"0x..","minAnswer":"-10","maxAnswer":"1000000000","decimals":8,"description":"FOO/BAR"}
func (p *Params) UnmarshalJSON(b []byte) error {
	var j jsonParams
	if err := json.Unmarshal(b, &j); err != nil {
		return fmt.Errorf("failed to decode aggregator params: %w", err)
	}
	lo, ok := new(big.Int).SetString(j.MinAnswer, 10)
	if !ok {
		return fmt.Errorf("invalid minAnswer %q", j.MinAnswer)
	}
	hi, ok := new(big.Int).SetString(j.MaxAnswer, 10)
	if !ok {
		return fmt.Errorf("invalid maxAnswer %q", j.MaxAnswer)
	}
	*p = Params{
		Address:     j.Address,
		ChainID:     j.ChainID,
		Owner:       j.Owner,
		LinkToken:   j.LinkToken,
		MinAnswer:   lo,
		MaxAnswer:   hi,
		Decimals:    j.Decimals,
		Description: j.Description,
	}
	return nil
}

func (p Params) MarshalJSON() ([]byte, error) {
	j := jsonParams{
		Address:     p.Address,
		ChainID:     p.ChainID,
		Owner:       p.Owner,
		LinkToken:   p.LinkToken,
		Decimals:    p.Decimals,
		Description: p.Description,
	}
	if p.MinAnswer != nil {
		j.MinAnswer = p.MinAnswer.String()
	}
	if p.MaxAnswer != nil {
		j.MaxAnswer = p.MaxAnswer.String()
	}
	return json.Marshal(j)
}

// LoadParams reads and validates deployment params from a JSON file.
func LoadParams(path string) (Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read params file: %w", err)
	}
	var p Params
	if err := json.Unmarshal(b, &p); err != nil {
		return Params{}, err
	}
	return p, p.Validate()
}

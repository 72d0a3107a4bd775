package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Caller runs view methods through an eth_call backend
type Caller struct {
	backend ethereum.ContractCaller
	enc     *Encoder
}

func NewCaller(backend ethereum.ContractCaller, enc *Encoder) (*Caller, error) {
	if backend == nil {
		return nil, fmt.Errorf("contract caller backend is nil")
	}
	if enc == nil {
		return nil, fmt.Errorf("encoder is nil")
	}
	return &Caller{backend: backend, enc: enc}, nil
}

// Call executes method on the contract deployed at to against the latest block
func (c *Caller) Call(ctx context.Context, contract Contract, to common.Address, method string, args ...any) ([]any, error) {
	data, err := c.enc.EncodeCall(contract, method, args...)
	if err != nil {
		return nil, err
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s.%s at %s: %w", contract, method, to.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("eth_call %s.%s at %s: empty response", contract, method, to.Hex())
	}

	return c.enc.DecodeResult(contract, method, out)
}

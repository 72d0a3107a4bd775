package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Encoder packs and unpacks calls against the router's known ABIs
type Encoder struct {
	abis map[Contract]abi.ABI
}

// NewEncoder parses every known ABI
func NewEncoder() (*Encoder, error) {
	abis := make(map[Contract]abi.ABI, len(abiSources))
	for name, src := range abiSources {
		parsed, err := abi.JSON(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s abi: %w", name, err)
		}
		abis[name] = parsed
	}
	return &Encoder{abis: abis}, nil
}

// ABI returns the parsed ABI of contract
func (e *Encoder) ABI(contract Contract) (abi.ABI, error) {
	parsed, ok := e.abis[contract]
	if !ok {
		return abi.ABI{}, fmt.Errorf("unknown contract %q", contract)
	}
	return parsed, nil
}

// EncodeCall returns the calldata for method on contract
func (e *Encoder) EncodeCall(contract Contract, method string, args ...any) ([]byte, error) {
	parsed, err := e.ABI(contract)
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s.%s: %w", contract, method, err)
	}
	return data, nil
}

// DecodeResult unpacks the return data of a view call
func (e *Encoder) DecodeResult(contract Contract, method string, data []byte) ([]any, error) {
	parsed, err := e.ABI(contract)
	if err != nil {
		return nil, err
	}
	out, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s.%s result: %w", contract, method, err)
	}
	return out, nil
}

// DecodeCall resolves calldata back to its method and arguments
func (e *Encoder) DecodeCall(contract Contract, data []byte) (*abi.Method, []any, error) {
	parsed, err := e.ABI(contract)
	if err != nil {
		return nil, nil, err
	}
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("unknown %s selector: %w", contract, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s.%s args: %w", contract, method.Name, err)
	}
	return method, args, nil
}

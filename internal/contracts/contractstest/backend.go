// Package contractstest provides an in-memory eth_call backend for tests.
package contractstest

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/yield-router/internal/contracts"
)

type stub struct {
	to       common.Address
	selector []byte
	calldata []byte // nil matches any arguments
	out      []byte
	err      error
}

// Backend answers eth_call with canned, ABI-packed results
type Backend struct {
	t     testing.TB
	enc   *contracts.Encoder
	mu    sync.Mutex
	stubs []*stub
	calls []ethereum.CallMsg
}

func NewBackend(t testing.TB) *Backend {
	t.Helper()
	enc, err := contracts.NewEncoder()
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	return &Backend{t: t, enc: enc}
}

// Encoder returns the encoder the backend packs results with
func (b *Backend) Encoder() *contracts.Encoder { return b.enc }

// Return answers every call of method at to with values
func (b *Backend) Return(contract contracts.Contract, to common.Address, method string, values ...any) {
	b.add(contract, to, method, nil, values, nil)
}

// ReturnFor answers only calls whose arguments equal args
func (b *Backend) ReturnFor(contract contracts.Contract, to common.Address, method string, args []any, values ...any) {
	b.add(contract, to, method, args, values, nil)
}

// Fail makes every call of method at to return err
func (b *Backend) Fail(contract contracts.Contract, to common.Address, method string, err error) {
	b.add(contract, to, method, nil, nil, err)
}

// Calls returns the messages received so far
func (b *Backend) Calls() []ethereum.CallMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ethereum.CallMsg(nil), b.calls...)
}

func (b *Backend) add(contract contracts.Contract, to common.Address, method string, args, values []any, err error) {
	b.t.Helper()
	parsed, perr := b.enc.ABI(contract)
	if perr != nil {
		b.t.Fatalf("abi: %v", perr)
	}
	m, ok := parsed.Methods[method]
	if !ok {
		b.t.Fatalf("unknown method %s.%s", contract, method)
	}

	s := &stub{to: to, selector: m.ID, err: err}
	if args != nil {
		data, perr := b.enc.EncodeCall(contract, method, args...)
		if perr != nil {
			b.t.Fatalf("pack args: %v", perr)
		}
		s.calldata = data
	}
	if err == nil {
		out, perr := m.Outputs.Pack(values...)
		if perr != nil {
			b.t.Fatalf("pack %s.%s outputs: %v", contract, method, perr)
		}
		s.out = out
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// exact-argument stubs take precedence
	if s.calldata != nil {
		b.stubs = append([]*stub{s}, b.stubs...)
		return
	}
	b.stubs = append(b.stubs, s)
}

// CallContract implements ethereum.ContractCaller
func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, msg)

	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("malformed call")
	}
	for _, s := range b.stubs {
		if s.to != *msg.To || !bytes.Equal(s.selector, msg.Data[:4]) {
			continue
		}
		if s.calldata != nil && !bytes.Equal(s.calldata, msg.Data) {
			continue
		}
		return s.out, s.err
	}
	return nil, fmt.Errorf("execution reverted: no stub for %s selector %x", msg.To.Hex(), msg.Data[:4])
}

package planner

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aman-zulfiqar/yield-router/internal/constants"
	"github.com/aman-zulfiqar/yield-router/internal/contracts"
)

// PlanClaimRGT builds the transaction claiming amount of accrued governance
// tokens from the distributor
func (p *Planner) PlanClaimRGT(sender common.Address, amount *big.Int) (Transaction, error) {
	if err := validateAmount(amount); err != nil {
		return Transaction{}, p.fail("claim", "", constants.SymbolRGT, err)
	}
	if p.chain.RGTDistributor == (common.Address{}) {
		return Transaction{}, p.fail("claim", "", constants.SymbolRGT,
			fmt.Errorf("%w: no distributor configured on %s", ErrInvalidRequest, p.chain.Network))
	}

	data, err := p.encode(contracts.RGTDistributor, contracts.MethodClaimRGT, amount)
	if err != nil {
		return Transaction{}, p.fail("claim", "", constants.SymbolRGT, err)
	}
	return Transaction{
		From:        sender,
		To:          p.chain.RGTDistributor,
		Data:        data,
		Value:       new(big.Int),
		ValueSymbol: p.nativeSymbol(),
	}, nil
}

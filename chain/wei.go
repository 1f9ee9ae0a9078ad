package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Native token uses 18 decimals
const weiDecimals = 18

func weiToAVAX(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiDecimals)
}

func avaxToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(weiDecimals).BigInt()
}

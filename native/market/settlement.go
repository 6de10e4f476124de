package market

import (
	"fmt"

	"github.com/holiman/uint256"
)

var bpsDenominator = uint256.NewInt(BpsDenominator)

func bpsShare(price *uint256.Int, bps uint64) *uint256.Int {
	share := new(uint256.Int).Mul(price, uint256.NewInt(bps))
	return share.Div(share, bpsDenominator)
}

// ComputeSplit divides price between platform, creator and seller. Platform and
// royalty shares round down; the seller receives the remainder so the shares
// always add up to price. A split whose platform and royalty shares exceed the
// price is rejected.
func ComputeSplit(price, platformFeeBps, royaltyBps uint64) (Split, error) {
	p := uint256.NewInt(price)
	platform := bpsShare(p, platformFeeBps)
	royalty := bpsShare(p, royaltyBps)
	deducted := new(uint256.Int).Add(platform, royalty)
	if deducted.Gt(p) {
		return Split{}, fmt.Errorf("%w: platform %s + royalty %s > price %d", ErrRoyaltyExceedsPrice, platform.Dec(), royalty.Dec(), price)
	}
	return Split{
		Platform: platform.Uint64(),
		Royalty:  royalty.Uint64(),
		Seller:   price - deducted.Uint64(),
	}, nil
}

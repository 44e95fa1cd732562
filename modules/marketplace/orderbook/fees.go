package orderbook

import (
	"math/big"

	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
)

var bpsDenominator = big.NewInt(10000)

func totalFeeBps(fees []entity.FeeBreakdown) int64 {
	var total int64
	for _, fee := range fees {
		total += fee.Bps
	}
	return total
}

func builtInRoyaltyBps(fees []entity.FeeBreakdown) int64 {
	var total int64
	for _, fee := range fees {
		if fee.Kind == entity.FeeKindRoyalty {
			total += fee.Bps
		}
	}
	return total
}

// missingRoyaltyBps splits the bps gap between the collection default and the
// order's built-in royalty pro-rata across the default recipients by their
// bps share. Floor division per recipient; the remainder bps are dropped.
// That precision leak is deliberate and documented, not a bug to fix.
func missingRoyaltyBps(defaults *entity.CollectionRoyalties, builtInBps int64) []entity.Royalty {
	if defaults == nil {
		return nil
	}
	defaultBps := defaults.TotalBps()
	if defaultBps <= 0 || builtInBps >= defaultBps {
		return nil
	}
	gap := defaultBps - builtInBps

	missing := make([]entity.Royalty, 0, len(defaults.Recipients))
	for _, recipient := range defaults.Recipients {
		share := gap * recipient.Bps / defaultBps
		if share <= 0 {
			continue
		}
		missing = append(missing, entity.Royalty{
			Recipient: recipient.Recipient,
			Bps:       share,
		})
	}
	return missing
}

// applyBps returns floor(amount * bps / 10000).
func applyBps(amount *big.Int, bps int64) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(bps))
	return out.Div(out, bpsDenominator)
}

// computeValues derives the native value and normalized value from the
// native price. Buy orders net the maker price minus fees; sell orders net
// the full price. Normalized value folds the missing-royalty amounts in:
// added for sells (a filled sell would pay them on top), subtracted for buys.
func computeValues(side entity.OrderSide, nativePrice *big.Int, feeBps int64, missing []entity.Royalty) (value, normalized *big.Int) {
	value = new(big.Int).Set(nativePrice)
	if side == entity.OrderSideBuy {
		value.Sub(value, applyBps(nativePrice, feeBps))
	}

	missingTotal := new(big.Int)
	for i := range missing {
		amount := applyBps(nativePrice, missing[i].Bps)
		missing[i].Amount = amount
		missingTotal.Add(missingTotal, amount)
	}

	normalized = new(big.Int).Set(value)
	if side == entity.OrderSideSell {
		normalized.Add(normalized, missingTotal)
	} else {
		normalized.Sub(normalized, missingTotal)
	}
	return value, normalized
}

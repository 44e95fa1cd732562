package entity

import (
	"github.com/ethereum/go-ethereum/common"
)

// RoyaltyRecipient is one configured default royalty share for a collection.
type RoyaltyRecipient struct {
	Recipient common.Address
	Bps       int64
}

// CollectionRoyalties is the collection's default royalty configuration,
// used to backfill missing royalties on orders that carry less.
type CollectionRoyalties struct {
	Contract   common.Address
	Recipients []RoyaltyRecipient
}

func (c CollectionRoyalties) TotalBps() int64 {
	var total int64
	for _, r := range c.Recipients {
		total += r.Bps
	}
	return total
}

// Currency is cached metadata about a payment token.
type Currency struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

type IndexerState struct {
	DBVersion int32
}

package attribution

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	reservoirRouter = ethcommon.HexToAddress("0xC2c862322E9c97D6244a3506655DA95F05246Fd8")
	plainWallet     = ethcommon.HexToAddress("0x4444444444444444444444444444444444444444")
	txSender        = ethcommon.HexToAddress("0x5555555555555555555555555555555555555555")
)

func TestSourceForKind(t *testing.T) {
	r := NewRegistry()

	type testcase struct {
		kind     string
		expected string
	}
	testcases := []testcase{
		{kind: "seaport", expected: "opensea.io"},
		{kind: "looks-rare", expected: "looksrare.org"},
		{kind: "blur", expected: "blur.io"},
		{kind: "some-new-protocol", expected: "some-new-protocol"},
	}
	for _, tc := range testcases {
		t.Run(tc.kind, func(t *testing.T) {
			assert.Equal(t, tc.expected, r.SourceForKind(tc.kind))
		})
	}
}

func TestIsRouter(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsRouter(reservoirRouter))
	assert.False(t, r.IsRouter(plainWallet))
}

func TestOverrideTaker(t *testing.T) {
	r := NewRegistry()

	t.Run("router taker becomes the tx sender", func(t *testing.T) {
		assert.Equal(t, txSender, r.OverrideTaker(reservoirRouter, txSender))
	})

	t.Run("plain taker is kept", func(t *testing.T) {
		assert.Equal(t, plainWallet, r.OverrideTaker(plainWallet, txSender))
	})

	t.Run("zero tx sender leaves the router taker untouched", func(t *testing.T) {
		assert.Equal(t, reservoirRouter, r.OverrideTaker(reservoirRouter, ethcommon.Address{}))
	})
}

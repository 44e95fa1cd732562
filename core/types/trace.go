package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CallTrace is a single frame of a transaction call trace (callTracer output).
// Untrusted input: any field may be empty or truncated on a degraded node.
type CallTrace struct {
	Type    string         `json:"type"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
	Value   *hexutil.Big   `json:"value"`
	Input   hexutil.Bytes  `json:"input"`
	Output  hexutil.Bytes  `json:"output"`
	Error   string         `json:"error"`
	Calls   []CallTrace    `json:"calls"`
}

// FindNthCall walks the trace depth-first and returns the n-th (0-based) sub-call
// to the given address whose input starts with the given 4-byte selector.
// Returns nil if there are fewer than n+1 matching calls.
func (t *CallTrace) FindNthCall(to common.Address, selector [4]byte, n int) *CallTrace {
	count := 0
	return t.findNthCall(to, selector, n, &count)
}

func (t *CallTrace) findNthCall(to common.Address, selector [4]byte, n int, count *int) *CallTrace {
	if t.matches(to, selector) {
		if *count == n {
			return t
		}
		*count++
	}
	for i := range t.Calls {
		if found := t.Calls[i].findNthCall(to, selector, n, count); found != nil {
			return found
		}
	}
	return nil
}

func (t *CallTrace) matches(to common.Address, selector [4]byte) bool {
	if t.To != to {
		return false
	}
	if strings.EqualFold(t.Type, "staticcall") {
		return false
	}
	if len(t.Input) < 4 {
		return false
	}
	return t.Input[0] == selector[0] && t.Input[1] == selector[1] && t.Input[2] == selector[2] && t.Input[3] == selector[3]
}

package protocols

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/gaze-network/nft-indexer/core/types"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/samber/lo"
)

// Kind is a closed variant tag identifying one supported protocol.
type Kind string

const (
	KindSeaport   Kind = "seaport"
	KindZeroExV4  Kind = "zeroex-v4"
	KindLooksRare Kind = "looks-rare"
	KindX2Y2      Kind = "x2y2"
	KindElement   Kind = "element"
	KindBlur      Kind = "blur"
	KindSudoswap  Kind = "sudoswap"
	KindERC20     Kind = "erc20"
)

func (k Kind) String() string {
	return string(k)
}

// EventInfo registers one log shape for a protocol kind. A log belongs to the
// kind when topic0 matches, the topic count matches NumTopics, and, if
// Addresses is non-empty, the emitting address is allow-listed.
type EventInfo struct {
	Kind      Kind
	SubKind   string
	Topic     common.Hash
	NumTopics int
	Addresses []common.Address
}

// EnhancedEvent is a classified log. Ephemeral: lives only within one
// ingestion pass.
type EnhancedEvent struct {
	Kind    Kind
	SubKind string
	Base    entity.BaseEventParams
	Log     ethtypes.Log
}

// EventsBatch is all of one transaction's classified logs, partitioned by
// protocol kind with original log-index order preserved within each partition.
type EventsBatch struct {
	TxHash   common.Hash
	ByKind   map[Kind][]EnhancedEvent
	kindSeen []Kind
}

// Kinds returns the partitions in first-seen order.
func (b *EventsBatch) Kinds() []Kind {
	return b.kindSeen
}

func (b *EventsBatch) add(ev EnhancedEvent) {
	if b.ByKind == nil {
		b.ByKind = make(map[Kind][]EnhancedEvent)
	}
	if _, ok := b.ByKind[ev.Kind]; !ok {
		b.kindSeen = append(b.kindSeen, ev.Kind)
	}
	b.ByKind[ev.Kind] = append(b.ByKind[ev.Kind], ev)
}

// ChainClient is the slice of node functionality handlers may consult while
// decoding: traces for pool swaps, receipts for attribution, state reads for
// fillability probes. Treated as an unreliable oracle.
type ChainClient interface {
	GetTransactionTrace(ctx context.Context, txHash common.Hash) (*types.CallTrace, error)
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Handler decodes one protocol kind's batch into canonical domain events,
// appending to the shared OnChainData accumulator. A handler must skip (and
// log) events it cannot decode instead of failing the batch.
type Handler interface {
	Kind() Kind
	HandleEvents(ctx context.Context, batch []EnhancedEvent, data *OnChainData) error
}

// Registry is the static protocol table built at startup. No runtime plugin
// loading: every supported kind is registered here.
type Registry struct {
	events   []EventInfo
	byTopic  map[common.Hash][]EventInfo
	handlers map[Kind]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		byTopic:  make(map[common.Hash][]EventInfo),
		handlers: make(map[Kind]Handler),
	}
}

func (r *Registry) Register(info EventInfo) {
	r.events = append(r.events, info)
	r.byTopic[info.Topic] = append(r.byTopic[info.Topic], info)
}

func (r *Registry) RegisterHandler(h Handler) {
	r.handlers[h.Kind()] = h
}

func (r *Registry) Handler(kind Kind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Topics returns every registered topic0, deduplicated, for log filtering.
func (r *Registry) Topics() []common.Hash {
	return lo.Uniq(lo.Map(r.events, func(info EventInfo, _ int) common.Hash { return info.Topic }))
}

// Match returns every registration the log satisfies. A single log may match
// multiple kinds to support shared infrastructure events.
func (r *Registry) Match(log ethtypes.Log) []EventInfo {
	if len(log.Topics) == 0 {
		return nil
	}
	candidates := r.byTopic[log.Topics[0]]
	matches := make([]EventInfo, 0, len(candidates))
	for _, info := range candidates {
		if len(log.Topics) != info.NumTopics {
			continue
		}
		if len(info.Addresses) > 0 && !lo.Contains(info.Addresses, log.Address) {
			continue
		}
		matches = append(matches, info)
	}
	return matches
}

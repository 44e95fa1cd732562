package orderbook

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/nft-indexer/common/errs"
	"github.com/gaze-network/nft-indexer/modules/marketplace/currency"
	"github.com/gaze-network/nft-indexer/modules/marketplace/datagateway"
	"github.com/gaze-network/nft-indexer/modules/marketplace/internal/entity"
	"github.com/gaze-network/nft-indexer/modules/marketplace/royalty"
	"github.com/gaze-network/nft-indexer/modules/marketplace/tokenset"
	"github.com/gaze-network/nft-indexer/pkg/logger"
	"github.com/gaze-network/nft-indexer/pkg/logger/slogx"
)

// Options configures the allow-lists the gates check against.
type Options struct {
	KnownConduits        map[ethcommon.Address]struct{}
	KnownZones           map[ethcommon.Address]struct{}
	KnownCosigners       map[ethcommon.Address]struct{}
	AllowedBidCurrencies map[ethcommon.Address]struct{}
	// CancellationZones mark zones whose orders support off-chain
	// cancellation by replacement through the salt.
	CancellationZones map[ethcommon.Address]struct{}
}

// OrderBook runs raw protocol order payloads through the validation pipeline
// and persists the survivors as canonical orders.
type OrderBook struct {
	dg        datagateway.MarketplaceDataGateway
	queue     datagateway.QueueDataGateway
	royalties *royalty.Registry
	converter *currency.Converter
	prober    FillabilityProber
	opts      Options
	parsers   map[string]parser
}

func New(
	dg datagateway.MarketplaceDataGateway,
	queue datagateway.QueueDataGateway,
	royalties *royalty.Registry,
	converter *currency.Converter,
	prober FillabilityProber,
	opts Options,
) *OrderBook {
	book := &OrderBook{
		dg:        dg,
		queue:     queue,
		royalties: royalties,
		converter: converter,
		prober:    prober,
		opts:      opts,
	}
	book.parsers = map[string]parser{
		"seaport":    parseSeaportOrder,
		"zeroex-v4":  parseZeroExV4Order,
		"looks-rare": parseLooksRareOrder,
	}
	return book
}

type validatedOrder struct {
	order      *entity.Order
	replacedID string
}

// SaveOrders validates a batch of one protocol's payloads. Validation runs
// per order; batch-level errors only arise from infrastructure failures.
// Surviving orders are inserted with do-nothing-on-conflict semantics, then
// every inserted order that is fillable and approved enqueues a new-order
// trigger.
func (b *OrderBook) SaveOrders(ctx context.Context, kind string, raws []RawOrder) ([]SaveResult, error) {
	parse, ok := b.parsers[kind]
	if !ok {
		return nil, errors.Wrapf(errs.Unsupported, "no order parser for kind %q", kind)
	}

	results := make([]SaveResult, 0, len(raws))
	var validated []validatedOrder
	for _, raw := range raws {
		result, v, err := b.validateOrder(ctx, kind, parse, raw)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
		if v != nil {
			validated = append(validated, *v)
		}
	}
	if len(validated) == 0 {
		return results, nil
	}

	orders := make([]*entity.Order, 0, len(validated))
	for _, v := range validated {
		orders = append(orders, v.order)
	}
	inserted, err := b.dg.InsertOrders(ctx, orders)
	if err != nil {
		return nil, errors.Wrap(err, "insert orders")
	}

	var triggers []entity.Trigger
	for _, v := range validated {
		if _, ok := inserted[v.order.ID]; !ok {
			// Raced with an identical payload; the id is content-derived so
			// the stored row is equivalent.
			for i := range results {
				if results[i].ID == v.order.ID && results[i].Status == StatusSuccess {
					results[i].Status = StatusAlreadyExists
				}
			}
			continue
		}
		if v.replacedID != "" {
			if err := b.cancelReplaced(ctx, v.replacedID, v.order, &triggers); err != nil {
				return nil, err
			}
		}
		if v.order.IsActive() {
			triggers = append(triggers, entity.Trigger{
				Context:    fmt.Sprintf("new-order-%s", v.order.ID),
				Kind:       entity.TriggerNewOrder,
				OrderID:    v.order.ID,
				TokenSetID: v.order.TokenSetID,
				Side:       v.order.Side,
			})
		}
	}
	if len(triggers) > 0 {
		if err := b.queue.EnqueueTriggers(ctx, triggers); err != nil {
			return nil, errors.Wrap(err, "enqueue new-order triggers")
		}
	}
	return results, nil
}

// validateOrder runs the fixed gate sequence. Named statuses are business
// outcomes; returned errors are infrastructure failures that abort the batch.
func (b *OrderBook) validateOrder(ctx context.Context, kind string, parse parser, raw RawOrder) (SaveResult, *validatedOrder, error) {
	now := time.Now()

	// Gate 1: decode and structural check.
	parsed, err := parse(raw)
	if err != nil {
		logger.DebugContext(ctx, "order failed structural decode", slogx.String("kind", kind), slogx.Error(err))
		return SaveResult{Status: StatusInvalidFormat}, nil, nil
	}

	// Gate 11 runs early enough to derive the id for the existence check; the
	// token set is pure derivation, so hoisting it has no observable effect.
	set, err := tokenset.Resolve(parsed.tokenSet)
	if err != nil {
		return SaveResult{Status: StatusInvalidTokenSet}, nil, nil
	}
	id := deriveOrderID(parsed, set.ID)

	// Gate 2: idempotent re-save.
	if _, err := b.dg.GetOrder(ctx, id); err == nil {
		return SaveResult{ID: id, Status: StatusAlreadyExists}, nil, nil
	} else if !errors.Is(err, errs.NotFound) {
		return SaveResult{}, nil, errors.Wrap(err, "check order existence")
	}

	// Gate 3: supported conduit.
	if parsed.conduit != (ethcommon.Address{}) {
		if _, ok := b.opts.KnownConduits[parsed.conduit]; !ok {
			return SaveResult{ID: id, Status: StatusUnsupportedConduit}, nil, nil
		}
	}

	// Gate 4: non-zero price.
	if parsed.price == nil || parsed.price.Sign() <= 0 {
		return SaveResult{ID: id, Status: StatusZeroPrice}, nil, nil
	}

	// Gate 5: time window.
	if !parsed.validUntil.IsZero() {
		if parsed.validFrom.After(parsed.validUntil) {
			return SaveResult{ID: id, Status: StatusInvalidStartTime}, nil, nil
		}
		if parsed.validUntil.Before(now) {
			return SaveResult{ID: id, Status: StatusExpired}, nil, nil
		}
	}

	// Gate 6: bid currencies are allow-listed; native cannot be escrowed.
	if parsed.side == entity.OrderSideBuy {
		if _, ok := b.opts.AllowedBidCurrencies[parsed.currency]; !ok {
			return SaveResult{ID: id, Status: StatusUnsupportedPaymentToken}, nil, nil
		}
	}

	// Gate 7: whole-fill orders must carry quantity 1.
	if parsed.quantity == nil || parsed.quantity.Sign() <= 0 {
		return SaveResult{ID: id, Status: StatusInvalidFormat}, nil, nil
	}
	if !parsed.partialFillable && parsed.quantity.Cmp(big.NewInt(1)) != 0 {
		return SaveResult{ID: id, Status: StatusNotPartiallyFillable}, nil, nil
	}

	// Gate 8: off-chain cancellation infrastructure must be known.
	if parsed.zone != (ethcommon.Address{}) {
		if _, ok := b.opts.KnownZones[parsed.zone]; !ok {
			return SaveResult{ID: id, Status: StatusUnsupportedZone}, nil, nil
		}
	}
	if parsed.cosigner != (ethcommon.Address{}) {
		if _, ok := b.opts.KnownCosigners[parsed.cosigner]; !ok {
			return SaveResult{ID: id, Status: StatusUnsupportedCosigner}, nil, nil
		}
	}
	if _, ok := b.opts.CancellationZones[parsed.zone]; ok {
		parsed.usesOffChainCancellation = true
	}

	// Gate 9: cryptographic validity.
	if parsed.maker == (ethcommon.Address{}) {
		return SaveResult{ID: id, Status: StatusInvalid}, nil, nil
	}
	if !validSignatureShape(parsed.signature) {
		return SaveResult{ID: id, Status: StatusInvalidSignature}, nil, nil
	}

	// Gate 10: fillability probe, elided for trusted ingestion.
	fillability := entity.FillabilityFillable
	approval := entity.ApprovalApproved
	if !raw.Metadata.Trusted {
		probe, err := b.probe(ctx, parsed, set)
		if err != nil {
			return SaveResult{}, nil, errors.Wrap(err, "probe fillability")
		}
		switch {
		case !probe.HasBalance && !probe.HasApproval:
			return SaveResult{ID: id, Status: StatusNotFillable}, nil, nil
		case !probe.HasBalance:
			fillability = entity.FillabilityNoBalance
		case !probe.HasApproval:
			approval = entity.ApprovalNoApproval
		}
	}

	// Gate 12: fee extraction.
	feeBps := totalFeeBps(parsed.fees)
	if feeBps > 10000 {
		return SaveResult{ID: id, Status: StatusFeesTooHigh}, nil, nil
	}

	// Gate 13: royalty backfill against the collection default.
	defaults, err := b.royalties.Get(ctx, set.Contract)
	if err != nil {
		return SaveResult{}, nil, err
	}
	missing := missingRoyaltyBps(defaults, builtInRoyaltyBps(parsed.fees))

	// Gates 14 and 15: native conversion then value computation. Failure to
	// convert is terminal because aggregates rank in native units.
	prices, err := b.converter.ToNative(ctx, parsed.currency, parsed.price, now)
	if err != nil {
		if errors.Is(err, currency.ErrPriceUnavailable) {
			return SaveResult{ID: id, Status: StatusFailedToConvertPrice}, nil, nil
		}
		return SaveResult{}, nil, err
	}
	value, normalized := computeValues(parsed.side, prices.NativePrice, feeBps, missing)

	order := &entity.Order{
		ID:                id,
		Kind:              kind,
		Side:              parsed.side,
		Maker:             parsed.maker,
		Taker:             parsed.taker,
		Zone:              parsed.zone,
		Source:            raw.Metadata.Source,
		TokenSetID:        set.ID,
		Currency:          parsed.currency,
		CurrencyPrice:     parsed.price,
		Price:             prices.NativePrice,
		Value:             value,
		NormalizedValue:   normalized,
		FeeBps:            feeBps,
		FeeBreakdown:      parsed.fees,
		MissingRoyalties:  missing,
		Nonce:             parsed.nonce,
		Salt:              parsed.salt,
		FillabilityStatus: fillability,
		ApprovalStatus:    approval,
		ValidFrom:         parsed.validFrom,
		ValidUntil:        parsed.validUntil,
		QuantityRemaining: parsed.quantity,
		RawData:           parsed.rawData,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// Gate 16: off-chain cancellation by replacement. The actual cancel is a
	// post-insert side effect so a rejected order never cancels anything.
	var replacedID string
	if parsed.usesOffChainCancellation && parsed.salt != nil && parsed.salt.Sign() > 0 {
		replacedID = fmt.Sprintf("0x%064x", parsed.salt)
	}

	result := SaveResult{ID: id, Status: StatusSuccess, Unfillable: !order.IsActive()}
	return result, &validatedOrder{order: order, replacedID: replacedID}, nil
}

func (b *OrderBook) probe(ctx context.Context, parsed *parsedOrder, set tokenset.TokenSet) (ProbeResult, error) {
	if parsed.side == entity.OrderSideBuy {
		return b.prober.ProbeBuy(ctx, parsed.maker, parsed.currency, parsed.price, parsed.conduit)
	}
	contract, tokenID, err := tokenset.ParseSingleToken(set.ID)
	if err != nil {
		// Sell orders over broader scopes cannot be probed token by token;
		// treat the probe as clean and let revalidation settle it later.
		return ProbeResult{HasBalance: true, HasApproval: true}, nil
	}
	return b.prober.ProbeSell(ctx, parsed.maker, contract, tokenID, parsed.quantity, parsed.conduit)
}

// cancelReplaced marks the referenced order cancelled when it exists and used
// the same off-chain cancellation mechanism.
func (b *OrderBook) cancelReplaced(ctx context.Context, replacedID string, newOrder *entity.Order, triggers *[]entity.Trigger) error {
	replaced, err := b.dg.GetOrder(ctx, replacedID)
	if err != nil {
		if errors.Is(err, errs.NotFound) {
			return nil
		}
		return errors.Wrap(err, "look up replaced order")
	}
	if replaced.Kind != newOrder.Kind || replaced.Maker != newOrder.Maker {
		return nil
	}
	// Only orders that opted into cancellation-by-replacement through their
	// zone may be cancelled this way.
	if _, ok := b.opts.CancellationZones[replaced.Zone]; !ok {
		return nil
	}
	if err := b.dg.CancelOrder(ctx, replaced.ID); err != nil {
		return errors.Wrap(err, "cancel replaced order")
	}
	*triggers = append(*triggers, entity.Trigger{
		Context:    fmt.Sprintf("replaced-%s-by-%s", replaced.ID, newOrder.ID),
		Kind:       entity.TriggerCancel,
		OrderID:    replaced.ID,
		TokenSetID: replaced.TokenSetID,
		Side:       replaced.Side,
	})
	return nil
}

// validSignatureShape accepts 65-byte r||s||v and 64-byte compact signatures.
// It checks shape only; ECDSA recovery against the maker is deferred to the
// on-chain fillability probe.
func validSignatureShape(sig []byte) bool {
	switch len(sig) {
	case 64:
		return true
	case 65:
		v := sig[64]
		return v == 0 || v == 1 || v == 27 || v == 28
	default:
		return false
	}
}

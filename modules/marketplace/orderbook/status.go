package orderbook

// Status is a named validation outcome. Statuses are business results, not
// errors: a rejected order is an expected event and is never retried.
type Status string

const (
	StatusSuccess Status = "success"

	StatusInvalidFormat           Status = "invalid-format"
	StatusAlreadyExists           Status = "already-exists"
	StatusUnsupportedConduit      Status = "unsupported-conduit"
	StatusZeroPrice               Status = "zero-price"
	StatusInvalidStartTime        Status = "invalid-start-time"
	StatusExpired                 Status = "expired"
	StatusUnsupportedPaymentToken Status = "unsupported-payment-token"
	StatusNotPartiallyFillable    Status = "not-partially-fillable"
	StatusUnsupportedZone         Status = "unsupported-zone"
	StatusUnsupportedCosigner     Status = "unsupported-cosigner"
	StatusInvalid                 Status = "invalid"
	StatusInvalidSignature        Status = "invalid-signature"
	StatusNotFillable             Status = "not-fillable"
	StatusInvalidTokenSet         Status = "invalid-token-set"
	StatusFeesTooHigh             Status = "fees-too-high"
	StatusFailedToConvertPrice    Status = "failed-to-convert-price"
)

// SaveResult is the per-order outcome of one save batch. Unfillable marks
// orders that were kept but entered in a degraded state (no-balance or
// no-approval).
type SaveResult struct {
	ID         string
	Status     Status
	Unfillable bool
}

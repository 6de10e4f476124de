package market

import "errors"

var (
	ErrDuplicateListing     = errors.New("market: asset already listed")
	ErrNotListed            = errors.New("market: asset not listed")
	ErrInvalidAssetTransfer = errors.New("market: invalid asset transfer")
	ErrInsufficientFunding  = errors.New("market: insufficient funding")
	ErrPaymentMismatch      = errors.New("market: payment mismatch")
	ErrRoyaltyExceedsPrice  = errors.New("market: platform fee and royalty exceed price")
	ErrUnauthorized         = errors.New("market: unauthorized caller")
	ErrInvalidPrice         = errors.New("market: price must be positive")

	ErrInvalidConfig = errors.New("market: invalid config")
	ErrInvalidRecord = errors.New("market: malformed listing record")

	errNilState = errors.New("market engine: state not configured")
)

// ErrorName returns the stable identifier of a marketplace rejection, or the
// empty string when err is not one.
func ErrorName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateListing):
		return "DuplicateListing"
	case errors.Is(err, ErrNotListed):
		return "NotListed"
	case errors.Is(err, ErrInvalidAssetTransfer):
		return "InvalidAssetTransfer"
	case errors.Is(err, ErrInsufficientFunding):
		return "InsufficientFunding"
	case errors.Is(err, ErrPaymentMismatch):
		return "PaymentMismatch"
	case errors.Is(err, ErrRoyaltyExceedsPrice):
		return "RoyaltyExceedsPrice"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrInvalidPrice):
		return "InvalidPrice"
	default:
		return ""
	}
}

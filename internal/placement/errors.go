package placement

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInsufficientTokens   = errors.New("insufficient tokens")
	ErrQuotaExceeded        = errors.New("interview quota exceeded")
	ErrDuplicateApplication = errors.New("duplicate application")
	ErrNoSlotAvailable      = errors.New("no interview slot available")
	ErrJobInactive          = errors.New("job inactive")
	ErrApplicationClosed    = errors.New("application already decided")
	ErrInterviewClosed      = errors.New("interview already closed")
	ErrLedgerInvariant      = errors.New("token ledger invariant violated")
)

// Kind classifies an error for the request layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// KindOf maps err to its Kind. Unrecognized errors are internal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStatus):
		return KindValidation
	case errors.Is(err, ErrInsufficientTokens),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrDuplicateApplication),
		errors.Is(err, ErrNoSlotAvailable),
		errors.Is(err, ErrJobInactive),
		errors.Is(err, ErrApplicationClosed),
		errors.Is(err, ErrInterviewClosed):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

package fulfillment

import (
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-retail/internal/documents"
	"github.com/odyssey-erp/odyssey-retail/internal/inventory"
	"github.com/odyssey-erp/odyssey-retail/internal/masterdata"
	"github.com/odyssey-erp/odyssey-retail/internal/money"
	"github.com/odyssey-erp/odyssey-retail/internal/validation"
)

// Input errors. The caller must fix the request; nothing was written.
var (
	ErrInvalidLineData   = validation.ErrInvalidLineData
	ErrInvalidHeader     = validation.ErrInvalidHeader
	ErrNoValidItems      = validation.ErrNoValidItems
	ErrInvalidPercentage = money.ErrInvalidPercentage
	ErrInvalidPayment    = errors.New("fulfillment: invalid payment")
	ErrInvalidPatch      = errors.New("fulfillment: invalid header patch")
)

// State errors. The document is unchanged.
var (
	ErrDocumentLocked        = documents.ErrDocumentLocked
	ErrInvalidTransition     = documents.ErrInvalidTransition
	ErrCannotDeleteCompleted = documents.ErrCannotDeleteCompleted
	ErrInsufficientStock     = inventory.ErrInsufficientStock
)

// ErrNotFound indicates the document does not exist for the tenant.
var ErrNotFound = documents.ErrNotFound

// Persistence errors. The scope was rolled back and the whole operation may
// be retried.
var (
	ErrPersistenceFailure = errors.New("fulfillment: persistence failure")
	ErrReferenceExhausted = errors.New("fulfillment: reference attempts exhausted")
	// ErrNoFallback means the tenant has no fallback counterparty to substitute.
	ErrNoFallback = masterdata.ErrNoFallback
)

// ErrCommittedReadFailed means the write committed but reading it back
// failed. Retrying would apply the operation twice.
var ErrCommittedReadFailed = errors.New("fulfillment: committed document could not be read back")

// CommittedReadError identifies a committed document whose read back failed.
type CommittedReadError struct {
	ID        documents.DocumentID
	Reference string
	Err       error
}

func (e *CommittedReadError) Error() string {
	return fmt.Sprintf("%v: document %d (%s): %v", ErrCommittedReadFailed, e.ID, e.Reference, e.Err)
}

func (e *CommittedReadError) Unwrap() []error {
	return []error{ErrCommittedReadFailed, e.Err}
}

// passThrough lists errors returned as-is from a failed scope.
var passThrough = []error{
	ErrDocumentLocked,
	ErrInvalidTransition,
	ErrCannotDeleteCompleted,
	ErrInsufficientStock,
	ErrNotFound,
	ErrInvalidPayment,
	ErrInvalidPatch,
	ErrReferenceExhausted,
}

func isPassThrough(err error) bool {
	for _, target := range passThrough {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

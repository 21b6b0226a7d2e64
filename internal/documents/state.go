package documents

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var transitions = map[Kind]map[Status][]Status{
	KindPurchase: {
		StatusDraft:     {StatusPending, StatusApproved, StatusOrdered, StatusCompleted, StatusCancelled},
		StatusPending:   {StatusApproved, StatusOrdered, StatusCompleted, StatusCancelled},
		StatusApproved:  {StatusOrdered, StatusCompleted, StatusCancelled},
		StatusOrdered:   {StatusCompleted, StatusCancelled},
		StatusCompleted: {StatusCancelled, StatusReturned},
	},
	KindSales: {
		StatusDraft:         {StatusPending, StatusUnpaid, StatusCancelled, StatusRefunded},
		StatusPending:       {StatusPartiallyPaid, StatusPaid, StatusCancelled, StatusRefunded},
		StatusUnpaid:        {StatusPartiallyPaid, StatusPaid, StatusCancelled, StatusRefunded},
		StatusPartiallyPaid: {StatusPaid, StatusCancelled, StatusRefunded},
		StatusPaid:          {StatusCompleted, StatusCancelled, StatusRefunded},
		StatusCompleted:     {StatusRefunded},
	},
}

var reversals = map[Kind][]Status{
	KindPurchase: {StatusCancelled, StatusReturned},
	KindSales:    {StatusCancelled, StatusRefunded},
}

// Statuses a document may be created in.
var initialStatuses = map[Kind][]Status{
	KindPurchase: {StatusDraft, StatusPending, StatusApproved, StatusOrdered, StatusCompleted},
	KindSales:    {StatusDraft, StatusPending, StatusUnpaid, StatusPartiallyPaid, StatusPaid, StatusCompleted},
}

func contains(set []Status, s Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the kind's workflow.
func CanTransition(kind Kind, from, to Status) bool {
	return contains(transitions[kind][from], to)
}

// CheckTransition validates a status change. Completed documents accept only
// the reversal edges of their workflow: RETURNED or CANCELLED for purchases,
// REFUNDED for invoices. Every other target is ErrDocumentLocked.
func CheckTransition(kind Kind, from, to Status) error {
	if from == StatusCompleted && !CanTransition(kind, from, to) {
		return fmt.Errorf("%w: %s cannot move to %s", ErrDocumentLocked, from, to)
	}
	if !CanTransition(kind, from, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, kind, from, to)
	}
	return nil
}

// IsReversal reports whether entering s undoes the document's stock effect.
func IsReversal(kind Kind, s Status) bool {
	return contains(reversals[kind], s)
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(kind Kind, s Status) bool {
	if !ValidStatus(kind, s) {
		return false
	}
	return len(transitions[kind][s]) == 0
}

// ValidStatus reports whether s belongs to the kind's workflow.
func ValidStatus(kind Kind, s Status) bool {
	if _, ok := transitions[kind][s]; ok {
		return true
	}
	return IsReversal(kind, s)
}

// ValidInitialStatus reports whether a document may be created in s.
func ValidInitialStatus(kind Kind, s Status) bool {
	return contains(initialStatuses[kind], s)
}

// CanDelete reports whether a document in s may be deleted.
func CanDelete(s Status) error {
	if s == StatusCompleted {
		return ErrCannotDeleteCompleted
	}
	return nil
}

// SettlementStatus derives an invoice status from how much of total is paid.
func SettlementStatus(total, paid decimal.Decimal) Status {
	switch {
	case !paid.IsPositive():
		return StatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

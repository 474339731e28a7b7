package documents

import "fmt"

// IllegalTransitionError reports a status transition outside the table.
// The request is rejected before any mutation.
type IllegalTransitionError struct {
	DocType DocType
	From    Status
	To      Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition for %s: %s -> %s", e.DocType, e.From, e.To)
}

// Kind returns the stable machine-readable error kind.
func (e *IllegalTransitionError) Kind() string {
	return "ILLEGAL_TRANSITION"
}

type transitionKey struct {
	docType DocType
	from    Status
}

// transitions is the full lifecycle table keyed (type, fromStatus).
// Statuses absent as keys are terminal: nothing transitions out of them.
var transitions = map[transitionKey][]Status{
	{DocTypeQuote, StatusDraft}:    {StatusSent, StatusCancelled},
	{DocTypeQuote, StatusSent}:     {StatusAccepted, StatusRejected, StatusConverted, StatusCancelled},
	{DocTypeQuote, StatusAccepted}: {StatusConverted, StatusCancelled},
	{DocTypeQuote, StatusRejected}: {StatusCancelled},

	{DocTypeSalesOrder, StatusConfirmed}: {StatusShipped, StatusCancelled},
	{DocTypeSalesOrder, StatusShipped}:   {StatusCompleted, StatusCancelled},

	{DocTypeDeliveryNote, StatusDraft}:     {StatusPrepared, StatusCancelled},
	{DocTypeDeliveryNote, StatusPrepared}:  {StatusInTransit, StatusCancelled},
	{DocTypeDeliveryNote, StatusInTransit}: {StatusDelivered, StatusReturned},

	{DocTypeInvoice, StatusDraft}:   {StatusSent, StatusCancelled},
	{DocTypeInvoice, StatusSent}:    {StatusPaid, StatusOverdue, StatusCancelled},
	{DocTypeInvoice, StatusOverdue}: {StatusPaid, StatusCancelled},

	{DocTypePurchaseInvoice, StatusDraft}:    {StatusReceived, StatusCancelled},
	{DocTypePurchaseInvoice, StatusReceived}: {StatusApproved, StatusCancelled},
	{DocTypePurchaseInvoice, StatusApproved}: {StatusPaid, StatusCancelled},
}

// initialStatus is the state a freshly created document of each type
// starts in. Receipts are born terminal.
var initialStatus = map[DocType]Status{
	DocTypeQuote:             StatusDraft,
	DocTypeSalesOrder:        StatusConfirmed,
	DocTypeDeliveryNote:      StatusDraft,
	DocTypeInvoice:           StatusDraft,
	DocTypePurchaseInvoice:   StatusDraft,
	DocTypeTaxInvoiceReceipt: StatusFinal,
	DocTypeReceipt:           StatusFinal,
}

// editable is the per-type set of statuses in which header and line
// edits are allowed.
var editable = map[transitionKey]bool{
	{DocTypeQuote, StatusDraft}:           true,
	{DocTypeSalesOrder, StatusConfirmed}:  true,
	{DocTypeDeliveryNote, StatusDraft}:    true,
	{DocTypeDeliveryNote, StatusPrepared}: true,
	{DocTypeInvoice, StatusDraft}:         true,
	{DocTypePurchaseInvoice, StatusDraft}: true,
}

// convertible maps the statuses from which a conversion may start.
var convertible = map[transitionKey]bool{
	{DocTypeQuote, StatusSent}:             true,
	{DocTypeQuote, StatusAccepted}:         true,
	{DocTypeSalesOrder, StatusConfirmed}:   true,
	{DocTypeSalesOrder, StatusShipped}:     true,
	{DocTypeDeliveryNote, StatusDelivered}: true,
	{DocTypeInvoice, StatusSent}:           true,
	{DocTypeInvoice, StatusOverdue}:        true,
	{DocTypeInvoice, StatusPaid}:           true,
}

// conversionTargets lists the legal (sourceType, targetType) pairs.
var conversionTargets = map[DocType][]DocType{
	DocTypeQuote:        {DocTypeSalesOrder},
	DocTypeSalesOrder:   {DocTypeDeliveryNote, DocTypeInvoice},
	DocTypeDeliveryNote: {DocTypeInvoice},
	DocTypeInvoice:      {DocTypeTaxInvoiceReceipt},
}

// InitialStatus returns the creation status for a document type.
func InitialStatus(docType DocType) Status {
	return initialStatus[docType]
}

// CanTransition reports whether from -> to is in the table for docType.
func CanTransition(docType DocType, from, to Status) bool {
	for _, allowed := range transitions[transitionKey{docType, from}] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns the typed error on
// violation. It never mutates anything; callers apply the new status
// only on nil error.
func Transition(docType DocType, from, to Status) error {
	if !CanTransition(docType, from, to) {
		return &IllegalTransitionError{DocType: docType, From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(docType DocType, status Status) bool {
	return len(transitions[transitionKey{docType, status}]) == 0
}

// CanEdit reports whether header and line mutations are allowed.
func CanEdit(docType DocType, status Status) bool {
	return editable[transitionKey{docType, status}]
}

// CanCancel reports whether the document may move to Cancelled.
func CanCancel(docType DocType, status Status) bool {
	return CanTransition(docType, status, StatusCancelled)
}

// CanConvert reports whether a conversion from the document's current
// state into targetType is legal.
func CanConvert(docType DocType, status Status, targetType DocType) bool {
	if !convertible[transitionKey{docType, status}] {
		return false
	}
	for _, target := range conversionTargets[docType] {
		if target == targetType {
			return true
		}
	}
	return false
}

// PaidTerminal returns the status a fully paid document advances to,
// and whether the type has one.
func PaidTerminal(docType DocType) (Status, bool) {
	switch docType {
	case DocTypeInvoice, DocTypePurchaseInvoice:
		return StatusPaid, true
	}
	return "", false
}

// CanGenerateReceipt reports whether the document type and status admit
// receipt generation. The paid-amount check lives in the payment ledger.
func CanGenerateReceipt(docType DocType, status Status) bool {
	switch docType {
	case DocTypeInvoice, DocTypeTaxInvoiceReceipt:
		return status != StatusCancelled
	}
	return false
}

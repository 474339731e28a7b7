package documents

import (
	"fmt"

	"github.com/google/uuid"
)

// ConversionNotAllowedError rejects a conversion whose source state or
// target type is outside the conversion table.
type ConversionNotAllowedError struct {
	DocType    DocType
	Status     Status
	TargetType DocType
}

func (e *ConversionNotAllowedError) Error() string {
	return fmt.Sprintf("cannot convert %s in status %s to %s", e.DocType, e.Status, e.TargetType)
}

func (e *ConversionNotAllowedError) Kind() string {
	return "CONVERSION_NOT_ALLOWED"
}

// AlreadyConvertedError rejects a repeated conversion of the same
// source. Conversion is one-shot per (source, targetType) pair.
type AlreadyConvertedError struct {
	SourceID   uuid.UUID
	TargetType DocType
}

func (e *AlreadyConvertedError) Error() string {
	return fmt.Sprintf("document %s already converted to %s", e.SourceID, e.TargetType)
}

func (e *AlreadyConvertedError) Kind() string {
	return "ALREADY_CONVERTED"
}

// EditNotAllowedError rejects header or line mutations outside the
// editable statuses.
type EditNotAllowedError struct {
	DocType DocType
	Status  Status
}

func (e *EditNotAllowedError) Error() string {
	return fmt.Sprintf("%s in status %s is not editable", e.DocType, e.Status)
}

func (e *EditNotAllowedError) Kind() string {
	return "ILLEGAL_TRANSITION"
}

// CancelWithPaymentsError rejects cancellation of a document that still
// carries payments; they must be reversed first.
type CancelWithPaymentsError struct {
	DocumentID uuid.UUID
}

func (e *CancelWithPaymentsError) Error() string {
	return fmt.Sprintf("document %s has recorded payments; reverse them before cancelling", e.DocumentID)
}

func (e *CancelWithPaymentsError) Kind() string {
	return "CANCEL_WITH_PAYMENTS"
}

// DocumentLockedError reports that another command holds the document's
// lock, e.g. a line edit racing a conversion of the same source.
type DocumentLockedError struct {
	DocumentID uuid.UUID
}

func (e *DocumentLockedError) Error() string {
	return fmt.Sprintf("document %s is locked by a concurrent command", e.DocumentID)
}

func (e *DocumentLockedError) Kind() string {
	return "DOCUMENT_LOCKED"
}

// ConcurrencyConflictError reports lock or version contention. Not a
// data error; callers retry with backoff.
type ConcurrencyConflictError struct {
	DocumentID uuid.UUID
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of document %s", e.DocumentID)
}

func (e *ConcurrencyConflictError) Kind() string {
	return "CONCURRENCY_CONFLICT"
}

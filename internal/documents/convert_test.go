package documents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertQuoteToSalesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote := f.createDoc(t, DocTypeQuote, f.line(2))

	_, err := f.service.SetStatus(ctx, f.tenant, quote.ID, StatusSent)
	require.NoError(t, err)
	_, err = f.service.SetStatus(ctx, f.tenant, quote.ID, StatusAccepted)
	require.NoError(t, err)

	order, err := f.service.Convert(ctx, f.tenant, quote.ID, DocTypeSalesOrder)
	require.NoError(t, err)

	require.Equal(t, DocTypeSalesOrder, order.Type)
	require.Equal(t, StatusConfirmed, order.Status)
	require.Equal(t, quote.ID, *order.SourceDocumentID)
	require.Equal(t, DocTypeQuote, *order.SourceDocumentType)
	require.True(t, order.TotalAmount.Equal(quote.TotalAmount))
	require.Len(t, order.Lines, len(quote.Lines))
	require.NotEqual(t, quote.Lines[0].ID, order.Lines[0].ID)

	// The quote retires once converted.
	retired, err := f.service.Get(ctx, f.tenant, quote.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConverted, retired.Status)
}

func TestConvertIsOneShotPerTargetType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote := f.createDoc(t, DocTypeQuote, f.line(1))

	_, err := f.service.SetStatus(ctx, f.tenant, quote.ID, StatusSent)
	require.NoError(t, err)

	_, err = f.service.Convert(ctx, f.tenant, quote.ID, DocTypeSalesOrder)
	require.NoError(t, err)

	_, err = f.service.Convert(ctx, f.tenant, quote.ID, DocTypeSalesOrder)
	var already *AlreadyConvertedError
	require.ErrorAs(t, err, &already)
	require.Equal(t, "ALREADY_CONVERTED", already.Kind())
}

func TestConvertSalesOrderFansOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote := f.createDoc(t, DocTypeQuote, f.line(3))

	_, err := f.service.SetStatus(ctx, f.tenant, quote.ID, StatusSent)
	require.NoError(t, err)
	order, err := f.service.Convert(ctx, f.tenant, quote.ID, DocTypeSalesOrder)
	require.NoError(t, err)

	// A sales order converts to both a delivery note and an invoice;
	// neither conversion retires the order.
	note, err := f.service.Convert(ctx, f.tenant, order.ID, DocTypeDeliveryNote)
	require.NoError(t, err)
	require.Equal(t, DocTypeDeliveryNote, note.Type)
	require.Equal(t, StatusDraft, note.Status)

	invoice, err := f.service.Convert(ctx, f.tenant, order.ID, DocTypeInvoice)
	require.NoError(t, err)
	require.Equal(t, DocTypeInvoice, invoice.Type)
	require.Equal(t, StatusDraft, invoice.Status)
	// Invoices inherit a due date from the customer's payment terms.
	require.NotNil(t, invoice.DueDate)

	current, err := f.service.Get(ctx, f.tenant, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, current.Status)

	// Same target type twice is still rejected.
	_, err = f.service.Convert(ctx, f.tenant, order.ID, DocTypeInvoice)
	var already *AlreadyConvertedError
	require.ErrorAs(t, err, &already)
}

func TestConvertRejectsIllegalPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote := f.createDoc(t, DocTypeQuote, f.line(1))

	// Draft quotes cannot convert yet.
	_, err := f.service.Convert(ctx, f.tenant, quote.ID, DocTypeSalesOrder)
	var notAllowed *ConversionNotAllowedError
	require.ErrorAs(t, err, &notAllowed)
	require.Equal(t, "CONVERSION_NOT_ALLOWED", notAllowed.Kind())

	// Quote to invoice is not a legal pair at all.
	_, err = f.service.SetStatus(ctx, f.tenant, quote.ID, StatusSent)
	require.NoError(t, err)
	_, err = f.service.Convert(ctx, f.tenant, quote.ID, DocTypeInvoice)
	require.ErrorAs(t, err, &notAllowed)
}

func TestConvertCancelledTargetAllowsRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quote := f.createDoc(t, DocTypeQuote, f.line(1))

	_, err := f.service.SetStatus(ctx, f.tenant, quote.ID, StatusSent)
	require.NoError(t, err)
	order, err := f.service.Convert(ctx, f.tenant, quote.ID, DocTypeSalesOrder)
	require.NoError(t, err)

	// Cancelling the produced document frees the pair again, but the
	// quote has already retired to Converted, so conversion must be
	// re-attempted from a non-retired state. Sales orders demonstrate
	// the retry path.
	invoice, err := f.service.Convert(ctx, f.tenant, order.ID, DocTypeInvoice)
	require.NoError(t, err)
	_, err = f.service.Cancel(ctx, f.tenant, invoice.ID)
	require.NoError(t, err)

	again, err := f.service.Convert(ctx, f.tenant, order.ID, DocTypeInvoice)
	require.NoError(t, err)
	require.NotEqual(t, invoice.ID, again.ID)
}

func TestConvertInvoiceToTaxInvoiceReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.createDoc(t, DocTypeInvoice, f.line(2))

	_, err := f.service.SetStatus(ctx, f.tenant, invoice.ID, StatusSent)
	require.NoError(t, err)

	tir, err := f.service.Convert(ctx, f.tenant, invoice.ID, DocTypeTaxInvoiceReceipt)
	require.NoError(t, err)
	require.Equal(t, DocTypeTaxInvoiceReceipt, tir.Type)
	require.Equal(t, StatusFinal, tir.Status)
	require.Equal(t, invoice.ID, *tir.SourceDocumentID)

	// The source invoice keeps its own lifecycle.
	current, err := f.service.Get(ctx, f.tenant, invoice.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, current.Status)
}

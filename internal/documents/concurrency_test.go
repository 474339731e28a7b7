package documents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Edits and conversions contend for the same per-document lock; when
// the bounded wait expires the caller sees the document as locked.

func TestUpdateLinesBlockedByHeldLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	m := f.repo.lockFor(doc.ID)
	m.Lock()
	defer m.Unlock()

	_, err := f.service.UpdateLines(ctx, f.tenant, doc.ID, UpdateLinesRequest{
		Lines: []LineRequest{f.line(2)},
	})
	var locked *DocumentLockedError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, doc.ID, locked.DocumentID)
	require.Equal(t, "DOCUMENT_LOCKED", locked.Kind())
}

func TestUpdateHeaderBlockedByHeldLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	m := f.repo.lockFor(doc.ID)
	m.Lock()
	defer m.Unlock()

	notes := "reminder sent"
	_, err := f.service.UpdateHeader(ctx, f.tenant, doc.ID, UpdateHeaderRequest{Notes: &notes})
	var locked *DocumentLockedError
	require.ErrorAs(t, err, &locked)
}

func TestConvertBlockedByHeldLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	_, err := f.service.SetStatus(ctx, f.tenant, doc.ID, StatusSent)
	require.NoError(t, err)
	_, err = f.service.SetStatus(ctx, f.tenant, doc.ID, StatusAccepted)
	require.NoError(t, err)

	m := f.repo.lockFor(doc.ID)
	m.Lock()
	defer m.Unlock()

	_, err = f.service.Convert(ctx, f.tenant, doc.ID, DocTypeSalesOrder)
	var locked *DocumentLockedError
	require.ErrorAs(t, err, &locked)
}

func TestSetStatusSurfacesLockConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	m := f.repo.lockFor(doc.ID)
	m.Lock()
	defer m.Unlock()

	_, err := f.service.SetStatus(ctx, f.tenant, doc.ID, StatusSent)
	var conflict *ConcurrencyConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "CONCURRENCY_CONFLICT", conflict.Kind())
}

func TestLockReleasedAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.createDoc(t, DocTypeQuote, f.line(1))

	_, err := f.service.UpdateLines(ctx, f.tenant, doc.ID, UpdateLinesRequest{
		Lines: []LineRequest{f.line(2)},
	})
	require.NoError(t, err)

	// The transaction released its lock; a second edit goes through.
	_, err = f.service.UpdateLines(ctx, f.tenant, doc.ID, UpdateLinesRequest{
		Lines: []LineRequest{f.line(3)},
	})
	require.NoError(t, err)
}

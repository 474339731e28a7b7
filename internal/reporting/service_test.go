package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/ledgerkit/internal/documents"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

type memoryReportRepo struct {
	summaries map[string][]DocumentSummary
	listCalls int
}

func newMemoryReportRepo() *memoryReportRepo {
	return &memoryReportRepo{summaries: make(map[string][]DocumentSummary)}
}

func (r *memoryReportRepo) add(tenant string, s DocumentSummary) {
	r.summaries[tenant] = append(r.summaries[tenant], s)
}

func (r *memoryReportRepo) matches(s DocumentSummary, filter Filter) bool {
	if filter.Type != nil && s.Type != *filter.Type {
		return false
	}
	if filter.Status != nil && s.Status != *filter.Status {
		return false
	}
	if filter.CustomerID != nil && s.CustomerID != *filter.CustomerID {
		return false
	}
	if filter.DateFrom != nil && s.DocumentDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && s.DocumentDate.After(*filter.DateTo) {
		return false
	}
	if filter.Search != "" && !strings.Contains(s.Number, filter.Search) &&
		!strings.Contains(s.CustomerName, filter.Search) {
		return false
	}
	return true
}

func (r *memoryReportRepo) ListAll(ctx context.Context, tenant shared.TenantContext, filter Filter) ([]DocumentSummary, error) {
	r.listCalls++
	var out []DocumentSummary
	for _, s := range r.summaries[tenant.TenantID] {
		if r.matches(s, filter) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryReportRepo) List(ctx context.Context, tenant shared.TenantContext, filter Filter, limit, offset int) ([]DocumentSummary, int, error) {
	all, err := r.ListAll(ctx, tenant, filter)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *memoryReportRepo) ListOutstanding(ctx context.Context, tenant shared.TenantContext) ([]DocumentSummary, error) {
	var out []DocumentSummary
	for _, s := range r.summaries[tenant.TenantID] {
		if s.Type != documents.DocTypeInvoice && s.Type != documents.DocTypePurchaseInvoice {
			continue
		}
		if s.Status == documents.StatusCancelled || s.Status == documents.StatusDraft {
			continue
		}
		if s.RemainingAmount.IsPositive() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryReportRepo) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	for tenant := range r.summaries {
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

func summary(docType documents.DocType, status documents.Status, date time.Time, total int64) DocumentSummary {
	amount := decimal.NewFromInt(total)
	return DocumentSummary{
		ID:              uuid.New(),
		Type:            docType,
		Number:          "DOC-" + uuid.NewString()[:8],
		Status:          status,
		CustomerID:      uuid.New(),
		CustomerName:    "Acme Ltd",
		DocumentDate:    date,
		Currency:        "ILS",
		TotalAmount:     amount,
		PaidAmount:      decimal.Zero,
		RemainingAmount: amount,
	}
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGroupByMonthOrdersAndExcludesCancelled(t *testing.T) {
	repo := newMemoryReportRepo()
	service := NewService(repo, nil)
	tenant := shared.TenantContext{TenantID: "t1"}

	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-03-05"), 100))
	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusPaid, day("2026-03-20"), 250))
	repo.add("t1", summary(documents.DocTypeQuote, documents.StatusCancelled, day("2026-03-25"), 999))
	repo.add("t1", summary(documents.DocTypeQuote, documents.StatusSent, day("2026-01-10"), 40))

	groups, err := service.GroupByMonth(context.Background(), tenant, Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Newest month first.
	require.Equal(t, "2026-03", groups[0].Month)
	require.Equal(t, "2026-01", groups[1].Month)

	// Cancelled documents appear in the listing but never in the total.
	require.Len(t, groups[0].Documents, 3)
	require.True(t, groups[0].TotalAmount.Equal(decimal.NewFromInt(350)))
	require.True(t, groups[1].TotalAmount.Equal(decimal.NewFromInt(40)))
}

func TestGroupByMonthRespectsFilter(t *testing.T) {
	repo := newMemoryReportRepo()
	service := NewService(repo, nil)
	tenant := shared.TenantContext{TenantID: "t1"}

	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-03-05"), 100))
	repo.add("t1", summary(documents.DocTypeQuote, documents.StatusSent, day("2026-03-06"), 70))

	docType := documents.DocTypeInvoice
	groups, err := service.GroupByMonth(context.Background(), tenant, Filter{Type: &docType})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Documents, 1)
	require.True(t, groups[0].TotalAmount.Equal(decimal.NewFromInt(100)))
}

func TestListDocumentsPaginates(t *testing.T) {
	repo := newMemoryReportRepo()
	service := NewService(repo, nil)
	tenant := shared.TenantContext{TenantID: "t1"}

	for i := 0; i < 5; i++ {
		repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-03-05"), 10))
	}

	page, err := service.ListDocuments(context.Background(), tenant, Filter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page.Documents, 2)
	require.Equal(t, 2, page.Pagination.Page)
	require.Equal(t, 5, page.Pagination.Total)
	require.Equal(t, 3, page.Pagination.TotalPages)

	// Past the last page yields an empty, well-formed envelope.
	page, err = service.ListDocuments(context.Background(), tenant, Filter{Page: 9, PerPage: 2})
	require.NoError(t, err)
	require.Empty(t, page.Documents)
	require.NotNil(t, page.Documents)

	_, err = service.ListDocuments(context.Background(), shared.TenantContext{}, Filter{})
	require.ErrorIs(t, err, shared.ErrTenantRequired)
}

func TestAgingBuckets(t *testing.T) {
	repo := newMemoryReportRepo()
	service := NewService(repo, nil)
	tenant := shared.TenantContext{TenantID: "t1"}
	asOf := day("2026-06-01")

	addInvoice := func(due string, amount int64) {
		s := summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-01-01"), amount)
		dueDate := day(due)
		s.DueDate = &dueDate
		repo.add("t1", s)
	}

	addInvoice("2026-06-15", 100) // not yet due
	addInvoice("2026-05-20", 200) // 12 days past
	addInvoice("2026-04-10", 300) // 52 days past
	addInvoice("2026-03-10", 400) // 83 days past
	addInvoice("2025-12-01", 500) // far past

	// No due date counts as current.
	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-01-01"), 50))

	buckets, err := service.Aging(context.Background(), tenant, asOf)
	require.NoError(t, err)
	require.True(t, buckets.Current.Equal(decimal.NewFromInt(150)))
	require.True(t, buckets.Bucket30.Equal(decimal.NewFromInt(200)))
	require.True(t, buckets.Bucket60.Equal(decimal.NewFromInt(300)))
	require.True(t, buckets.Bucket90.Equal(decimal.NewFromInt(400)))
	require.True(t, buckets.Bucket120.Equal(decimal.NewFromInt(500)))
}

func TestAgingIgnoresSettledAndNonInvoiceDocuments(t *testing.T) {
	repo := newMemoryReportRepo()
	service := NewService(repo, nil)
	tenant := shared.TenantContext{TenantID: "t1"}

	paid := summary(documents.DocTypeInvoice, documents.StatusPaid, day("2026-01-01"), 100)
	paid.PaidAmount = paid.TotalAmount
	paid.RemainingAmount = decimal.Zero
	repo.add("t1", paid)
	repo.add("t1", summary(documents.DocTypeQuote, documents.StatusSent, day("2026-01-01"), 100))
	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusCancelled, day("2026-01-01"), 100))

	buckets, err := service.Aging(context.Background(), tenant, day("2026-06-01"))
	require.NoError(t, err)
	require.True(t, buckets.Current.IsZero())
	require.True(t, buckets.Bucket30.IsZero())
	require.True(t, buckets.Bucket120.IsZero())
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestGroupByMonthUsesCache(t *testing.T) {
	repo := newMemoryReportRepo()
	cache, _ := newTestCache(t)
	service := NewService(repo, cache)
	tenant := shared.TenantContext{TenantID: "t1"}
	ctx := context.Background()

	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-03-05"), 100))

	first, err := service.GroupByMonth(ctx, tenant, Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)

	// Second identical request is served from the cache.
	second, err := service.GroupByMonth(ctx, tenant, Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)
	require.Len(t, second, len(first))
	require.Equal(t, first[0].Month, second[0].Month)
	require.True(t, first[0].TotalAmount.Equal(second[0].TotalAmount))

	// Invalidation forces a recompute.
	service.InvalidateTenant(ctx, tenant)
	_, err = service.GroupByMonth(ctx, tenant, Filter{})
	require.NoError(t, err)
	require.Equal(t, 2, repo.listCalls)
}

func TestCacheFailuresDegradeToMiss(t *testing.T) {
	repo := newMemoryReportRepo()
	cache, mr := newTestCache(t)
	service := NewService(repo, cache)
	tenant := shared.TenantContext{TenantID: "t1"}
	ctx := context.Background()

	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-03-05"), 100))

	_, err := service.GroupByMonth(ctx, tenant, Filter{})
	require.NoError(t, err)

	mr.Close()

	// Redis going away must not break the read path.
	groups, err := service.GroupByMonth(ctx, tenant, Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, 2, repo.listCalls)
}

func TestWarmMonthGroupsPopulatesCache(t *testing.T) {
	repo := newMemoryReportRepo()
	cache, _ := newTestCache(t)
	service := NewService(repo, cache)
	tenant := shared.TenantContext{TenantID: "t1"}
	ctx := context.Background()

	repo.add("t1", summary(documents.DocTypeInvoice, documents.StatusSent, day("2026-03-05"), 100))

	require.NoError(t, service.WarmMonthGroups(ctx, tenant))
	require.Equal(t, 1, repo.listCalls)

	groups, err := service.GroupByMonth(ctx, tenant, Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	// Warmed, so no extra repository read.
	require.Equal(t, 1, repo.listCalls)
}

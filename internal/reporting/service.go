package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerkit/ledgerkit/internal/documents"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// DocumentPage is a filtered listing plus its pagination envelope.
type DocumentPage struct {
	Documents  []DocumentSummary `json:"documents"`
	Pagination shared.Pagination `json:"pagination"`
}

// Service serves the document query and aggregation read paths.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
}

// NewService builds the reporting service. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListDocuments returns one page of documents matching the filter.
func (s *Service) ListDocuments(ctx context.Context, tenant shared.TenantContext, filter Filter) (*DocumentPage, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	p := shared.NewPagination(filter.Page, filter.PerPage, 0)
	summaries, total, err := s.repo.List(ctx, tenant, filter, p.PerPage, p.Offset())
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []DocumentSummary{}
	}
	return &DocumentPage{
		Documents:  summaries,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	}, nil
}

// GroupByMonth groups matching documents by document date month, newest
// month first. Cancelled documents never contribute to month totals.
// Results are cached per tenant and filter; concurrent identical
// requests collapse to one query.
func (s *Service) GroupByMonth(ctx context.Context, tenant shared.TenantContext, filter Filter) ([]MonthGroup, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}

	key := monthGroupKey(tenant, filter)
	if groups, ok := s.cache.GetMonthGroups(ctx, key); ok {
		return groups, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		summaries, err := s.repo.ListAll(ctx, tenant, filter)
		if err != nil {
			return nil, err
		}
		groups := groupByMonth(summaries)
		s.cache.SetMonthGroups(ctx, key, groups)
		return groups, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]MonthGroup), nil
}

// Aging buckets outstanding invoice balances by days past due at asOf.
func (s *Service) Aging(ctx context.Context, tenant shared.TenantContext, asOf time.Time) (*AgingBuckets, error) {
	if !tenant.Valid() {
		return nil, shared.ErrTenantRequired
	}
	outstanding, err := s.repo.ListOutstanding(ctx, tenant)
	if err != nil {
		return nil, err
	}

	buckets := &AgingBuckets{
		Current:   decimal.Zero,
		Bucket30:  decimal.Zero,
		Bucket60:  decimal.Zero,
		Bucket90:  decimal.Zero,
		Bucket120: decimal.Zero,
	}
	for _, doc := range outstanding {
		remaining := doc.RemainingAmount
		if !remaining.IsPositive() {
			continue
		}
		days := 0
		if doc.DueDate != nil && asOf.After(*doc.DueDate) {
			days = int(asOf.Sub(*doc.DueDate).Hours() / 24)
		}
		switch {
		case days <= 0:
			buckets.Current = buckets.Current.Add(remaining)
		case days <= 30:
			buckets.Bucket30 = buckets.Bucket30.Add(remaining)
		case days <= 60:
			buckets.Bucket60 = buckets.Bucket60.Add(remaining)
		case days <= 90:
			buckets.Bucket90 = buckets.Bucket90.Add(remaining)
		default:
			buckets.Bucket120 = buckets.Bucket120.Add(remaining)
		}
	}
	return buckets, nil
}

// WarmMonthGroups recomputes and caches the unfiltered monthly grouping
// for a tenant. Background jobs call this so the first dashboard load
// after heavy write activity stays warm.
func (s *Service) WarmMonthGroups(ctx context.Context, tenant shared.TenantContext) error {
	if !tenant.Valid() {
		return shared.ErrTenantRequired
	}
	summaries, err := s.repo.ListAll(ctx, tenant, Filter{})
	if err != nil {
		return err
	}
	s.cache.SetMonthGroups(ctx, monthGroupKey(tenant, Filter{}), groupByMonth(summaries))
	return nil
}

// InvalidateTenant drops all cached aggregations for a tenant. Document
// writes call this after commit.
func (s *Service) InvalidateTenant(ctx context.Context, tenant shared.TenantContext) {
	s.cache.Invalidate(ctx, "reporting:months:"+tenant.TenantID+":")
}

func groupByMonth(summaries []DocumentSummary) []MonthGroup {
	byMonth := make(map[string]*MonthGroup)
	for _, doc := range summaries {
		month := doc.DocumentDate.Format("2006-01")
		group, ok := byMonth[month]
		if !ok {
			group = &MonthGroup{Month: month, TotalAmount: decimal.Zero}
			byMonth[month] = group
		}
		group.Documents = append(group.Documents, doc)
		if doc.Status != documents.StatusCancelled {
			group.TotalAmount = group.TotalAmount.Add(doc.TotalAmount)
		}
	}

	groups := make([]MonthGroup, 0, len(byMonth))
	for _, group := range byMonth {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Month > groups[j].Month })
	return groups
}

func monthGroupKey(tenant shared.TenantContext, filter Filter) string {
	key := "reporting:months:" + tenant.TenantID + ":"
	if filter.DateFrom != nil {
		key += filter.DateFrom.Format("2006-01-02")
	}
	key += ":"
	if filter.DateTo != nil {
		key += filter.DateTo.Format("2006-01-02")
	}
	key += ":"
	if filter.Type != nil {
		key += string(*filter.Type)
	}
	key += ":"
	if filter.Status != nil {
		key += string(*filter.Status)
	}
	key += ":"
	if filter.CustomerID != nil {
		key += filter.CustomerID.String()
	}
	if filter.Search != "" {
		key += ":" + fmt.Sprintf("%q", filter.Search)
	}
	return key
}

package reporting

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerkit/ledgerkit/internal/documents"
	"github.com/ledgerkit/ledgerkit/internal/shared"
)

// Repository is the read-only reporting port. Queries are plain
// snapshot reads; they never block on or interfere with in-flight
// document commands.
type Repository interface {
	List(ctx context.Context, tenant shared.TenantContext, filter Filter, limit, offset int) ([]DocumentSummary, int, error)
	ListAll(ctx context.Context, tenant shared.TenantContext, filter Filter) ([]DocumentSummary, error)
	ListOutstanding(ctx context.Context, tenant shared.TenantContext) ([]DocumentSummary, error)
	ListTenants(ctx context.Context) ([]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed reporting repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const summarySelect = `
	SELECT d.id, d.doc_type, d.doc_number, d.status, d.customer_id, p.name,
	       d.document_date, d.due_date, d.currency, d.total_amount, d.paid_amount,
	       d.total_amount - d.paid_amount
	FROM sales_documents d
	JOIN parties p ON p.id = d.customer_id AND p.tenant_id = d.tenant_id
`

func buildWhere(tenant shared.TenantContext, filter Filter) (string, []any) {
	where := "WHERE d.tenant_id = $1"
	args := []any{tenant.TenantID}

	add := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(" AND "+clause, len(args))
	}

	if filter.DateFrom != nil {
		add("d.document_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("d.document_date <= $%d", *filter.DateTo)
	}
	if filter.Type != nil {
		add("d.doc_type = $%d", *filter.Type)
	}
	if filter.Status != nil {
		add("d.status = $%d", *filter.Status)
	}
	if filter.CustomerID != nil {
		add("d.customer_id = $%d", *filter.CustomerID)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (d.doc_number ILIKE $%d OR p.name ILIKE $%d)", len(args), len(args))
	}
	return where, args
}

func (r *repository) List(ctx context.Context, tenant shared.TenantContext, filter Filter, limit, offset int) ([]DocumentSummary, int, error) {
	where, args := buildWhere(tenant, filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM sales_documents d JOIN parties p ON p.id = d.customer_id AND p.tenant_id = d.tenant_id ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("reporting: count: %w", err)
	}

	query := fmt.Sprintf("%s %s ORDER BY d.document_date DESC, d.doc_number DESC LIMIT $%d OFFSET $%d",
		summarySelect, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("reporting: list: %w", err)
	}
	defer rows.Close()

	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

func (r *repository) ListAll(ctx context.Context, tenant shared.TenantContext, filter Filter) ([]DocumentSummary, error) {
	where, args := buildWhere(tenant, filter)
	query := summarySelect + " " + where + " ORDER BY d.document_date DESC, d.doc_number DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reporting: list all: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *repository) ListOutstanding(ctx context.Context, tenant shared.TenantContext) ([]DocumentSummary, error) {
	query := summarySelect + `
		WHERE d.tenant_id = $1
		  AND d.doc_type IN ($2, $3)
		  AND d.status NOT IN ($4, $5)
		  AND d.total_amount > d.paid_amount
	`
	rows, err := r.pool.Query(ctx, query, tenant.TenantID,
		documents.DocTypeInvoice, documents.DocTypePurchaseInvoice,
		documents.StatusCancelled, documents.StatusDraft)
	if err != nil {
		return nil, fmt.Errorf("reporting: list outstanding: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *repository) ListTenants(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT tenant_id FROM sales_documents`)
	if err != nil {
		return nil, fmt.Errorf("reporting: list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, fmt.Errorf("reporting: scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func scanSummaries(rows pgx.Rows) ([]DocumentSummary, error) {
	var summaries []DocumentSummary
	for rows.Next() {
		var s DocumentSummary
		if err := rows.Scan(&s.ID, &s.Type, &s.Number, &s.Status, &s.CustomerID, &s.CustomerName,
			&s.DocumentDate, &s.DueDate, &s.Currency, &s.TotalAmount, &s.PaidAmount,
			&s.RemainingAmount); err != nil {
			return nil, fmt.Errorf("reporting: scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

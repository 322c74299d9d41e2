package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/platform/persistence"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// SaleRepository implements the sale.Repository interface for PostgreSQL
type SaleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSaleRepository(logger *slog.Logger, querier persistence.Querier) *SaleRepository {
	return &SaleRepository{querier: querier, logger: logger}
}

func (r *SaleRepository) WithTx(tx pgx.Tx) sale.Repository {
	return &SaleRepository{querier: tx, logger: r.logger}
}

// Create inserts a sale. The unique payment reference makes redelivered
// payment messages fail with ErrDuplicateSale instead of double crediting.
func (r *SaleRepository) Create(ctx context.Context, s *sale.Sale) error {
	query := `
		INSERT INTO sales (id, product_id, seller_account_id, buyer_id, amount, payment_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		s.ID,
		s.ProductID,
		s.SellerAccountID,
		s.BuyerID,
		s.Amount,
		s.PaymentReference,
		s.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sale.ErrDuplicateSale{PaymentReference: s.PaymentReference}
		}
		r.logger.Error("Failed to create sale", "payment_reference", s.PaymentReference, "error", err)
		return fmt.Errorf("failed to create sale: %w", err)
	}

	return nil
}

func (r *SaleRepository) GetByPaymentReference(ctx context.Context, reference string) (*sale.Sale, error) {
	query := `
		SELECT id, product_id, seller_account_id, buyer_id, amount, payment_reference, created_at
		FROM sales
		WHERE payment_reference = $1
	`

	var s sale.Sale
	err := r.querier.QueryRow(ctx, query, reference).Scan(
		&s.ID,
		&s.ProductID,
		&s.SellerAccountID,
		&s.BuyerID,
		&s.Amount,
		&s.PaymentReference,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sale.ErrSaleNotFound{PaymentReference: reference}
		}
		r.logger.Error("Failed to get sale by payment reference", "payment_reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get sale by payment reference: %w", err)
	}

	return &s, nil
}

// SumBySeller totals every sale credited to the account.
func (r *SaleRepository) SumBySeller(ctx context.Context, sellerAccountID uuid.UUID) (money.Money, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::BIGINT
		FROM sales
		WHERE seller_account_id = $1
	`

	var total money.Money
	if err := r.querier.QueryRow(ctx, query, sellerAccountID).Scan(&total); err != nil {
		r.logger.Error("Failed to sum sales", "account_id", sellerAccountID.String(), "error", err)
		return money.Zero, fmt.Errorf("failed to sum sales: %w", err)
	}

	return total, nil
}

// ListBySellerSince returns sales created at or after since, oldest first.
func (r *SaleRepository) ListBySellerSince(ctx context.Context, sellerAccountID uuid.UUID, since time.Time) ([]*sale.Sale, error) {
	query := `
		SELECT id, product_id, seller_account_id, buyer_id, amount, payment_reference, created_at
		FROM sales
		WHERE seller_account_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, sellerAccountID, since)
	if err != nil {
		r.logger.Error("Failed to list sales", "account_id", sellerAccountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]*sale.Sale, 0)
	for rows.Next() {
		var s sale.Sale
		if err := rows.Scan(
			&s.ID,
			&s.ProductID,
			&s.SellerAccountID,
			&s.BuyerID,
			&s.Amount,
			&s.PaymentReference,
			&s.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan sale", "error", err)
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, &s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over sales", "error", err)
		return nil, fmt.Errorf("error iterating over sales: %w", err)
	}

	return sales, nil
}

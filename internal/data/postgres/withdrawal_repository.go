package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
	"github.com/marketplace-balance-ledger/internal/platform/persistence"
)

const withdrawalColumns = `id, account_id, amount, status, destination, settlement, created_at, updated_at`

// WithdrawalRepository implements the withdrawal.Repository interface for PostgreSQL.
// Destination and settlement are stored as JSONB documents.
type WithdrawalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewWithdrawalRepository(logger *slog.Logger, querier persistence.Querier) *WithdrawalRepository {
	return &WithdrawalRepository{querier: querier, logger: logger}
}

func (r *WithdrawalRepository) WithTx(tx pgx.Tx) withdrawal.Repository {
	return &WithdrawalRepository{querier: tx, logger: r.logger}
}

func (r *WithdrawalRepository) Create(ctx context.Context, w *withdrawal.Withdrawal) error {
	destination, settlement, err := encodeWithdrawalDocs(w)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO withdrawals (id, account_id, amount, status, destination, settlement, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.querier.Exec(ctx, query,
		w.ID,
		w.AccountID,
		w.Amount,
		w.Status,
		destination,
		settlement,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create withdrawal", "id", w.ID.String(), "account_id", w.AccountID.String(), "error", err)
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE id = $1
	`
	return r.getOne(ctx, "get withdrawal", query, id)
}

// LockForUpdate takes a row lock on the withdrawal. Callers lock the owning
// account first so that lock order is always account then withdrawal.
func (r *WithdrawalRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE id = $1
		FOR UPDATE
	`
	return r.getOne(ctx, "lock withdrawal for update", query, id)
}

func (r *WithdrawalRepository) getOne(ctx context.Context, op, query string, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	w, err := scanWithdrawal(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, withdrawal.ErrWithdrawalNotFound{WithdrawalID: id}
		}
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return w, nil
}

func (r *WithdrawalRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*withdrawal.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE account_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list withdrawals", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return r.collect(rows)
}

// List pages through all withdrawals, newest first, optionally filtered by
// status. The second result is the total number of matches.
func (r *WithdrawalRepository) List(ctx context.Context, filter withdrawal.Filter) ([]*withdrawal.Withdrawal, int64, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM withdrawals
		WHERE ($1 = '' OR status = $1)
	`

	var total int64
	if err := r.querier.QueryRow(ctx, countQuery, string(filter.Status)).Scan(&total); err != nil {
		r.logger.Error("Failed to count withdrawals", "status", string(filter.Status), "error", err)
		return nil, 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}

	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error("Failed to list withdrawals", "status", string(filter.Status), "error", err)
		return nil, 0, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *WithdrawalRepository) collect(rows pgx.Rows) ([]*withdrawal.Withdrawal, error) {
	defer rows.Close()

	items := make([]*withdrawal.Withdrawal, 0)
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			r.logger.Error("Failed to scan withdrawal", "error", err)
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		items = append(items, w)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over withdrawals", "error", err)
		return nil, fmt.Errorf("error iterating over withdrawals: %w", err)
	}
	return items, nil
}

// Update persists status, settlement and updated_at.
func (r *WithdrawalRepository) Update(ctx context.Context, w *withdrawal.Withdrawal) error {
	_, settlement, err := encodeWithdrawalDocs(w)
	if err != nil {
		return err
	}

	query := `
		UPDATE withdrawals
		SET status = $1, settlement = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, w.Status, settlement, w.UpdatedAt, w.ID)
	if err != nil {
		r.logger.Error("Failed to update withdrawal", "id", w.ID.String(), "status", string(w.Status), "error", err)
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return withdrawal.ErrWithdrawalNotFound{WithdrawalID: w.ID}
	}
	return nil
}

func (r *WithdrawalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM withdrawals
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete withdrawal", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete withdrawal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return withdrawal.ErrWithdrawalNotFound{WithdrawalID: id}
	}
	return nil
}

// SumReserved totals the withdrawals that hold funds against the balance.
func (r *WithdrawalRepository) SumReserved(ctx context.Context, accountID uuid.UUID) (money.Money, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::BIGINT
		FROM withdrawals
		WHERE account_id = $1 AND status = ANY($2)
	`

	statuses := make([]string, 0, 3)
	for _, st := range withdrawal.ReservingStatuses() {
		statuses = append(statuses, string(st))
	}

	var total money.Money
	if err := r.querier.QueryRow(ctx, query, accountID, statuses).Scan(&total); err != nil {
		r.logger.Error("Failed to sum reserved withdrawals", "account_id", accountID.String(), "error", err)
		return money.Zero, fmt.Errorf("failed to sum reserved withdrawals: %w", err)
	}
	return total, nil
}

func encodeWithdrawalDocs(w *withdrawal.Withdrawal) (destination []byte, settlement []byte, err error) {
	destination, err = json.Marshal(w.Destination)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode payout destination: %w", err)
	}
	if w.Settlement != nil {
		settlement, err = json.Marshal(w.Settlement)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode settlement details: %w", err)
		}
	}
	return destination, settlement, nil
}

func scanWithdrawal(row pgx.Row) (*withdrawal.Withdrawal, error) {
	var (
		w           withdrawal.Withdrawal
		destination []byte
		settlement  []byte
	)
	if err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.Amount,
		&w.Status,
		&destination,
		&settlement,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(destination, &w.Destination); err != nil {
		return nil, fmt.Errorf("decode payout destination: %w", err)
	}
	if len(settlement) > 0 {
		w.Settlement = &withdrawal.SettlementDetails{}
		if err := json.Unmarshal(settlement, w.Settlement); err != nil {
			return nil, fmt.Errorf("decode settlement details: %w", err)
		}
	}
	return &w, nil
}

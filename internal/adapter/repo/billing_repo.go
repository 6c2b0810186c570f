package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"justbecause/internal/domain"
	"justbecause/internal/infra"
	"justbecause/internal/sqlinline"
)

// TransactionRepositoryPG implements domain.TransactionRepository.
type TransactionRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewTransactionRepository(sql infra.SQLExecutor) *TransactionRepositoryPG {
	return &TransactionRepositoryPG{sql: sql}
}

func (r *TransactionRepositoryPG) Create(ctx context.Context, tx *domain.Transaction) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertTransaction,
		tx.UserID, string(tx.Purpose), string(tx.Plan), tx.TargetUserID, tx.Gateway, tx.GatewayOrderID,
		tx.GatewayPaymentID, tx.AmountMinor, tx.DiscountMinor, tx.Currency, tx.CouponCode, string(tx.Status), tx.PaidAt,
	)
	return conflict(row.Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt))
}

func (r *TransactionRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return scanTransaction(r.sql.QueryRow(ctx, sqlinline.QSelectTransactionByID, id))
}

func (r *TransactionRepositoryPG) GetByGatewayOrder(ctx context.Context, gateway, orderID string) (*domain.Transaction, error) {
	return scanTransaction(r.sql.QueryRow(ctx, sqlinline.QSelectTransactionByGatewayOrder, gateway, orderID))
}

func (r *TransactionRepositoryPG) SetGatewayOrder(ctx context.Context, id, orderID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetTransactionGatewayOrder, id, orderID)
	if err != nil {
		return conflict(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TransactionRepositoryPG) MarkPaid(ctx context.Context, id, paymentID string, now time.Time) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkTransactionPaid, id, paymentID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TransactionRepositoryPG) MarkFailed(ctx context.Context, id string, now time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkTransactionFailed, id, now)
	return err
}

func (r *TransactionRepositoryPG) PinGrantExpiry(ctx context.Context, id string, at time.Time) (time.Time, error) {
	var pinned time.Time
	if err := r.sql.QueryRow(ctx, sqlinline.QPinTransactionGrant, id, at).Scan(&pinned); err != nil {
		return time.Time{}, notFound(err)
	}
	return pinned, nil
}

func (r *TransactionRepositoryPG) MarkFulfilled(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkTransactionFulfilled, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TransactionRepositoryPG) List(ctx context.Context, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListTransactions, f.UserID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var (
		out   []domain.Transaction
		total int
	)
	for rows.Next() {
		tx, err := scanTransactionWith(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	return scanTransactionWith(row)
}

func scanTransactionWith(row pgx.Row, extra ...any) (*domain.Transaction, error) {
	var tx domain.Transaction
	dest := []any{
		&tx.ID, &tx.UserID, &tx.Purpose, &tx.Plan, &tx.TargetUserID, &tx.Gateway,
		&tx.GatewayOrderID, &tx.GatewayPaymentID, &tx.AmountMinor, &tx.DiscountMinor, &tx.Currency, &tx.CouponCode,
		&tx.Status, &tx.PaidAt, &tx.GrantExpiresAt, &tx.FulfilledAt, &tx.CreatedAt, &tx.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, notFound(err)
	}
	return &tx, nil
}

// CouponRepositoryPG implements domain.CouponRepository.
type CouponRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewCouponRepository(sql infra.SQLExecutor) *CouponRepositoryPG {
	return &CouponRepositoryPG{sql: sql}
}

func (r *CouponRepositoryPG) Create(ctx context.Context, c *domain.Coupon) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertCoupon,
		c.Code, string(c.Kind), c.Value, c.Currency, c.MaxRedemptions, c.ExpiresAt, strs(c.Purposes), c.Active,
	)
	return conflict(row.Scan(&c.ID, &c.CreatedAt))
}

func (r *CouponRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	return scanCoupon(r.sql.QueryRow(ctx, sqlinline.QSelectCouponByID, id))
}

func (r *CouponRepositoryPG) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return scanCoupon(r.sql.QueryRow(ctx, sqlinline.QSelectCouponByCode, code))
}

func (r *CouponRepositoryPG) List(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListCoupons)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CouponRepositoryPG) Update(ctx context.Context, c *domain.Coupon) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateCoupon,
		c.ID, string(c.Kind), c.Value, c.Currency, c.MaxRedemptions, c.ExpiresAt, strs(c.Purposes), c.Active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CouponRepositoryPG) Redeem(ctx context.Context, id string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QRedeemCoupon, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var (
		c        domain.Coupon
		purposes []string
	)
	if err := row.Scan(&c.ID, &c.Code, &c.Kind, &c.Value, &c.Currency, &c.MaxRedemptions, &c.Redeemed,
		&c.ExpiresAt, &purposes, &c.Active, &c.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	c.Purposes = typed[domain.Purpose](purposes)
	return &c, nil
}

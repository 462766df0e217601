package sqlxrepos

import (
	"context"
	"time"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/promo"
)

type promoRepository struct {
	repo
}

var _ promo.Repository = (*promoRepository)(nil) // interface compliance check

func NewPromoRepository(exec core.DBExecutor) *promoRepository {
	return &promoRepository{repo{exec: exec}}
}

var promoOrdering = fields("code", "discount_value", "start_date", "expiry_date", "used_count", "created_at")

const (
	promoValidCond = `is_active = ? AND start_date <= ? AND expiry_date >= ?
	AND (usage_limit IS NULL OR used_count < usage_limit)`
	promoExhaustedCond = "usage_limit IS NOT NULL AND used_count >= usage_limit"
)

func (r promoRepository) CodeExists(ctx context.Context, code, excludedID string, exec ...core.DBExecutor) (bool, error) {
	return exists(ctx, r.getExec(exec), "SELECT id FROM promo_codes WHERE code = ? AND id <> ?", code, excludedID)
}

func (r promoRepository) CreatePromoCode(ctx context.Context, p promo.PromoCode, exec ...core.DBExecutor) (promo.PromoCode, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO promo_codes (id, code, description, discount_type, discount_value, minimum_amount, maximum_discount,
		                         start_date, expiry_date, usage_limit, used_count, is_active, rule, created_by,
		                         created_at, updated_at)
		VALUES (:id, :code, :description, :discount_type, :discount_value, :minimum_amount, :maximum_discount,
		        :start_date, :expiry_date, :usage_limit, :used_count, :is_active, :rule, :created_by,
		        :created_at, :updated_at)`, p)
	if err != nil {
		return promo.PromoCode{}, err
	}
	return p, nil
}

func (r promoRepository) GetPromoCodeByID(ctx context.Context, id string, exec ...core.DBExecutor) (promo.PromoCode, error) {
	var p promo.PromoCode
	err := get(ctx, r.getExec(exec), promo.ErrNotFound, &p, "SELECT * FROM promo_codes WHERE id = ?", id)
	return p, err
}

func (r promoRepository) GetPromoCodeByCode(ctx context.Context, code string, exec ...core.DBExecutor) (promo.PromoCode, error) {
	var p promo.PromoCode
	err := get(ctx, r.getExec(exec), promo.ErrNotFound, &p, "SELECT * FROM promo_codes WHERE code = ?", code)
	return p, err
}

func (r promoRepository) QueryPromoCodes(ctx context.Context, filter promo.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]promo.PromoCode, int, error) {
	var where core.Where
	where.Search(filter.Search, "code", "description")
	if filter.DiscountType != "" {
		where.Add("discount_type = ?", filter.DiscountType)
	}
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	if !filter.ValidOn.IsZero() {
		where.Add(promoValidCond, true, filter.ValidOn, filter.ValidOn)
	}
	return queryPage[promo.PromoCode](ctx, r.getExec(exec), "SELECT * FROM promo_codes", &where, ordering, promoOrdering, "created_at DESC", page)
}

func (r promoRepository) UpdatePromoCode(ctx context.Context, p promo.PromoCode, exec ...core.DBExecutor) (promo.PromoCode, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE promo_codes SET code = :code, description = :description, discount_type = :discount_type,
		                       discount_value = :discount_value, minimum_amount = :minimum_amount,
		                       maximum_discount = :maximum_discount, start_date = :start_date,
		                       expiry_date = :expiry_date, usage_limit = :usage_limit, is_active = :is_active,
		                       rule = :rule, updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return promo.PromoCode{}, err
	}
	if err = execOne(ctx, e, promo.ErrNotFound, q, args...); err != nil {
		return promo.PromoCode{}, err
	}
	return p, nil
}

func (r promoRepository) DeletePromoCode(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), promo.ErrNotFound, "DELETE FROM promo_codes WHERE id = ?", id)
}

func (r promoRepository) IncrementUsage(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	e := r.getExec(exec)
	res, err := e.ExecContext(ctx, e.Rebind(`
		UPDATE promo_codes SET used_count = used_count + 1
		WHERE id = ? AND (usage_limit IS NULL OR used_count < usage_limit)`), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r promoRepository) PromoStats(ctx context.Context, today time.Time, exec ...core.DBExecutor) (promo.Stats, error) {
	var stats promo.Stats
	err := get(ctx, r.getExec(exec), nil, &stats, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active,
		       COALESCE(SUM(CASE WHEN `+promoValidCond+` THEN 1 ELSE 0 END), 0) AS valid,
		       COALESCE(SUM(CASE WHEN expiry_date < ? THEN 1 ELSE 0 END), 0) AS expired,
		       COALESCE(SUM(CASE WHEN `+promoExhaustedCond+` THEN 1 ELSE 0 END), 0) AS exhausted,
		       COALESCE(SUM(used_count), 0) AS total_uses
		FROM promo_codes`, true, today, today, today)
	return stats, err
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/offer"
)

type offerRepository struct {
	repo
}

var _ offer.Repository = (*offerRepository)(nil) // interface compliance check

func NewOfferRepository(exec core.DBExecutor) *offerRepository {
	return &offerRepository{repo{exec: exec}}
}

var offerOrdering = fields("title", "valid_from", "valid_until", "current_usage_count", "created_at", "updated_at")

const offerValidCond = `is_active = ? AND valid_from <= ? AND valid_until >= ?
	AND (total_usage_limit IS NULL OR current_usage_count < total_usage_limit)`

func (r offerRepository) CreateOffer(ctx context.Context, o offer.Offer, exec ...core.DBExecutor) (offer.Offer, error) {
	err := namedExec(ctx, r.getExec(exec), `
		INSERT INTO offers (id, title, description, discount_percentage, discount_amount, max_usage_per_user,
		                    total_usage_limit, current_usage_count, valid_from, valid_until, is_active, created_at, updated_at)
		VALUES (:id, :title, :description, :discount_percentage, :discount_amount, :max_usage_per_user,
		        :total_usage_limit, :current_usage_count, :valid_from, :valid_until, :is_active, :created_at, :updated_at)`, o)
	if err != nil {
		return offer.Offer{}, err
	}
	return o, nil
}

func (r offerRepository) GetOfferByID(ctx context.Context, id string, exec ...core.DBExecutor) (offer.Offer, error) {
	var o offer.Offer
	err := get(ctx, r.getExec(exec), offer.ErrNotFound, &o, "SELECT * FROM offers WHERE id = ?", id)
	return o, err
}

func (r offerRepository) QueryOffers(ctx context.Context, filter offer.QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]offer.Offer, int, error) {
	var where core.Where
	where.Search(filter.Search, "title", "description")
	if filter.IsActive != nil {
		where.Add("is_active = ?", *filter.IsActive)
	}
	if !filter.ValidAt.IsZero() {
		where.Add(offerValidCond, true, filter.ValidAt, filter.ValidAt)
	}
	if !filter.ExpiringBefore.IsZero() {
		where.Add("valid_until <= ?", filter.ExpiringBefore)
	}
	return queryPage[offer.Offer](ctx, r.getExec(exec), "SELECT * FROM offers", &where, ordering, offerOrdering, "created_at DESC", page)
}

func (r offerRepository) UpdateOffer(ctx context.Context, o offer.Offer, exec ...core.DBExecutor) (offer.Offer, error) {
	e := r.getExec(exec)
	q, args, err := e.BindNamed(`
		UPDATE offers SET title = :title, description = :description, discount_percentage = :discount_percentage,
		                  discount_amount = :discount_amount, max_usage_per_user = :max_usage_per_user,
		                  total_usage_limit = :total_usage_limit, valid_from = :valid_from, valid_until = :valid_until,
		                  is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`, o)
	if err != nil {
		return offer.Offer{}, err
	}
	if err = execOne(ctx, e, offer.ErrNotFound, q, args...); err != nil {
		return offer.Offer{}, err
	}
	return o, nil
}

func (r offerRepository) DeleteOffer(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return execOne(ctx, r.getExec(exec), offer.ErrNotFound, "DELETE FROM offers WHERE id = ?", id)
}

func (r offerRepository) IncrementUsage(ctx context.Context, id string, exec ...core.DBExecutor) error {
	e := r.getExec(exec)
	err := execOne(ctx, e, offer.ErrUsageLimit, `
		UPDATE offers SET current_usage_count = current_usage_count + 1
		WHERE id = ? AND (total_usage_limit IS NULL OR current_usage_count < total_usage_limit)`, id)
	if err == offer.ErrUsageLimit {
		if _, getErr := r.GetOfferByID(ctx, id, e); getErr != nil {
			return getErr
		}
	}
	return err
}

func (r offerRepository) OfferStats(ctx context.Context, now, expiringBefore time.Time, exec ...core.DBExecutor) (offer.Stats, error) {
	var stats offer.Stats
	err := get(ctx, r.getExec(exec), nil, &stats, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active,
		       COALESCE(SUM(CASE WHEN `+offerValidCond+` THEN 1 ELSE 0 END), 0) AS valid,
		       COALESCE(SUM(CASE WHEN `+offerValidCond+` AND valid_until <= ? THEN 1 ELSE 0 END), 0) AS expiring_soon
		FROM offers`, true, now, now, true, now, now, expiringBefore)
	return stats, err
}

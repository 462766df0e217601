package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("promo code not found")
	ErrCodeExists = core.NewConflictError("a promo code with this code already exists")
	ErrUsageLimit = core.NewConflictError("usage limit reached")
)

const msgValid = "promo code is valid"

type (
	Repository interface {
		CodeExists(ctx context.Context, code, excludedID string, exec ...core.DBExecutor) (bool, error)
		CreatePromoCode(ctx context.Context, p PromoCode, exec ...core.DBExecutor) (PromoCode, error)
		GetPromoCodeByID(ctx context.Context, id string, exec ...core.DBExecutor) (PromoCode, error)
		GetPromoCodeByCode(ctx context.Context, code string, exec ...core.DBExecutor) (PromoCode, error)
		// QueryPromoCodes applies AND operation on available QueryFilter fields.
		// A non-zero QueryFilter.ValidOn keeps active codes valid on that day and below their usage limit.
		QueryPromoCodes(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]PromoCode, int, error)
		UpdatePromoCode(ctx context.Context, p PromoCode, exec ...core.DBExecutor) (PromoCode, error)
		DeletePromoCode(ctx context.Context, id string, exec ...core.DBExecutor) error
		// IncrementUsage atomically bumps used_count unless the usage limit is reached, reporting whether it did.
		IncrementUsage(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
		PromoStats(ctx context.Context, today time.Time, exec ...core.DBExecutor) (Stats, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) validateInput(ctx context.Context, in *Input, excludedID string) error {
	if err := in.Validate(svc.validate); err != nil {
		return err
	}
	if in.Rule != "" {
		if _, err := CompileRule(in.Rule); err != nil {
			return core.NewFieldError("rule", "invalid rule: "+err.Error())
		}
	}
	exists, err := svc.repo.CodeExists(ctx, in.Code, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking promo code uniqueness")
	}
	if exists {
		return ErrCodeExists
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, adminID string, in Input) (PromoCode, error) {
	if err := svc.validateInput(ctx, &in, ""); err != nil {
		return PromoCode{}, err
	}
	now := core.NowFunc()
	p := PromoCode{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedBy: null.NewString(adminID, adminID != ""),
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(&p)
	p, err := svc.repo.CreatePromoCode(ctx, p)
	return p, errors.Wrap(err, "creating promo code")
}

func (svc *Service) Update(ctx context.Context, id string, in Input) (PromoCode, error) {
	p, err := svc.repo.GetPromoCodeByID(ctx, id)
	if err != nil {
		return PromoCode{}, err
	}
	if err = svc.validateInput(ctx, &in, id); err != nil {
		return PromoCode{}, err
	}
	in.apply(&p)
	p.UpdatedAt = core.NowFunc()
	p, err = svc.repo.UpdatePromoCode(ctx, p)
	return p, errors.Wrap(err, "updating promo code")
}

func (svc *Service) ToggleActive(ctx context.Context, id string) (PromoCode, error) {
	p, err := svc.repo.GetPromoCodeByID(ctx, id)
	if err != nil {
		return PromoCode{}, err
	}
	p.IsActive = !p.IsActive
	p.UpdatedAt = core.NowFunc()
	p, err = svc.repo.UpdatePromoCode(ctx, p)
	return p, errors.Wrap(err, "updating promo code")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetPromoCodeByID(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeletePromoCode(ctx, id), "deleting promo code")
}

func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (PromoCode, error) {
	return svc.repo.GetPromoCodeByID(ctx, id, exec...)
}

func (svc *Service) GetByCode(ctx context.Context, code string, exec ...core.DBExecutor) (PromoCode, error) {
	return svc.repo.GetPromoCodeByCode(ctx, NormalizeCode(code), exec...)
}

// GetValidByCode hides codes that cannot currently be used.
func (svc *Service) GetValidByCode(ctx context.Context, code string) (PromoCode, error) {
	p, err := svc.GetByCode(ctx, code)
	if err != nil {
		return PromoCode{}, err
	}
	if !p.IsValid(core.NowFunc()) {
		return PromoCode{}, ErrNotFound
	}
	return p, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[PromoCode], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	codes, total, err := svc.repo.QueryPromoCodes(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[PromoCode]{}, errors.Wrap(err, "querying promo codes")
	}
	return core.NewPaginated(codes, total, page), nil
}

// QueryValid lists the codes usable today, expiring soonest first.
func (svc *Service) QueryValid(ctx context.Context, filter QueryFilter, page core.Page) (core.Paginated[PromoCode], error) {
	filter.ValidOn = core.StartOfDay(core.NowFunc())
	return svc.Query(ctx, filter, page, []core.DBOrdering{{Field: "expiry_date", Ascending: true}})
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := svc.repo.PromoStats(ctx, core.StartOfDay(core.NowFunc()))
	return stats, errors.Wrap(err, "computing promo code stats")
}

// Validate checks a code (by code or id) against an amount and a booking context.
// Business failures are reported in the returned Validation, not as errors.
func (svc *Service) Validate(ctx context.Context, req ValidateRequest, email string, exec ...core.DBExecutor) (Validation, error) {
	if err := svc.validate.Struct(req); err != nil {
		return Validation{}, err
	}
	amount := core.RoundMoney(req.Amount)
	res := Validation{FinalAmount: amount}

	var (
		p   PromoCode
		err error
	)
	if req.PromoCodeID != "" {
		p, err = svc.repo.GetPromoCodeByID(ctx, req.PromoCodeID, exec...)
	} else {
		p, err = svc.repo.GetPromoCodeByCode(ctx, NormalizeCode(req.Code), exec...)
	}
	if err != nil {
		if core.IsNotFound(err) {
			res.Message = "promo code not found"
			return res, nil
		}
		return Validation{}, errors.Wrap(err, "finding promo code")
	}
	res.PromoCodeID = p.ID
	res.RemainingUses = p.RemainingUses()

	if reason := p.invalidReason(core.NowFunc()); reason != "" {
		res.Message = reason
		return res, nil
	}
	if amount < p.MinimumAmount {
		res.Message = fmt.Sprintf("minimum amount of %.2f required", p.MinimumAmount)
		return res, nil
	}
	ok, err := EvalRule(p.Rule, req.context(email))
	if err != nil || !ok {
		res.Message = "promo code not applicable"
		return res, nil
	}

	res.IsValid = true
	res.Message = msgValid
	res.DiscountAmount = p.CalculateDiscount(amount, core.NowFunc())
	res.FinalAmount = core.RoundMoney(amount - res.DiscountAmount)
	return res, nil
}

// Use counts one more use of the code, failing with ErrUsageLimit once its limit is reached.
func (svc *Service) Use(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ok, err := svc.repo.IncrementUsage(ctx, id, exec...)
	if err != nil {
		return errors.Wrap(err, "using promo code")
	}
	if !ok {
		return ErrUsageLimit
	}
	return nil
}

package booking

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("booking not found")
	ErrNotCancellable    = core.NewFieldError("status", "only pending or confirmed bookings can be cancelled")
	ErrTooLateToCancel   = core.NewFieldError("travel_date", "confirmed bookings cannot be cancelled within 24 hours of travel")
	ErrNotPayable        = core.NewFieldError("status", "this booking cannot be paid")
	ErrAmountTooHigh     = core.NewFieldError("amount", "amount exceeds the outstanding balance")
	ErrNothingToRefund   = core.NewFieldError("status", "only paid bookings can be refunded")
	ErrPackageNotFound   = core.NewFieldError("package_id", "unknown package")
	ErrPackageNotActive  = core.NewFieldError("package_id", "package is not available")
	ErrTravelDatePast    = core.NewFieldError("travel_date", "travel date must be in the future")
	ErrTravelDateOutside = core.NewFieldError("travel_date", "travel date is outside the package availability")
	ErrBookingChanged    = core.NewConflictError("booking was updated meanwhile, please retry")
)

type (
	Repository interface {
		CreateBooking(ctx context.Context, b Booking, exec ...core.DBExecutor) (Booking, error)
		// GetBookingByID also joins the package title and the user's name and email.
		GetBookingByID(ctx context.Context, id string, exec ...core.DBExecutor) (Booking, error)
		// QueryBookings applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Booking.ID, the package title or the user's name.
		QueryBookings(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Booking, int, error)
		// GetBookingForUpdate reads a booking and locks its row until the end of the transaction where supported.
		GetBookingForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (Booking, error)
		// UpdateBookingStatus saves the status, payment status and cancellation fields, never the paid amount.
		// Both Update methods return ErrBookingChanged when b.Version is no longer current.
		UpdateBookingStatus(ctx context.Context, b Booking, exec ...core.DBExecutor) (Booking, error)
		UpdateBookingPayment(ctx context.Context, b Booking, exec ...core.DBExecutor) (Booking, error)
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		GetPayments(ctx context.Context, bookingID string, exec ...core.DBExecutor) ([]Payment, error)
		CountByStatus(ctx context.Context, exec ...core.DBExecutor) ([]StatusCount, error)
		// Revenue sums total_amount over confirmed and completed bookings.
		Revenue(ctx context.Context, exec ...core.DBExecutor) (float64, error)
	}

	packageGetter interface {
		GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (tour.Package, error)
	}
	promoUser interface {
		Validate(ctx context.Context, req promo.ValidateRequest, email string, exec ...core.DBExecutor) (promo.Validation, error)
		Use(ctx context.Context, id string, exec ...core.DBExecutor) error
	}
	offerUser interface {
		Use(ctx context.Context, id string, exec ...core.DBExecutor) error
	}
	bookingCounter interface {
		IncrementBookingsCount(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		db       core.DB
		repo     Repository
		packages packageGetter
		promos   promoUser
		offers   offerUser
		users    bookingCounter
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewService(
	db core.DB,
	repo Repository,
	packages packageGetter,
	promos promoUser,
	offers offerUser,
	users bookingCounter,
	mailSvc core.EmailService,
	validate *validator.Validate,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		packages: packages,
		promos:   promos,
		offers:   offers,
		users:    users,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

// Create books a package for usr. Amounts are computed from the package's effective price;
// the promo code use, the offer use, the booking and the user's booking count are saved atomically.
func (svc *Service) Create(ctx context.Context, usr user.User, nb NewBooking) (Booking, error) {
	if err := nb.Validate(svc.validate); err != nil {
		return Booking{}, err
	}

	pkg, err := svc.packages.GetByID(ctx, nb.PackageID)
	if err != nil {
		if core.IsNotFound(err) {
			return Booking{}, ErrPackageNotFound
		}
		return Booking{}, errors.Wrap(err, "finding package")
	}
	now := core.NowFunc()
	if !pkg.IsActive {
		return Booking{}, ErrPackageNotActive
	}
	if !nb.TravelDate.After(now) {
		return Booking{}, ErrTravelDatePast
	}
	if !pkg.InWindow(nb.TravelDate) {
		return Booking{}, ErrTravelDateOutside
	}
	if nb.Travelers > pkg.MaxGroupSize {
		return Booking{}, core.NewFieldError("travelers", fmt.Sprintf("at most %d travelers", pkg.MaxGroupSize))
	}

	subtotal := core.RoundMoney(pkg.EffectivePrice * float64(nb.Travelers))
	b := Booking{
		ID:              uuid.New().String(),
		PackageID:       pkg.ID,
		UserID:          usr.ID,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		TravelDate:      nb.TravelDate,
		Travelers:       nb.Travelers,
		SpecialRequests: nb.SpecialRequests,
		ContactPhone:    nb.ContactPhone,
		SubtotalAmount:  subtotal,
		TotalAmount:     subtotal,
		BookingDate:     now,
		CreatedAt:       now,
		UpdatedAt:       now,
		PackageTitle:    pkg.Title,
		UserName:        usr.FullName,
		UserEmail:       usr.Email,
	}

	err = core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if nb.PromoCode != "" {
			res, err := svc.promos.Validate(ctx, promo.ValidateRequest{
				Code:          nb.PromoCode,
				Amount:        subtotal,
				Travelers:     nb.Travelers,
				PackageID:     pkg.ID,
				DestinationID: pkg.DestinationID,
				TripTypeID:    pkg.TripTypeID.String,
			}, usr.Email, tx)
			if err != nil {
				return err
			}
			if !res.IsValid {
				return core.NewFieldError("promo_code", res.Message)
			}
			if err = svc.promos.Use(ctx, res.PromoCodeID, tx); err != nil {
				if core.IsConflict(err) {
					return core.NewFieldError("promo_code", err.Error())
				}
				return err
			}
			b.PromoCodeID = null.StringFrom(res.PromoCodeID)
			b.DiscountAmount = res.DiscountAmount
			b.TotalAmount = res.FinalAmount
		}
		if pkg.OfferID.Valid && pkg.EffectivePrice < pkg.Price {
			if err := svc.offers.Use(ctx, pkg.OfferID.String, tx); err != nil {
				return err
			}
		}
		var err error
		if b, err = svc.repo.CreateBooking(ctx, b, tx); err != nil {
			return errors.Wrap(err, "creating booking")
		}
		return svc.users.IncrementBookingsCount(ctx, usr.ID, tx)
	})
	if err != nil {
		return Booking{}, err
	}
	b.PackageTitle, b.UserName, b.UserEmail = pkg.Title, usr.FullName, usr.Email

	svc.sendConfirmation(usr, b)
	return b, nil
}

// GetForUser hides bookings of other users.
func (svc *Service) GetForUser(ctx context.Context, userID, id string) (Detail, error) {
	b, err := svc.repo.GetBookingByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if b.UserID != userID {
		return Detail{}, ErrNotFound
	}
	return svc.detail(ctx, b)
}

func (svc *Service) GetDetail(ctx context.Context, id string) (Detail, error) {
	b, err := svc.repo.GetBookingByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, b)
}

func (svc *Service) detail(ctx context.Context, b Booking) (Detail, error) {
	d := Detail{Booking: b}
	var err error
	if d.Package, err = svc.packages.GetByID(ctx, b.PackageID); err != nil && !core.IsNotFound(err) {
		return Detail{}, errors.Wrap(err, "finding booking package")
	}
	if d.Payments, err = svc.repo.GetPayments(ctx, b.ID); err != nil {
		return Detail{}, errors.Wrap(err, "finding booking payments")
	}
	if d.Payments == nil {
		d.Payments = []Payment{}
	}
	return d, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) (core.Paginated[Booking], error) {
	filter.Clean()
	page.Clean(core.DefaultPageLimit, core.MaxPageLimit)
	bookings, total, err := svc.repo.QueryBookings(ctx, filter, page, ordering)
	if err != nil {
		return core.Paginated[Booking]{}, errors.Wrap(err, "querying bookings")
	}
	return core.NewPaginated(bookings, total, page), nil
}

// QueryForUser lists the bookings of one user, newest first.
func (svc *Service) QueryForUser(ctx context.Context, userID string, filter QueryFilter, page core.Page) (core.Paginated[Booking], error) {
	filter.UserID = userID
	return svc.Query(ctx, filter, page, []core.DBOrdering{{Field: "created_at"}})
}

// Cancel cancels a pending or confirmed booking owned by userID.
func (svc *Service) Cancel(ctx context.Context, userID, id string, c Cancel) (Booking, error) {
	if err := svc.validate.Struct(c); err != nil {
		return Booking{}, err
	}
	return svc.updateStatus(ctx, id, func(b *Booking) error {
		if b.UserID != userID {
			return ErrNotFound
		}
		if b.Status != StatusPending && b.Status != StatusConfirmed {
			return ErrNotCancellable
		}
		now := core.NowFunc()
		if b.Status == StatusConfirmed && b.TravelDate.Sub(now) < CancellationNotice {
			return ErrTooLateToCancel
		}
		b.setCancelled(core.CleanString(c.Reason), now)
		return nil
	})
}

func (b *Booking) setCancelled(reason string, now time.Time) {
	b.Status = StatusCancelled
	if !b.CancellationDate.Valid {
		b.CancellationDate = null.TimeFrom(now)
	}
	if reason != "" {
		b.CancellationReason = reason
	}
}

// Pay records a payment by userID on their booking.
// A pending booking paid in full is confirmed.
func (svc *Service) Pay(ctx context.Context, userID, id string, p Pay) (Detail, error) {
	if err := p.Validate(svc.validate); err != nil {
		return Detail{}, err
	}

	var b Booking
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if b, err = svc.repo.GetBookingForUpdate(ctx, id, tx); err != nil {
			return err
		}
		if b.UserID != userID {
			return ErrNotFound
		}
		if (b.Status != StatusPending && b.Status != StatusConfirmed) ||
			(b.PaymentStatus != PaymentPending && b.PaymentStatus != PaymentPartiallyPaid) {
			return ErrNotPayable
		}
		if p.Amount > b.Outstanding() {
			return ErrAmountTooHigh
		}

		now := core.NowFunc()
		payment := Payment{
			ID:        uuid.New().String(),
			BookingID: b.ID,
			Amount:    p.Amount,
			Method:    p.Method,
			Reference: p.Reference,
			CreatedAt: now,
		}
		if _, err = svc.repo.CreatePayment(ctx, payment, tx); err != nil {
			return errors.Wrap(err, "creating payment")
		}

		b.PaidAmount = core.RoundMoney(b.PaidAmount + p.Amount)
		if b.Outstanding() <= 0 {
			b.PaymentStatus = PaymentPaid
			if b.Status == StatusPending {
				b.Status = StatusConfirmed
			}
		} else {
			b.PaymentStatus = PaymentPartiallyPaid
		}
		b.UpdatedAt = now
		b, err = svc.repo.UpdateBookingPayment(ctx, b, tx)
		return err
	})
	if err != nil {
		return Detail{}, err
	}
	return svc.detail(ctx, b)
}

// UpdateStatus moves a booking along the status machine.
func (svc *Service) UpdateStatus(ctx context.Context, id string, su StatusUpdate) (Booking, error) {
	su.Status = core.CleanString(su.Status, true /* lower */)
	if err := svc.validate.Struct(su); err != nil {
		return Booking{}, err
	}
	return svc.updateStatus(ctx, id, func(b *Booking) error {
		if !CanTransition(b.Status, su.Status) {
			return core.NewFieldError("status", fmt.Sprintf("cannot go from %s to %s", b.Status, su.Status))
		}
		switch su.Status {
		case StatusCancelled:
			b.setCancelled(core.CleanString(su.Reason), core.NowFunc())
		case StatusRefunded:
			if b.PaidAmount <= 0 {
				return ErrNothingToRefund
			}
			b.Status = StatusRefunded
			b.PaymentStatus = PaymentRefunded
		default:
			b.Status = su.Status
		}
		return nil
	})
}

// updateStatus applies change to the locked booking and saves it in one transaction.
func (svc *Service) updateStatus(ctx context.Context, id string, change func(b *Booking) error) (Booking, error) {
	var b Booking
	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if b, err = svc.repo.GetBookingForUpdate(ctx, id, tx); err != nil {
			return err
		}
		if err = change(&b); err != nil {
			return err
		}
		b.UpdatedAt = core.NowFunc()
		b, err = svc.repo.UpdateBookingStatus(ctx, b, tx)
		return err
	})
	if err != nil {
		return Booking{}, err
	}
	return b, nil
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := svc.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting bookings by status")
	}
	stats := Stats{ByStatus: make(map[string]int, len(Statuses))}
	for _, s := range Statuses {
		stats.ByStatus[s] = 0
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.Total += c.Count
	}
	if stats.Revenue, err = svc.repo.Revenue(ctx); err != nil {
		return Stats{}, errors.Wrap(err, "computing revenue")
	}
	stats.Revenue = core.RoundMoney(stats.Revenue)
	return stats, nil
}

// ValidatePromo checks a promo code against what booking a package would cost.
func (svc *Service) ValidatePromo(ctx context.Context, usr user.User, req promo.ValidateRequest) (promo.Validation, error) {
	if req.PackageID != "" {
		pkg, err := svc.packages.GetByID(ctx, req.PackageID)
		if err != nil {
			if core.IsNotFound(err) {
				return promo.Validation{}, ErrPackageNotFound
			}
			return promo.Validation{}, errors.Wrap(err, "finding package")
		}
		travelers := req.Travelers
		if travelers < 1 {
			travelers = 1
		}
		req.Amount = core.RoundMoney(pkg.EffectivePrice * float64(travelers))
		req.DestinationID = pkg.DestinationID
		req.TripTypeID = pkg.TripTypeID.String
	}
	return svc.promos.Validate(ctx, req, usr.Email)
}

func (svc *Service) sendConfirmation(usr user.User, b Booking) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Your booking of " + b.PackageTitle,
		TemplateName: "booking_confirmation",
		TemplateData: map[string]interface{}{
			"Name":         usr.FullName,
			"PackageTitle": b.PackageTitle,
			"BookingID":    b.ID,
			"TravelDate":   b.TravelDate,
			"Travelers":    b.Travelers,
			"Subtotal":     b.SubtotalAmount,
			"Discount":     b.DiscountAmount,
			"Total":        b.TotalAmount,
			"Status":       b.Status,
		},
	})
}

// Package testutil holds the helpers shared by the DB backed tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/triptype"
	"github.com/vistavoyage/voyage/core/user"
	"github.com/vistavoyage/voyage/storage/database"
)

// NewConfig returns a test config rooted in a temp dir.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	return core.NewTestConfig(t.TempDir())
}

// PrepareDB opens a fresh sqlite database in a temp dir and applies the migrations.
// The database is closed when the test ends.
func PrepareDB(t *testing.T, conf ...*core.Config) *sqlx.DB {
	t.Helper()
	var c *core.Config
	if len(conf) > 0 {
		c = conf[0]
	} else {
		c = NewConfig(t)
	}

	db, err := database.Open(c)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with the validations of every core package registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)
	offer.InitValidators(validate, translator)
	tour.InitValidators(validate, translator)
	promo.InitValidators(validate, translator)
	booking.InitValidators(validate, translator)
	blog.InitValidators(validate, translator)
	return validate, translator
}

func stamp(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC()
	}
	return time.Now().UTC()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := stamp(createdAt)
	usr := user.User{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  name,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateAdmin(t *testing.T, repo admin.Repository, username, email, role, pwd string) admin.Admin {
	t.Helper()
	now := time.Now().UTC()
	adm := admin.Admin{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		FullName:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := adm.SetPassword(pwd); err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("CreateAdmin() failed: %v", err)
	}
	return adm
}

func CreateDestination(t *testing.T, repo destination.Repository, name, country string, isActive bool) destination.Destination {
	t.Helper()
	now := time.Now().UTC()
	dest, err := repo.CreateDestination(context.Background(), destination.Destination{
		ID:        uuid.New().String(),
		Name:      name,
		Country:   country,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateDestination() failed: %v", err)
	}
	return dest
}

func CreateTripType(t *testing.T, repo triptype.Repository, name string) triptype.TripType {
	t.Helper()
	now := time.Now().UTC()
	tt, err := repo.CreateTripType(context.Background(), triptype.TripType{
		ID:        uuid.New().String(),
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTripType() failed: %v", err)
	}
	return tt
}

func CreateActivity(t *testing.T, repo activity.Repository, name, actType string, isActive bool) activity.Activity {
	t.Helper()
	now := time.Now().UTC()
	act, err := repo.CreateActivity(context.Background(), activity.Activity{
		ID:              uuid.New().String(),
		Name:            name,
		ActivityType:    actType,
		DifficultyLevel: core.DifficultyEasy,
		IsActive:        isActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateActivity() failed: %v", err)
	}
	return act
}

// CreateOffer creates an active percentage offer valid from yesterday for 30 days.
func CreateOffer(t *testing.T, repo offer.Repository, title string, percentage float64, mod ...func(*offer.Offer)) offer.Offer {
	t.Helper()
	now := time.Now().UTC()
	o := offer.Offer{
		ID:                 uuid.New().String(),
		Title:              title,
		DiscountPercentage: null.Float64From(percentage),
		ValidFrom:          now.AddDate(0, 0, -1),
		ValidUntil:         now.AddDate(0, 0, 30),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, m := range mod {
		m(&o)
	}
	o, err := repo.CreateOffer(context.Background(), o)
	if err != nil {
		t.Fatalf("CreateOffer() failed: %v", err)
	}
	return o
}

// CreatePackage creates an active package of 5 days at dest.
func CreatePackage(
	t *testing.T,
	repo tour.Repository,
	dest destination.Destination,
	title string,
	price float64,
	mod ...func(*tour.Package),
) tour.Package {
	t.Helper()
	now := time.Now().UTC()
	pkg := tour.Package{
		ID:             uuid.New().String(),
		Title:          title,
		Price:          price,
		DurationDays:   5,
		DurationNights: 4,
		DestinationID:  dest.ID,
		Difficulty:     core.DifficultyEasy,
		IsActive:       true,
		Details: tour.Details{
			Highlights: core.StringList{},
			Inclusions: core.StringList{},
			Exclusions: core.StringList{},
		},
		Schedule:  tour.Schedule{MaxGroupSize: tour.DefaultGroupSize},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range mod {
		m(&pkg)
	}
	pkg, err := repo.CreatePackage(context.Background(), pkg, nil)
	if err != nil {
		t.Fatalf("CreatePackage() failed: %v", err)
	}
	return pkg
}

// CreatePromoCode creates an active code valid from yesterday for 30 days.
func CreatePromoCode(
	t *testing.T,
	repo promo.Repository,
	code, discountType string,
	value float64,
	mod ...func(*promo.PromoCode),
) promo.PromoCode {
	t.Helper()
	now := time.Now().UTC()
	p := promo.PromoCode{
		ID:            uuid.New().String(),
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: value,
		StartDate:     core.StartOfDay(now).AddDate(0, 0, -1),
		ExpiryDate:    core.StartOfDay(now).AddDate(0, 0, 30),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, m := range mod {
		m(&p)
	}
	p, err := repo.CreatePromoCode(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePromoCode() failed: %v", err)
	}
	return p
}

// CreateBooking inserts a pending booking of pkg for usr, travelling in 30 days.
func CreateBooking(
	t *testing.T,
	repo booking.Repository,
	usr user.User,
	pkg tour.Package,
	travelers int,
	mod ...func(*booking.Booking),
) booking.Booking {
	t.Helper()
	now := time.Now().UTC()
	total := core.RoundMoney(pkg.Price * float64(travelers))
	b := booking.Booking{
		ID:             uuid.New().String(),
		PackageID:      pkg.ID,
		UserID:         usr.ID,
		Status:         booking.StatusPending,
		PaymentStatus:  booking.PaymentPending,
		TravelDate:     core.StartOfDay(now).AddDate(0, 0, 30),
		Travelers:      travelers,
		SubtotalAmount: total,
		TotalAmount:    total,
		BookingDate:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, m := range mod {
		m(&b)
	}
	b, err := repo.CreateBooking(context.Background(), b)
	if err != nil {
		t.Fatalf("CreateBooking() failed: %v", err)
	}
	return b
}

func CreateBlog(t *testing.T, repo blog.Repository, author user.User, title, category string, published bool) blog.Blog {
	t.Helper()
	now := time.Now().UTC()
	b := blog.Blog{
		ID:        uuid.New().String(),
		Title:     title,
		AuthorID:  author.ID,
		Content:   title + " content",
		Excerpt:   title,
		Status:    blog.StatusDraft,
		Category:  category,
		Tags:      core.StringList{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if published {
		b.Publish(now)
	}
	b, err := repo.CreateBlog(context.Background(), b)
	if err != nil {
		t.Fatalf("CreateBlog() failed: %v", err)
	}
	return b
}

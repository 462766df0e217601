package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/dashboard"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/triptype"
	"github.com/vistavoyage/voyage/core/user"
)

const (
	adminPath     = APIPrefix + "/admin"
	adminAuthPath = adminPath + "/auth"
)

type AdminAuthService struct{ c *Client }

// Login stores the admin tokens on success; login is a username or an email.
func (s *AdminAuthService) Login(ctx context.Context, login, pwd string) (AdminLoginResponse, error) {
	res, err := send[AdminLoginResponse](ctx, s.c, http.MethodPost, adminAuthPath+"/login", map[string]string{"username": login, "password": pwd})
	if err != nil {
		return res, err
	}
	return res, s.c.SetTokens(ScopeAdmin, Tokens{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
}

func (s *AdminAuthService) Logout(ctx context.Context) error {
	return logout(ctx, s.c, ScopeAdmin, adminAuthPath+"/logout")
}

func (s *AdminAuthService) Me(ctx context.Context) (admin.Admin, error) {
	return get[admin.Admin](ctx, s.c, adminAuthPath+"/me", nil)
}

func (s *AdminAuthService) ChangePassword(ctx context.Context, cp admin.ChangePassword) error {
	return s.c.do(ctx, http.MethodPost, adminAuthPath+"/change-password", nil, cp, nil)
}

func (s *AdminAuthService) Create(ctx context.Context, na admin.NewAdmin) (admin.Admin, error) {
	return send[admin.Admin](ctx, s.c, http.MethodPost, adminAuthPath+"/create", na)
}

func (s *AdminAuthService) Admins(ctx context.Context, opts *ListOptions) (core.Paginated[admin.Admin], error) {
	return get[core.Paginated[admin.Admin]](ctx, s.c, adminAuthPath+"/admins", opts.values())
}

func (s *AdminAuthService) Roles(ctx context.Context) ([]admin.Role, error) {
	return get[[]admin.Role](ctx, s.c, adminAuthPath+"/roles", nil)
}

// Resource is the CRUD of one back-office collection.
type Resource[T any] struct {
	c    *Client
	path string
}

func newResource[T any](c *Client, name string) *Resource[T] {
	return &Resource[T]{c: c, path: adminPath + "/" + name}
}

func (r *Resource[T]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *Resource[T]) List(ctx context.Context, opts *ListOptions) (core.Paginated[T], error) {
	return get[core.Paginated[T]](ctx, r.c, r.path, opts.values())
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	return get[T](ctx, r.c, r.item(id), nil)
}

func (r *Resource[T]) Create(ctx context.Context, in interface{}) (T, error) {
	return send[T](ctx, r.c, http.MethodPost, r.path, in)
}

func (r *Resource[T]) Update(ctx context.Context, id string, in interface{}) (T, error) {
	return send[T](ctx, r.c, http.MethodPut, r.item(id), in)
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.item(id), nil, nil, nil)
}

// Toggle applies a parameterless PATCH action, e.g. "toggle-active".
func (r *Resource[T]) Toggle(ctx context.Context, id, action string) (T, error) {
	return send[T](ctx, r.c, http.MethodPatch, r.item(id)+"/"+action, nil)
}

// UploadImage attaches the image read from img to the object.
func (r *Resource[T]) UploadImage(ctx context.Context, id, filename string, img io.Reader) (UploadResponse[T], error) {
	return upload[UploadResponse[T]](ctx, r.c, r.item(id)+"/upload-image", filename, img)
}

// Upload stores an image that is not attached to any object yet.
func (r *Resource[T]) Upload(ctx context.Context, filename string, img io.Reader) (Upload, error) {
	return upload[Upload](ctx, r.c, r.path+"/upload-image", filename, img)
}

type AdminService struct {
	c *Client

	Destinations *Resource[destination.Destination]
	TripTypes    *Resource[triptype.TripType]
	Activities   *Resource[activity.Activity]
	Offers       *Resource[offer.Offer]
	Packages     *Resource[tour.Package]
	PromoCodes   *Resource[promo.PromoCode]
	Bookings     *Resource[booking.Booking]
	Blogs        *Resource[blog.Blog]
	Users        *Resource[user.User]
}

func newAdminService(c *Client) *AdminService {
	return &AdminService{
		c:            c,
		Destinations: newResource[destination.Destination](c, "destinations"),
		TripTypes:    newResource[triptype.TripType](c, "trip-types"),
		Activities:   newResource[activity.Activity](c, "activities"),
		Offers:       newResource[offer.Offer](c, "offers"),
		Packages:     newResource[tour.Package](c, "packages"),
		PromoCodes:   newResource[promo.PromoCode](c, "promo-codes"),
		Bookings:     newResource[booking.Booking](c, "bookings"),
		Blogs:        newResource[blog.Blog](c, "blogs"),
		Users:        newResource[user.User](c, "users"),
	}
}

func (s *AdminService) DashboardStats(ctx context.Context) (dashboard.Overview, error) {
	return get[dashboard.Overview](ctx, s.c, adminPath+"/dashboard/stats", nil)
}

func (s *AdminService) Revenue(ctx context.Context, days int) (dashboard.Revenue, error) {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	return get[dashboard.Revenue](ctx, s.c, adminPath+"/dashboard/revenue", q)
}

func (s *AdminService) RecentActivity(ctx context.Context, limit int) (dashboard.Recent, error) {
	return get[dashboard.Recent](ctx, s.c, adminPath+"/dashboard/recent", limitQuery(limit))
}

func (s *AdminService) SystemStats(ctx context.Context) (dashboard.System, error) {
	return get[dashboard.System](ctx, s.c, adminPath+"/system/stats", nil)
}

func (s *AdminService) PackageDetail(ctx context.Context, id string) (tour.PackageDetail, error) {
	return get[tour.PackageDetail](ctx, s.c, s.Packages.item(id), nil)
}

func (s *AdminService) PackageStats(ctx context.Context) (tour.Stats, error) {
	return get[tour.Stats](ctx, s.c, s.Packages.path+"/stats", nil)
}

func (s *AdminService) ActivityStats(ctx context.Context) (activity.Stats, error) {
	return get[activity.Stats](ctx, s.c, s.Activities.path+"/stats", nil)
}

func (s *AdminService) ActivityTypes(ctx context.Context) ([]string, error) {
	return items[string](ctx, s.c, s.Activities.path+"/types/list", nil)
}

func (s *AdminService) DifficultyLevels(ctx context.Context) ([]string, error) {
	return items[string](ctx, s.c, s.Activities.path+"/difficulty-levels/list", nil)
}

func (s *AdminService) OfferStats(ctx context.Context) (offer.Stats, error) {
	return get[offer.Stats](ctx, s.c, s.Offers.path+"/stats", nil)
}

func (s *AdminService) CurrentOffers(ctx context.Context, opts *ListOptions) (core.Paginated[offer.Offer], error) {
	return get[core.Paginated[offer.Offer]](ctx, s.c, s.Offers.path+"/active/current", opts.values())
}

func (s *AdminService) ExpiringOffers(ctx context.Context, opts *ListOptions) (core.Paginated[offer.Offer], error) {
	return get[core.Paginated[offer.Offer]](ctx, s.c, s.Offers.path+"/expiring/soon", opts.values())
}

func (s *AdminService) PromoCodeStats(ctx context.Context) (promo.Stats, error) {
	return get[promo.Stats](ctx, s.c, s.PromoCodes.path+"/stats", nil)
}

// CheckPromoCode validates code against amount without using it.
func (s *AdminService) CheckPromoCode(ctx context.Context, code string, amount float64) (promo.Validation, error) {
	q := url.Values{"amount": {strconv.FormatFloat(amount, 'f', -1, 64)}}
	return get[promo.Validation](ctx, s.c, s.PromoCodes.path+"/validate/"+url.PathEscape(code), q)
}

func (s *AdminService) BookingDetail(ctx context.Context, id string) (booking.Detail, error) {
	return get[booking.Detail](ctx, s.c, s.Bookings.item(id), nil)
}

func (s *AdminService) BookingStats(ctx context.Context) (booking.Stats, error) {
	return get[booking.Stats](ctx, s.c, s.Bookings.path+"/stats", nil)
}

func (s *AdminService) UpdateBookingStatus(ctx context.Context, id string, su booking.StatusUpdate) (booking.Booking, error) {
	return send[booking.Booking](ctx, s.c, http.MethodPatch, s.Bookings.item(id)+"/status", su)
}

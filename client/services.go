package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

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
)

// ListOptions are the query params of paginated lists. The zero value asks for the server defaults.
type ListOptions struct {
	Page     int
	Limit    int
	Search   string
	Ordering string
	// Filters holds resource-specific params, e.g. "is_active" or "destination_id".
	Filters map[string]string
}

func (o *ListOptions) values() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	if o.Ordering != "" {
		q.Set("ordering", o.Ordering)
	}
	for k, v := range o.Filters {
		q.Set(k, v)
	}
	return q
}

type (
	TokenPair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}

	LoginResponse struct {
		Message string `json:"message"`
		TokenPair
		User user.User `json:"user"`
	}

	AdminLoginResponse struct {
		Message string `json:"message"`
		TokenPair
		Admin admin.Admin `json:"admin"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}

	ItemsResponse[T any] struct {
		Items []T `json:"items"`
	}

	Upload struct {
		URL         string `json:"url"`
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	}

	// UploadResponse is the answer to an image attached to an object.
	UploadResponse[T any] struct {
		Message string `json:"message"`
		Upload  Upload `json:"upload"`
		Object  T      `json:"object"`
	}

	Health struct {
		Status string `json:"status"`
		Build  string `json:"build"`
	}
)

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}

func send[T any](ctx context.Context, c *Client, method, path string, in interface{}) (T, error) {
	var out T
	err := c.do(ctx, method, path, nil, in, &out)
	return out, err
}

func items[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	res, err := get[ItemsResponse[T]](ctx, c, path, query)
	return res.Items, err
}

// upload posts r as the multipart "file" field.
func upload[T any](ctx context.Context, c *Client, path, filename string, r io.Reader) (T, error) {
	var out T
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return out, errors.Wrap(err, "creating form file")
	}
	if _, err = io.Copy(fw, r); err != nil {
		return out, errors.Wrap(err, "copying file")
	}
	if err = w.Close(); err != nil {
		return out, errors.Wrap(err, "closing multipart writer")
	}
	err = c.send(ctx, http.MethodPost, path, nil, w.FormDataContentType(), body.Bytes(), &out)
	return out, err
}

func limitQuery(limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Public

type HealthService struct{ c *Client }

func (s *HealthService) Check(ctx context.Context) (Health, error) {
	// never cached
	var h Health
	data, err := s.c.roundTrip(ctx, ScopeUser, http.MethodGet, APIPrefix+"/health", APIPrefix+"/health", jsonContentType, nil)
	if err != nil {
		return h, err
	}
	return h, decode(data, &h)
}

type AuthService struct{ c *Client }

const authPath = APIPrefix + "/auth"

func (s *AuthService) Register(ctx context.Context, nu user.NewUser) (user.User, error) {
	return send[user.User](ctx, s.c, http.MethodPost, authPath+"/register", nu)
}

// Login stores the customer tokens on success.
func (s *AuthService) Login(ctx context.Context, email, pwd string) (LoginResponse, error) {
	res, err := send[LoginResponse](ctx, s.c, http.MethodPost, authPath+"/login", map[string]string{"email": email, "password": pwd})
	if err != nil {
		return res, err
	}
	return res, s.c.SetTokens(ScopeUser, Tokens{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken})
}

// Logout revokes the customer tokens server side, then forgets them whatever the outcome.
func (s *AuthService) Logout(ctx context.Context) error {
	return logout(ctx, s.c, ScopeUser, authPath+"/logout")
}

func logout(ctx context.Context, c *Client, scope Scope, path string) error {
	tokens, err := c.tokens.Get(scope)
	if err != nil {
		return errors.Wrap(err, "loading tokens")
	}
	var reqErr error
	if tokens.AccessToken != "" {
		reqErr = c.do(ctx, http.MethodPost, path, nil, refreshRequest{RefreshToken: tokens.RefreshToken}, nil)
	}
	if err = c.ClearTokens(scope); err != nil {
		return errors.Wrap(err, "clearing tokens")
	}
	return reqErr
}

func (s *AuthService) Profile(ctx context.Context) (user.User, error) {
	return get[user.User](ctx, s.c, authPath+"/profile", nil)
}

func (s *AuthService) UpdateProfile(ctx context.Context, uu user.UpdateUser) (user.User, error) {
	return send[user.User](ctx, s.c, http.MethodPatch, authPath+"/profile", uu)
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	res, err := send[MessageResponse](ctx, s.c, http.MethodPost, authPath+"/forgot-password", map[string]string{"email": email})
	return res.Message, err
}

// VerifyOTP returns the reset session ID to pass to ResetPassword.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	res, err := send[struct {
		SessionID string `json:"session_id"`
	}](ctx, s.c, http.MethodPost, authPath+"/verify-otp", map[string]string{"email": email, "otp": otp})
	return res.SessionID, err
}

func (s *AuthService) ResetPassword(ctx context.Context, rp user.ResetPassword) error {
	return s.c.do(ctx, http.MethodPost, authPath+"/reset-password", nil, rp, nil)
}

const publicPath = APIPrefix + "/user"

type PackageService struct{ c *Client }

func (s *PackageService) List(ctx context.Context, opts *ListOptions) (core.Paginated[tour.Package], error) {
	return get[core.Paginated[tour.Package]](ctx, s.c, publicPath+"/packages", opts.values())
}

func (s *PackageService) Featured(ctx context.Context, limit int) ([]tour.Package, error) {
	return items[tour.Package](ctx, s.c, publicPath+"/packages/featured", limitQuery(limit))
}

func (s *PackageService) Suggestions(ctx context.Context, term string) ([]tour.Suggestion, error) {
	res, err := get[struct {
		Suggestions []tour.Suggestion `json:"suggestions"`
	}](ctx, s.c, publicPath+"/packages/search/suggestions", url.Values{"q": {term}})
	return res.Suggestions, err
}

func (s *PackageService) Get(ctx context.Context, id string) (tour.PackageDetail, error) {
	return get[tour.PackageDetail](ctx, s.c, publicPath+"/packages/"+url.PathEscape(id), nil)
}

type DestinationService struct{ c *Client }

func (s *DestinationService) List(ctx context.Context, opts *ListOptions) (core.Paginated[destination.Destination], error) {
	return get[core.Paginated[destination.Destination]](ctx, s.c, publicPath+"/destinations", opts.values())
}

func (s *DestinationService) Get(ctx context.Context, id string) (destination.Destination, error) {
	return get[destination.Destination](ctx, s.c, publicPath+"/destinations/"+url.PathEscape(id), nil)
}

type OfferService struct{ c *Client }

func (s *OfferService) List(ctx context.Context, opts *ListOptions) (core.Paginated[offer.Offer], error) {
	return get[core.Paginated[offer.Offer]](ctx, s.c, publicPath+"/offers", opts.values())
}

func (s *OfferService) Get(ctx context.Context, id string) (offer.Offer, error) {
	return get[offer.Offer](ctx, s.c, publicPath+"/offers/"+url.PathEscape(id), nil)
}

type TripTypeService struct{ c *Client }

func (s *TripTypeService) List(ctx context.Context, opts *ListOptions) (core.Paginated[triptype.TripType], error) {
	return get[core.Paginated[triptype.TripType]](ctx, s.c, publicPath+"/trip-types", opts.values())
}

func (s *TripTypeService) Get(ctx context.Context, id string) (triptype.TripType, error) {
	return get[triptype.TripType](ctx, s.c, publicPath+"/trip-types/"+url.PathEscape(id), nil)
}

type ActivityService struct{ c *Client }

func (s *ActivityService) List(ctx context.Context, opts *ListOptions) (core.Paginated[activity.Activity], error) {
	return get[core.Paginated[activity.Activity]](ctx, s.c, publicPath+"/activities", opts.values())
}

func (s *ActivityService) Get(ctx context.Context, id string) (activity.Activity, error) {
	return get[activity.Activity](ctx, s.c, publicPath+"/activities/"+url.PathEscape(id), nil)
}

type PromoCodeService struct{ c *Client }

func (s *PromoCodeService) List(ctx context.Context, opts *ListOptions) (core.Paginated[promo.PromoCode], error) {
	return get[core.Paginated[promo.PromoCode]](ctx, s.c, publicPath+"/promo_codes", opts.values())
}

func (s *PromoCodeService) GetByCode(ctx context.Context, code string) (promo.PromoCode, error) {
	return get[promo.PromoCode](ctx, s.c, publicPath+"/promo_codes/code/"+url.PathEscape(code), nil)
}

func (s *PromoCodeService) Validate(ctx context.Context, req promo.ValidateRequest) (promo.Validation, error) {
	return send[promo.Validation](ctx, s.c, http.MethodPost, publicPath+"/promo_codes/validate", req)
}

// BookingService needs a logged in customer.
type BookingService struct{ c *Client }

const bookingsPath = publicPath + "/bookings"

func (s *BookingService) List(ctx context.Context, opts *ListOptions) (core.Paginated[booking.Booking], error) {
	return get[core.Paginated[booking.Booking]](ctx, s.c, bookingsPath, opts.values())
}

func (s *BookingService) Get(ctx context.Context, id string) (booking.Detail, error) {
	return get[booking.Detail](ctx, s.c, bookingsPath+"/"+url.PathEscape(id), nil)
}

func (s *BookingService) Create(ctx context.Context, nb booking.NewBooking) (booking.Booking, error) {
	return send[booking.Booking](ctx, s.c, http.MethodPost, bookingsPath, nb)
}

func (s *BookingService) ValidatePromo(ctx context.Context, req promo.ValidateRequest) (promo.Validation, error) {
	return send[promo.Validation](ctx, s.c, http.MethodPost, bookingsPath+"/validate-promo", req)
}

func (s *BookingService) Cancel(ctx context.Context, id, reason string) (booking.Booking, error) {
	return send[booking.Booking](ctx, s.c, http.MethodPost, bookingsPath+"/"+url.PathEscape(id)+"/cancel", booking.Cancel{Reason: reason})
}

func (s *BookingService) Pay(ctx context.Context, id string, p booking.Pay) (booking.Detail, error) {
	return send[booking.Detail](ctx, s.c, http.MethodPost, bookingsPath+"/"+url.PathEscape(id)+"/payment", p)
}

type BlogService struct{ c *Client }

const myBlogsPath = publicPath + "/my-blogs"

func (s *BlogService) List(ctx context.Context, opts *ListOptions) (core.Paginated[blog.Blog], error) {
	return get[core.Paginated[blog.Blog]](ctx, s.c, publicPath+"/blogs", opts.values())
}

func (s *BlogService) Featured(ctx context.Context, limit int) ([]blog.Blog, error) {
	return items[blog.Blog](ctx, s.c, publicPath+"/blogs/featured", limitQuery(limit))
}

func (s *BlogService) Recent(ctx context.Context, limit int) ([]blog.Blog, error) {
	return items[blog.Blog](ctx, s.c, publicPath+"/blogs/recent", limitQuery(limit))
}

func (s *BlogService) Categories(ctx context.Context) ([]blog.CategoryCount, error) {
	return get[[]blog.CategoryCount](ctx, s.c, publicPath+"/blogs/categories", nil)
}

func (s *BlogService) Get(ctx context.Context, id string) (blog.Blog, error) {
	return get[blog.Blog](ctx, s.c, publicPath+"/blogs/"+url.PathEscape(id), nil)
}

func (s *BlogService) Mine(ctx context.Context, opts *ListOptions) (core.Paginated[blog.Blog], error) {
	return get[core.Paginated[blog.Blog]](ctx, s.c, myBlogsPath, opts.values())
}

func (s *BlogService) GetMine(ctx context.Context, id string) (blog.Blog, error) {
	return get[blog.Blog](ctx, s.c, myBlogsPath+"/"+url.PathEscape(id), nil)
}

func (s *BlogService) Create(ctx context.Context, in blog.Input) (blog.Blog, error) {
	return send[blog.Blog](ctx, s.c, http.MethodPost, myBlogsPath, in)
}

func (s *BlogService) Update(ctx context.Context, id string, in blog.Input) (blog.Blog, error) {
	return send[blog.Blog](ctx, s.c, http.MethodPut, myBlogsPath+"/"+url.PathEscape(id), in)
}

func (s *BlogService) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, myBlogsPath+"/"+url.PathEscape(id), nil, nil, nil)
}

func (s *BlogService) TogglePublish(ctx context.Context, id string) (blog.Blog, error) {
	return send[blog.Blog](ctx, s.c, http.MethodPatch, myBlogsPath+"/"+url.PathEscape(id)+"/publish", nil)
}

package echoapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/tests"
)

func Test_catalogApi_packages(t *testing.T) {
	env := setup(t)
	kenya := testutil.CreateDestination(t, env.destRepo, "Maasai Mara", "Kenya", true)
	peru := testutil.CreateDestination(t, env.destRepo, "Cusco", "Peru", true)

	safari := testutil.CreatePackage(t, env.pkgRepo, kenya, "Big Five Safari", 1200, func(p *tour.Package) {
		p.IsFeatured = true
	})
	trek := testutil.CreatePackage(t, env.pkgRepo, peru, "Inca Trail Trek", 900)
	hidden := testutil.CreatePackage(t, env.pkgRepo, peru, "Closed Trek", 500, func(p *tour.Package) {
		p.IsActive = false
	})

	listIDs := func(t *testing.T, query url.Values) []string {
		rec := env.do(http.MethodGet, "/api/v1/user/packages?"+query.Encode(), "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res core.Paginated[tour.Package]
		decode(t, rec, &res)
		ids := make([]string, 0, len(res.Items))
		for _, p := range res.Items {
			ids = append(ids, p.ID)
		}
		return ids
	}

	t.Run("active only", func(t *testing.T) {
		ids := listIDs(t, url.Values{})
		assert.ElementsMatch(t, []string{safari.ID, trek.ID}, ids)
		assert.NotContains(t, ids, hidden.ID)
	})
	t.Run("inactive filter is ignored", func(t *testing.T) {
		ids := listIDs(t, url.Values{"is_active": {"false"}})
		assert.NotContains(t, ids, hidden.ID)
	})
	t.Run("search", func(t *testing.T) {
		assert.Equal(t, []string{safari.ID}, listIDs(t, url.Values{"search": {"safari"}}))
		assert.Equal(t, []string{trek.ID}, listIDs(t, url.Values{"search": {"cusco"}}))
	})
	t.Run("price range", func(t *testing.T) {
		assert.Equal(t, []string{trek.ID}, listIDs(t, url.Values{"max_price": {"1000"}}))
		assert.Equal(t, []string{safari.ID}, listIDs(t, url.Values{"min_price": {"1000"}}))
	})
	t.Run("ordering", func(t *testing.T) {
		assert.Equal(t, []string{trek.ID, safari.ID}, listIDs(t, url.Values{"ordering": {"price"}}))
		assert.Equal(t, []string{safari.ID, trek.ID}, listIDs(t, url.Values{"ordering": {"-price"}}))
	})
	t.Run("pagination", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/user/packages?limit=1&page=2&ordering=price", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var res core.Paginated[tour.Package]
		decode(t, rec, &res)
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, 2, res.TotalPages)
		assert.Equal(t, 2, res.Page)
		require.Len(t, res.Items, 1)
		assert.Equal(t, safari.ID, res.Items[0].ID)
	})
	t.Run("featured", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/user/packages/featured", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var res ItemsResponse[tour.Package]
		decode(t, rec, &res)
		require.Len(t, res.Items, 1)
		assert.Equal(t, safari.ID, res.Items[0].ID)
	})
	t.Run("suggestions", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/v1/user/packages/search/suggestions?q=tr", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var res SuggestionsResponse
		decode(t, rec, &res)
		require.NotEmpty(t, res.Suggestions)
		for _, s := range res.Suggestions {
			assert.NotEqual(t, hidden.Title, s.Title)
		}
	})

	tests := []httpTest{
		{
			name:     "detail",
			method:   http.MethodGet,
			path:     "/api/v1/user/packages/" + trek.ID,
			wantCode: http.StatusOK,
		},
		{
			name:     "inactive detail",
			method:   http.MethodGet,
			path:     "/api/v1/user/packages/" + hidden.ID,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: tour.ErrNotFound.Error()}),
		},
		{
			name:     "unknown detail",
			method:   http.MethodGet,
			path:     "/api/v1/user/packages/unknown",
			wantCode: http.StatusNotFound,
		},
	}
	runHTTPTests(t, env, tests)
}

func Test_catalogApi_destinations(t *testing.T) {
	env := setup(t)
	mara := testutil.CreateDestination(t, env.destRepo, "Maasai Mara", "Kenya", true)
	closed := testutil.CreateDestination(t, env.destRepo, "Closed Island", "Nowhere", false)

	rec := env.do(http.MethodGet, "/api/v1/user/destinations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res core.Paginated[destination.Destination]
	decode(t, rec, &res)
	require.Len(t, res.Items, 1)
	assert.Equal(t, mara.ID, res.Items[0].ID)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "active",
			method:   http.MethodGet,
			path:     "/api/v1/user/destinations/" + mara.ID,
			wantCode: http.StatusOK,
		},
		{
			name:     "inactive",
			method:   http.MethodGet,
			path:     "/api/v1/user/destinations/" + closed.ID,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: destination.ErrNotFound.Error()}),
		},
	})
}

func Test_catalogApi_promoCodes(t *testing.T) {
	env := setup(t)
	summer := testutil.CreatePromoCode(t, env.promoRepo, "SUMMER10", promo.DiscountPercentage, 10)
	testutil.CreatePromoCode(t, env.promoRepo, "OFF", promo.DiscountFixed, 50, func(p *promo.PromoCode) {
		p.IsActive = false
	})

	rec := env.do(http.MethodGet, "/api/v1/user/promo_codes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res core.Paginated[promo.PromoCode]
	decode(t, rec, &res)
	require.Len(t, res.Items, 1)
	assert.Equal(t, summer.ID, res.Items[0].ID)

	rec = env.do(http.MethodGet, "/api/v1/user/promo_codes/code/summer10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/api/v1/user/promo_codes/code/OFF", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	validate := func(t *testing.T, req promo.ValidateRequest) promo.Validation {
		rec := env.do(http.MethodPost, "/api/v1/user/promo_codes/validate", "", marshalObj(t, req))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var v promo.Validation
		decode(t, rec, &v)
		return v
	}

	t.Run("valid", func(t *testing.T) {
		v := validate(t, promo.ValidateRequest{Code: "summer10", Amount: 250})
		assert.True(t, v.IsValid)
		assert.Equal(t, 25.0, v.DiscountAmount)
		assert.Equal(t, 225.0, v.FinalAmount)
		assert.Equal(t, summer.ID, v.PromoCodeID)
	})
	t.Run("inactive", func(t *testing.T) {
		v := validate(t, promo.ValidateRequest{Code: "OFF", Amount: 250})
		assert.False(t, v.IsValid)
		assert.Equal(t, 250.0, v.FinalAmount)
	})
	t.Run("unknown", func(t *testing.T) {
		v := validate(t, promo.ValidateRequest{Code: "NOPE", Amount: 250})
		assert.False(t, v.IsValid)
		assert.Equal(t, "promo code not found", v.Message)
	})
	t.Run("missing code", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/v1/user/promo_codes/validate", "", []byte(`{"amount": 10}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_health(t *testing.T) {
	env := setup(t)
	rec := env.do(http.MethodGet, "/api/v1/health", "")
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marshalObj(t, map[string]string{"status": "ok", "build": env.conf.Build}),
	}, rec)
}

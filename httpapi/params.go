package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-carmarket/failure"
	"github.com/goliatone/go-carmarket/marketplace"
)

func intParam(q url.Values, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, failure.Validation(MsgInvalidRequest, name+" must be an integer")
	}
	return n, nil
}

func optionalInt(q url.Values, name string) (*int, error) {
	if strings.TrimSpace(q.Get(name)) == "" {
		return nil, nil
	}
	n, err := intParam(q, name, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalFloat(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, failure.Validation(MsgInvalidRequest, name+" must be a number")
	}
	return &f, nil
}

// parseFilters reads SearchFilters from query parameters named after the
// filter JSON fields.
func parseFilters(q url.Values) (marketplace.SearchFilters, error) {
	f := marketplace.SearchFilters{
		Make:         q.Get("make"),
		Model:        q.Get("model"),
		FuelType:     q.Get("fuelType"),
		Transmission: q.Get("transmission"),
		BodyType:     q.Get("bodyType"),
		Condition:    q.Get("condition"),
		Location:     q.Get("location"),
		Sort:         marketplace.SortOrder(q.Get("sort")),
	}

	var err error
	if f.MinYear, err = intParam(q, "minYear", 0); err != nil {
		return f, err
	}
	if f.MaxYear, err = intParam(q, "maxYear", 0); err != nil {
		return f, err
	}
	if f.MinPrice, err = optionalFloat(q, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = optionalFloat(q, "maxPrice"); err != nil {
		return f, err
	}
	if f.MaxMileage, err = optionalInt(q, "maxMileage"); err != nil {
		return f, err
	}
	if f.Page, err = intParam(q, "page", 0); err != nil {
		return f, err
	}
	if f.Limit, err = intParam(q, "limit", 0); err != nil {
		return f, err
	}
	return f, nil
}

// bearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when there is none.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

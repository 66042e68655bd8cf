package marketplace

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-carmarket/guard"
	"github.com/goliatone/go-carmarket/remote"
)

// Accepted enumeration values.
var (
	FuelTypes     = []string{"petrol", "diesel", "electric", "hybrid"}
	Transmissions = []string{"automatic", "manual"}
	Conditions    = []string{"new", "used", "certified"}
	BodyTypes     = []string{"sedan", "suv", "hatchback", "coupe", "convertible", "wagon", "pickup", "van"}
)

// normalize sanitizes free text, lowercases enumerations and applies the
// default page size. It runs before validation so that the cache key is
// derived from the values actually queried.
func (f SearchFilters) normalize() SearchFilters {
	f.Make = guard.SanitizeSearchText(f.Make)
	f.Model = guard.SanitizeSearchText(f.Model)
	f.Location = guard.SanitizeSearchText(f.Location)
	f.FuelType = strings.ToLower(strings.TrimSpace(f.FuelType))
	f.Transmission = strings.ToLower(strings.TrimSpace(f.Transmission))
	f.BodyType = strings.ToLower(strings.TrimSpace(f.BodyType))
	f.Condition = strings.ToLower(strings.TrimSpace(f.Condition))
	f.Sort = SortOrder(strings.ToLower(strings.TrimSpace(string(f.Sort))))
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	if f.Limit == 0 {
		f.Limit = DefaultPageSize
	}
	return f
}

// Validate checks ranges, enumerations and pagination. now bounds the
// accepted model years.
func (f SearchFilters) Validate(now time.Time) error {
	return guard.Check(guard.MsgInvalidFilters, validation.ValidateStruct(&f,
		validation.Field(&f.FuelType, guard.OneOf("fuelType", FuelTypes...)),
		validation.Field(&f.Transmission, guard.OneOf("transmission", Transmissions...)),
		validation.Field(&f.BodyType, guard.OneOf("bodyType", BodyTypes...)),
		validation.Field(&f.Condition, guard.OneOf("condition", Conditions...)),
		validation.Field(&f.MinYear, guard.YearRule("minYear", now),
			validation.By(func(any) error {
				if f.MinYear != 0 && f.MaxYear != 0 && f.MinYear > f.MaxYear {
					return errors.New("minYear must be less than or equal to maxYear")
				}
				return nil
			}),
		),
		validation.Field(&f.MaxYear, guard.YearRule("maxYear", now)),
		validation.Field(&f.MinPrice, guard.NonNegative[float64]("minPrice"),
			validation.By(func(any) error {
				if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
					return errors.New("minPrice must be less than or equal to maxPrice")
				}
				return nil
			}),
		),
		validation.Field(&f.MaxPrice, guard.NonNegative[float64]("maxPrice")),
		validation.Field(&f.MaxMileage, guard.NonNegative[int]("maxMileage")),
		validation.Field(&f.Sort,
			validation.In(SortNewest, SortPriceAsc, SortPriceDesc, SortMileageAsc, SortYearDesc).
				Error("sort must be one of newest, price_asc, price_desc, mileage_asc, year_desc"),
		),
		validation.Field(&f.Page,
			validation.Min(0).Error("page must be a non-negative integer"),
			guard.PageRule(f.Limit),
		),
		validation.Field(&f.Limit,
			validation.Min(1).Error("limit must be between 1 and 100"),
			validation.Max(guard.MaxLimit).Error("limit must be between 1 and 100"),
		),
	))
}

func (f SearchFilters) query() *remote.Query {
	q := activeListings()

	for _, c := range []struct{ column, text string }{
		{"make", f.Make},
		{"model", f.Model},
		{"location", f.Location},
	} {
		if c.text != "" {
			q.ILike(c.column, remote.ContainsPattern(c.text))
		}
	}
	for _, c := range []struct{ column, value string }{
		{"fuel_type", f.FuelType},
		{"transmission", f.Transmission},
		{"body_type", f.BodyType},
		{"condition", f.Condition},
	} {
		if c.value != "" {
			q.Eq(c.column, c.value)
		}
	}

	if f.MinYear != 0 {
		q.Gte("year", f.MinYear)
	}
	if f.MaxYear != 0 {
		q.Lte("year", f.MaxYear)
	}
	if f.MinPrice != nil {
		q.Gte("price", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q.Lte("price", *f.MaxPrice)
	}
	if f.MaxMileage != nil {
		q.Lte("mileage", *f.MaxMileage)
	}

	switch f.Sort {
	case SortPriceAsc:
		q.Order("price", true)
	case SortPriceDesc:
		q.Order("price", false)
	case SortMileageAsc:
		q.Order("mileage", true)
	case SortYearDesc:
		q.Order("year", false)
	}
	q.Order("created_at", false).Order("id", true)

	offset := f.Page * f.Limit
	return q.Range(offset, offset+f.Limit-1)
}

// Validate checks a listing before it is inserted.
func (in NewListing) Validate(now time.Time) error {
	return guard.Check(guard.MsgInvalidListing, validation.ValidateStruct(&in,
		validation.Field(&in.Make, validation.Required.Error("make is required"),
			validation.RuneLength(1, 50).Error("make must be at most 50 characters")),
		validation.Field(&in.Model, validation.Required.Error("model is required"),
			validation.RuneLength(1, 50).Error("model must be at most 50 characters")),
		validation.Field(&in.Year, validation.Required.Error("year is required"), guard.YearRule("year", now)),
		validation.Field(&in.Price, guard.NonNegative[float64]("price")),
		validation.Field(&in.Mileage, guard.NonNegative[int]("mileage")),
		validation.Field(&in.Condition, guard.OneOf("condition", Conditions...)),
		validation.Field(&in.FuelType, guard.OneOf("fuelType", FuelTypes...)),
		validation.Field(&in.Transmission, guard.OneOf("transmission", Transmissions...)),
		validation.Field(&in.BodyType, guard.OneOf("bodyType", BodyTypes...)),
		validation.Field(&in.DealerID, validation.RuneLength(0, guard.MaxItemID).Error("dealerId must be at most 64 characters")),
	))
}

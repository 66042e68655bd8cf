// Package guard holds the local checks every marketplace request passes
// before a cache key is derived or the remote service is called.
package guard

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/goliatone/go-carmarket/failure"
)

const (
	MaxLimit    = 100
	MinYear     = 1900
	MaxItemID   = 64
	MinPassword = 6
)

// Item types accepted by bookmarks.
const (
	ItemListing = "listing"
	ItemDealer  = "dealer"
)

// Messages used as the failure summary.
const (
	MsgInvalidPagination  = "Invalid pagination parameters"
	MsgInvalidFilters     = "Invalid search filters"
	MsgInvalidCredentials = "Invalid email or password"
	MsgInvalidItem        = "Invalid bookmark item"
	MsgInvalidListing     = "Invalid listing"
	MsgInvalidID          = "Invalid identifier"
)

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ValidatePagination requires page >= 0 and 1 <= limit <= MaxLimit.
func ValidatePagination(page, limit int) error {
	p := pagination{Page: page, Limit: limit}
	limitMsg := "limit must be between 1 and 100"
	return Check(MsgInvalidPagination, validation.ValidateStruct(&p,
		validation.Field(&p.Page,
			validation.Min(0).Error("page must be a non-negative integer"),
			PageRule(p.Limit),
		),
		validation.Field(&p.Limit,
			validation.Required.Error(limitMsg),
			validation.Min(1).Error(limitMsg),
			validation.Max(MaxLimit).Error(limitMsg),
		),
	))
}

// PageRule rejects pages whose row range page*limit .. page*limit+limit-1
// does not fit in an int.
func PageRule(limit int) validation.Rule {
	return validation.By(func(value any) error {
		page, _ := value.(int)
		if limit > 0 && page > (math.MaxInt-limit)/limit {
			return errors.New("page is too large for the requested limit")
		}
		return nil
	})
}

// ValidateID rejects empty or oversized identifiers.
func ValidateID(field, id string) error {
	return Check(MsgInvalidID, validation.Errors{
		field: validation.Validate(strings.TrimSpace(id),
			validation.Required.Error(field+" is required"),
			validation.RuneLength(1, MaxItemID).Error(field+" must be at most 64 characters"),
		),
	}.Filter())
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidateCredentials checks the email format and password length.
func ValidateCredentials(email, password string) error {
	c := credentials{Email: strings.TrimSpace(email), Password: password}
	return Check(MsgInvalidCredentials, validation.ValidateStruct(&c,
		validation.Field(&c.Email,
			validation.Required.Error("email is required"),
			is.EmailFormat.Error("email must be a valid email address"),
		),
		validation.Field(&c.Password,
			validation.Required.Error("password is required"),
			validation.RuneLength(MinPassword, 0).Error("password must be at least 6 characters"),
		),
	))
}

type bookmarkItem struct {
	ItemType string `json:"itemType"`
	ItemID   string `json:"itemId"`
}

// ValidateBookmarkItem checks a bookmark target.
func ValidateBookmarkItem(itemType, itemID string) error {
	b := bookmarkItem{ItemType: itemType, ItemID: strings.TrimSpace(itemID)}
	return Check(MsgInvalidItem, validation.ValidateStruct(&b,
		validation.Field(&b.ItemType,
			validation.Required.Error("itemType is required"),
			validation.In(ItemListing, ItemDealer).Error("itemType must be one of listing, dealer"),
		),
		validation.Field(&b.ItemID,
			validation.Required.Error("itemId is required"),
			validation.RuneLength(1, MaxItemID).Error("itemId must be at most 64 characters"),
		),
	))
}

// YearRule accepts years in [MinYear, now.Year()+1]. Zero is treated as unset.
func YearRule(field string, now time.Time) validation.Rule {
	maxYear := now.Year() + 1
	msg := field + " must be between 1900 and " + strconv.Itoa(maxYear)
	return validation.By(func(value any) error {
		year, _ := value.(int)
		if year == 0 {
			return nil
		}
		if year < MinYear || year > maxYear {
			return errors.New(msg)
		}
		return nil
	})
}

// NonNegative rejects negative numbers, including behind pointers. T must
// match the field type.
func NonNegative[T int | float64](field string) validation.Rule {
	var zero T
	return validation.Min(zero).Error(field + " must be non-negative")
}

// OneOf restricts a string to values, allowing the empty string.
func OneOf(field string, values ...string) validation.Rule {
	allowed := make([]any, len(values))
	for i, v := range values {
		allowed[i] = v
	}
	return validation.In(allowed...).Error(field + " must be one of " + strings.Join(values, ", "))
}

// Check converts an ozzo-validation result into a VALIDATION_ERROR whose
// detail lists every failed constraint, sorted by field.
func Check(message string, err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return failure.Validation(message, err.Error())
	}

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	details := make([]string, 0, len(fields))
	for _, field := range fields {
		details = append(details, errs[field].Error())
	}
	return failure.Validation(message, strings.Join(details, "; "))
}

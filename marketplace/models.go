package marketplace

import (
	"slices"
	"time"

	"github.com/uptrace/bun"
)

// Collection names in the remote service.
const (
	TableListings  = "listings"
	TableDealers   = "dealers"
	TableReviews   = "reviews"
	TableBookmarks = "bookmarks"
)

// Listing statuses.
const (
	StatusActive = "active"
	StatusSold   = "sold"
	StatusDraft  = "draft"
)

// RelationDealer expands a listing with its dealer summary.
const RelationDealer = "Dealer"

type Dealer struct {
	bun.BaseModel `bun:"table:dealers,alias:d" json:"-" msgpack:"-"`

	ID       string  `bun:"id,pk" json:"id"`
	Name     string  `bun:"name,notnull" json:"name"`
	Location string  `bun:"location" json:"location"`
	Rating   float64 `bun:"rating" json:"rating"`
	Verified bool    `bun:"verified" json:"verified"`
	Phone    string  `bun:"phone" json:"phone,omitempty"`
}

type Listing struct {
	bun.BaseModel `bun:"table:listings,alias:l" json:"-" msgpack:"-"`

	ID           string    `bun:"id,pk" json:"id"`
	Make         string    `bun:"make,notnull" json:"make"`
	Model        string    `bun:"model,notnull" json:"model"`
	Year         int       `bun:"year" json:"year"`
	Price        float64   `bun:"price" json:"price"`
	Mileage      int       `bun:"mileage" json:"mileage"`
	Condition    string    `bun:"condition" json:"condition"`
	FuelType     string    `bun:"fuel_type" json:"fuel_type"`
	Transmission string    `bun:"transmission" json:"transmission"`
	BodyType     string    `bun:"body_type" json:"body_type"`
	Location     string    `bun:"location" json:"location"`
	Description  string    `bun:"description" json:"description"`
	Images       []string  `bun:"images" json:"images"`
	Status       string    `bun:"status,notnull" json:"status"`
	Featured     bool      `bun:"featured" json:"featured"`
	Views        int       `bun:"views" json:"views"`
	DealerID     string    `bun:"dealer_id" json:"dealer_id"`
	Dealer       *Dealer   `bun:"rel:belongs-to,join:dealer_id=id" json:"dealer,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

func (l Listing) clone() Listing {
	l.Images = slices.Clone(l.Images)
	if l.Dealer != nil {
		dealer := *l.Dealer
		l.Dealer = &dealer
	}
	return l
}

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r" json:"-" msgpack:"-"`

	ID        string    `bun:"id,pk" json:"id"`
	ListingID string    `bun:"listing_id,notnull" json:"listing_id"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	Rating    int       `bun:"rating" json:"rating"`
	Title     string    `bun:"title" json:"title"`
	Body      string    `bun:"body" json:"body"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Bookmark is unique per user and item.
type Bookmark struct {
	bun.BaseModel `bun:"table:bookmarks,alias:b" json:"-" msgpack:"-"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull,unique:bookmark_item" json:"user_id"`
	ItemType  string    `bun:"item_type,notnull,unique:bookmark_item" json:"item_type"`
	ItemID    string    `bun:"item_id,notnull,unique:bookmark_item" json:"item_id"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// SortOrder selects the ordering of filtered searches.
type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortPriceAsc   SortOrder = "price_asc"
	SortPriceDesc  SortOrder = "price_desc"
	SortMileageAsc SortOrder = "mileage_asc"
	SortYearDesc   SortOrder = "year_desc"
)

// SearchFilters is the structured search request. Zero values and nil
// pointers mean "no constraint".
type SearchFilters struct {
	Make         string    `json:"make,omitempty"`
	Model        string    `json:"model,omitempty"`
	FuelType     string    `json:"fuelType,omitempty"`
	Transmission string    `json:"transmission,omitempty"`
	BodyType     string    `json:"bodyType,omitempty"`
	Condition    string    `json:"condition,omitempty"`
	Location     string    `json:"location,omitempty"`
	MinYear      int       `json:"minYear,omitempty"`
	MaxYear      int       `json:"maxYear,omitempty"`
	MinPrice     *float64  `json:"minPrice,omitempty"`
	MaxPrice     *float64  `json:"maxPrice,omitempty"`
	MaxMileage   *int      `json:"maxMileage,omitempty"`
	Sort         SortOrder `json:"sort,omitempty"`
	Page         int       `json:"page"`
	Limit        int       `json:"limit"`
}

// NewListing is the input to CreateListing.
type NewListing struct {
	Make         string   `json:"make"`
	Model        string   `json:"model"`
	Year         int      `json:"year"`
	Price        float64  `json:"price"`
	Mileage      int      `json:"mileage"`
	Condition    string   `json:"condition"`
	FuelType     string   `json:"fuel_type"`
	Transmission string   `json:"transmission"`
	BodyType     string   `json:"body_type"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	DealerID     string   `json:"dealer_id"`
	Featured     bool     `json:"featured"`
}

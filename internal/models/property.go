package models

import "time"

// PropertyType enumerates the supported dwelling kinds.
type PropertyType int

const (
	PropertyTypeHouse     PropertyType = 1
	PropertyTypeApartment PropertyType = 2
)

// String returns the string representation of a PropertyType
func (t PropertyType) String() string {
	switch t {
	case PropertyTypeHouse:
		return "house"
	case PropertyTypeApartment:
		return "apartment"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known property types.
func (t PropertyType) Valid() bool {
	return t == PropertyTypeHouse || t == PropertyTypeApartment
}

type Property struct {
	ID            int64            `json:"id" gorm:"primaryKey"`
	Price         int              `json:"price"`
	BedroomCount  int              `json:"bedroom_count"`
	BathroomCount int              `json:"bathroom_count"`
	PropertyType  PropertyType     `json:"property_type"`
	RegionID      *int64           `json:"region_id"`
	Region        *Region          `json:"region,omitempty" gorm:"foreignKey:RegionID"`
	AverageScore  float64          `json:"average_score"`
	AvailableDate *time.Time       `json:"available_date"`
	PublishedAt   time.Time        `json:"published_at"`
	CreatedAt     time.Time        `json:"created_at"`
	CommuteTime   *int             `json:"commute_time,omitempty" gorm:"-"`
	Commutes      []PropertySchool `json:"-" gorm:"foreignKey:PropertyID"`
}

// Region is a suburb-level grouping. Names are lowercase hyphenated tokens
// (e.g. "kingsford", "wolli-creek") and matched by prefix in searches.
type Region struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

type School struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}

// PropertySchool carries the commute time in minutes from one property to one
// school. A nil CommuteTime means the commute has not been computed yet.
type PropertySchool struct {
	PropertyID  int64  `json:"property_id" gorm:"primaryKey;autoIncrement:false"`
	SchoolID    int64  `json:"school_id" gorm:"primaryKey;autoIncrement:false"`
	SchoolName  string `json:"school_name" gorm:"-"`
	CommuteTime *int   `json:"commute_time"`
}

func (PropertySchool) TableName() string {
	return "property_schools"
}

// RegionStats holds the derived market statistics for one region. All numeric
// fields are rounded to 2 decimal places and never negative; a region with no
// data reports zeros rather than nulls.
type RegionStats struct {
	RegionName       string  `json:"region_name"`
	AvgPricePerRoom  float64 `json:"avg_price_per_room"`
	AvgCommuteTime   float64 `json:"avg_commute_time"`
	TotalProperties  int     `json:"total_properties"`
	AvgPropertyPrice float64 `json:"avg_property_price"`
}

// StatsResponse is the cacheable payload served for a regional stats request.
// CacheHit is always false when written to the cache and flipped to true by
// the reader on a hit.
type StatsResponse struct {
	Regions   []RegionStats `json:"regions"`
	Timestamp time.Time     `json:"timestamp"`
	CacheHit  bool          `json:"cache_hit"`
}

// TopRegion annotates one of the most-matched regions of a search.
type TopRegion struct {
	RegionName     string  `json:"region_name"`
	Count          int     `json:"count"`
	AveragePrice   float64 `json:"average_price"`
	AvgCommuteTime float64 `json:"avg_commute_time"`
}

// SearchResult is the full response of a property search: one page of
// properties plus aggregates computed over the whole filtered set.
type SearchResult struct {
	Properties         []Property  `json:"properties"`
	TotalCount         int         `json:"total_count"`
	FilteredCount      int         `json:"filtered_count"`
	AveragePrice       float64     `json:"average_price"`
	AverageCommuteTime float64     `json:"average_commute_time"`
	TopRegions         []TopRegion `json:"top_regions"`
}

// PropertyAggregate is the aggregate a store computes over a filtered set.
type PropertyAggregate struct {
	Count          int
	AvgPrice       float64
	AvgCommuteTime float64
}

// RegionGroup is one row of a group-by-region aggregate.
type RegionGroup struct {
	RegionID   int64
	RegionName string
	Count      int
	AvgPrice   float64
}

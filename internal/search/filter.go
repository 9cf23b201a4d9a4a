package search

import "time"

// PropertyFilter is the compiled predicate set the storage collaborator
// consumes. All dimensions are AND-combined; nil pointers and empty slices
// impose no constraint. TargetSchool is always set: every search requires a
// matching commute row to the target school.
type PropertyFilter struct {
	TargetSchool   string
	MinPrice       *int
	MaxPrice       *int
	MinBedrooms    *int
	MaxBedrooms    *int
	MinBathrooms   *int
	MaxBathrooms   *int
	MinCommuteTime *int
	MaxCommuteTime *int
	PropertyType   *int
	MinRating      *float64

	// RegionPrefixes match the region name by prefix, OR-combined.
	RegionPrefixes []string

	// MoveInDate constrains availableDate <= MoveInDate.
	MoveInDate *time.Time

	// PublishedAfter constrains publishedAt >= PublishedAfter. It is set by
	// internal callers for freshness filtering, never from user input.
	PublishedAfter *time.Time
}

// SchoolOnly returns the filter reduced to its mandatory school constraint.
// It is the denominator filter for totalCount: every property with a known
// commute to the target school, regardless of the other dimensions.
func (f PropertyFilter) SchoolOnly() PropertyFilter {
	return PropertyFilter{TargetSchool: f.TargetSchool}
}

// Compile deterministically turns a normalized preference into the predicate
// set and ordering the storage collaborator executes.
func Compile(np *NormalizedPreference) (PropertyFilter, []SortSpec) {
	filter := PropertyFilter{
		TargetSchool:   np.TargetSchool,
		MinPrice:       np.MinPrice,
		MaxPrice:       np.MaxPrice,
		MinBedrooms:    np.MinBedrooms,
		MaxBedrooms:    np.MaxBedrooms,
		MinBathrooms:   np.MinBathrooms,
		MaxBathrooms:   np.MaxBathrooms,
		MinCommuteTime: np.MinCommuteTime,
		MaxCommuteTime: np.MaxCommuteTime,
		MinRating:      np.MinRating,
		RegionPrefixes: np.RegionTokens,
		MoveInDate:     np.MoveInDate,
	}

	if np.PropertyType != nil {
		pt := int(*np.PropertyType)
		filter.PropertyType = &pt
	}

	return filter, np.Sort
}

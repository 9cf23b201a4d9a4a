package search

import (
	"regexp"
	"strings"
	"time"

	"qrent/server/internal/apperrors"
	"qrent/server/internal/models"
)

const (
	// MaxPageSize caps how many properties a single page may return.
	MaxPageSize = 100

	// SortAsc and SortDesc are the only accepted sort directions.
	SortAsc  = "asc"
	SortDesc = "desc"
)

// sortableColumns is the allow-list of columns a preference may order by.
// It is maintained here, decoupled from the storage schema.
var sortableColumns = map[string]bool{
	"price":          true,
	"bedroom_count":  true,
	"bathroom_count": true,
	"average_score":  true,
	"available_date": true,
	"published_at":   true,
}

// regionsPattern matches one or more lowercase hyphenated words separated by
// single spaces, e.g. "kingsford wolli-creek".
var regionsPattern = regexp.MustCompile(`^[a-z]+(-[a-z]+)*( [a-z]+(-[a-z]+)*)*$`)

// Preference is a sparse, user-declared set of search constraints plus
// pagination and ordering. Nil pointer fields impose no constraint.
type Preference struct {
	TargetSchool   string               `json:"target_school"`
	MinPrice       *int                 `json:"min_price"`
	MaxPrice       *int                 `json:"max_price"`
	MinBedrooms    *int                 `json:"min_bedrooms"`
	MaxBedrooms    *int                 `json:"max_bedrooms"`
	MinBathrooms   *int                 `json:"min_bathrooms"`
	MaxBathrooms   *int                 `json:"max_bathrooms"`
	MinCommuteTime *int                 `json:"min_commute_time"`
	MaxCommuteTime *int                 `json:"max_commute_time"`
	PropertyType   *models.PropertyType `json:"property_type"`
	MinRating      *float64             `json:"min_rating"`
	Regions        string               `json:"regions"`
	MoveInDate     *time.Time           `json:"move_in_date"`
	Page           *int                 `json:"page"`
	PageSize       *int                 `json:"page_size"`
	OrderBy        []map[string]string  `json:"order_by"`
}

// SortSpec is one validated (column, direction) ordering entry.
type SortSpec struct {
	Column    string
	Direction string
}

// NormalizedPreference is a Preference that passed validation, with regions
// split into tokens and ordering resolved against the column allow-list.
type NormalizedPreference struct {
	Preference

	RegionTokens []string
	Sort         []SortSpec
	PageNum      int
	Size         int
}

// Normalize validates and normalizes a raw preference. It is a pure
// transformation: no storage access happens here. All failures are
// ValidationErrors naming the offending field.
func Normalize(p *Preference) (*NormalizedPreference, error) {
	if p == nil {
		return nil, apperrors.NewValidation("preference", "preference required")
	}
	if strings.TrimSpace(p.TargetSchool) == "" {
		return nil, apperrors.NewValidation("target_school", "target school required")
	}
	if p.Page == nil {
		return nil, apperrors.NewValidation("page", "page required")
	}
	if p.PageSize == nil {
		return nil, apperrors.NewValidation("page_size", "pageSize required")
	}
	if *p.Page < 1 {
		return nil, apperrors.NewValidation("page", "page must be >= 1")
	}
	if *p.PageSize < 1 || *p.PageSize > MaxPageSize {
		return nil, apperrors.NewValidation("page_size", "pageSize must be between 1 and 100")
	}
	if p.PropertyType != nil && !p.PropertyType.Valid() {
		return nil, apperrors.NewValidation("property_type", "property type must be 1 (house) or 2 (apartment)")
	}

	np := &NormalizedPreference{
		Preference: *p,
		PageNum:    *p.Page,
		Size:       *p.PageSize,
	}

	if p.Regions != "" {
		if !regionsPattern.MatchString(p.Regions) {
			return nil, apperrors.NewValidation("regions", "invalid region format: expected space-separated lowercase-hyphen tokens")
		}
		np.RegionTokens = strings.Fields(p.Regions)
	}

	for _, entry := range p.OrderBy {
		if len(entry) != 1 {
			return nil, apperrors.NewValidation("order_by", "each orderBy entry must have exactly one column")
		}
		for column, direction := range entry {
			if !sortableColumns[column] {
				return nil, apperrors.NewValidation("order_by", "invalid orderBy key: "+column)
			}
			if direction != SortAsc && direction != SortDesc {
				return nil, apperrors.NewValidation("order_by", "invalid orderBy value: "+direction)
			}
			np.Sort = append(np.Sort, SortSpec{Column: column, Direction: direction})
		}
	}

	return np, nil
}

// SortableColumns returns the ordering allow-list, for introspection.
func SortableColumns() []string {
	columns := make([]string, 0, len(sortableColumns))
	for column := range sortableColumns {
		columns = append(columns, column)
	}
	return columns
}

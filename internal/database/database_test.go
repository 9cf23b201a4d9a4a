package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrent/server/internal/apperrors"
	"qrent/server/internal/search"
)

func intPtr(v int) *int { return &v }

func mustParseDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return parsed
}

// newTestDatabase creates a migrated in-memory database seeded with two
// regions, two schools, and four properties with commute rows.
func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	stmts := []string{
		`INSERT INTO regions (id, name) VALUES (1, 'kingsford'), (2, 'wolli-creek')`,
		`INSERT INTO schools (id, name) VALUES (1, 'UNSW'), (2, 'USYD')`,
		`INSERT INTO properties (id, price, bedroom_count, bathroom_count, property_type, region_id, average_score, available_date, published_at) VALUES
			(1, 500, 2, 1, 1, 1, 4.5, '2026-01-15', '2026-01-01T00:00:00Z'),
			(2, 400, 0, 1, 2, 1, 3.5, '2026-02-01', '2026-01-02T00:00:00Z'),
			(3, 700, 3, 2, 1, 2, 4.8, NULL,         '2026-01-03T00:00:00Z'),
			(4, 650, 2, 2, 2, NULL, 4.0, '2026-01-20', '2026-01-04T00:00:00Z')`,
		`INSERT INTO property_schools (property_id, school_id, commute_time) VALUES
			(1, 1, 15),
			(1, 2, 40),
			(2, 1, 20),
			(3, 1, 45),
			(4, 1, NULL),
			(4, 2, 25)`,
	}
	for _, stmt := range stmts {
		_, err := db.GetDB().Exec(stmt)
		require.NoError(t, err)
	}
	return db
}

func unswFilter() search.PropertyFilter {
	return search.PropertyFilter{TargetSchool: "UNSW"}
}

func TestFindProperties_SchoolConstraintIsMandatory(t *testing.T) {
	db := newTestDatabase(t)

	// Property 4 has only a NULL commute to UNSW, so it never matches
	properties, err := db.FindProperties(context.Background(), unswFilter(), nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, properties, 3)
	for _, p := range properties {
		assert.NotEqual(t, int64(4), p.ID)
	}
}

func TestFindProperties_PriceBounds(t *testing.T) {
	db := newTestDatabase(t)

	filter := unswFilter()
	filter.MinPrice = intPtr(450)
	filter.MaxPrice = intPtr(600)

	properties, err := db.FindProperties(context.Background(), filter, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, int64(1), properties[0].ID)
}

func TestFindProperties_CommuteBounds(t *testing.T) {
	db := newTestDatabase(t)

	filter := unswFilter()
	filter.MaxCommuteTime = intPtr(30)

	properties, err := db.FindProperties(context.Background(), filter, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, properties, 2)
	assert.Equal(t, int64(1), properties[0].ID)
	assert.Equal(t, int64(2), properties[1].ID)
}

func TestFindProperties_RegionPrefixes(t *testing.T) {
	db := newTestDatabase(t)

	filter := unswFilter()
	filter.RegionPrefixes = []string{"wolli"}

	properties, err := db.FindProperties(context.Background(), filter, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, int64(3), properties[0].ID)
	require.NotNil(t, properties[0].Region)
	assert.Equal(t, "wolli-creek", properties[0].Region.Name)
}

func TestFindProperties_MoveInDate(t *testing.T) {
	db := newTestDatabase(t)

	filter := unswFilter()
	moveIn := mustParseDate(t, "2026-01-20")
	filter.MoveInDate = &moveIn

	// Property 3 has no available date, property 2 is available too late
	properties, err := db.FindProperties(context.Background(), filter, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, int64(1), properties[0].ID)
}

func TestFindProperties_OrderAndPagination(t *testing.T) {
	db := newTestDatabase(t)

	sort := []search.SortSpec{{Column: "price", Direction: "asc"}}

	first, err := db.FindProperties(context.Background(), unswFilter(), sort, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, int64(2), first[0].ID) // 400
	assert.Equal(t, int64(1), first[1].ID) // 500

	second, err := db.FindProperties(context.Background(), unswFilter(), sort, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, int64(3), second[0].ID) // 700
}

func TestCountProperties_NarrowerBoundNeverIncreasesCount(t *testing.T) {
	db := newTestDatabase(t)

	base, err := db.CountProperties(context.Background(), unswFilter())
	require.NoError(t, err)
	assert.Equal(t, 3, base)

	filter := unswFilter()
	filter.MinPrice = intPtr(500)
	narrowed, err := db.CountProperties(context.Background(), filter)
	require.NoError(t, err)
	assert.LessOrEqual(t, narrowed, base)
	assert.Equal(t, 2, narrowed)
}

func TestAggregateProperties(t *testing.T) {
	db := newTestDatabase(t)

	agg, err := db.AggregateProperties(context.Background(), unswFilter())
	require.NoError(t, err)

	assert.Equal(t, 3, agg.Count)
	assert.InDelta(t, (500.0+400.0+700.0)/3.0, agg.AvgPrice, 0.001)
	assert.InDelta(t, (15.0+20.0+45.0)/3.0, agg.AvgCommuteTime, 0.001)
}

func TestAggregateProperties_EmptySetDefaultsToZero(t *testing.T) {
	db := newTestDatabase(t)

	filter := unswFilter()
	filter.MinPrice = intPtr(10000)

	agg, err := db.AggregateProperties(context.Background(), filter)
	require.NoError(t, err)
	assert.Zero(t, agg.Count)
	assert.Zero(t, agg.AvgPrice)
	assert.Zero(t, agg.AvgCommuteTime)
}

func TestFindCommute(t *testing.T) {
	db := newTestDatabase(t)

	commute, err := db.FindCommute(context.Background(), 1, "UNSW")
	require.NoError(t, err)
	assert.Equal(t, 15, commute)

	// Missing row
	_, err = db.FindCommute(context.Background(), 3, "USYD")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	// Row exists but commute is NULL
	_, err = db.FindCommute(context.Background(), 4, "UNSW")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGroupPropertiesByRegion(t *testing.T) {
	db := newTestDatabase(t)

	groups, err := db.GroupPropertiesByRegion(context.Background(), unswFilter(), 5)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Kingsford has two matching properties, wolli-creek one; the unregioned
	// property is excluded from grouping
	assert.Equal(t, "kingsford", groups[0].RegionName)
	assert.Equal(t, 2, groups[0].Count)
	assert.InDelta(t, 450.0, groups[0].AvgPrice, 0.001)
	assert.Equal(t, "wolli-creek", groups[1].RegionName)
	assert.Equal(t, 1, groups[1].Count)
}

func TestAggregateCommuteForRegion(t *testing.T) {
	db := newTestDatabase(t)

	avg, err := db.AggregateCommuteForRegion(context.Background(), unswFilter(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 17.5, avg, 0.001)

	// Region with no matching properties defaults to zero
	avg, err = db.AggregateCommuteForRegion(context.Background(), unswFilter(), 99)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestFindRegionsByNamePrefixes(t *testing.T) {
	db := newTestDatabase(t)

	all, err := db.FindRegionsByNamePrefixes(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	matched, err := db.FindRegionsByNamePrefixes(context.Background(), []string{"king"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "kingsford", matched[0].Name)

	none, err := db.FindRegionsByNamePrefixes(context.Background(), []string{"nowhereville"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindPropertiesByRegion_IncludesAllCommuteRows(t *testing.T) {
	db := newTestDatabase(t)

	properties, err := db.FindPropertiesByRegion(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, properties, 2)

	// Property 1 commutes to both schools, property 2 only to UNSW
	assert.Len(t, properties[0].Commutes, 2)
	assert.Len(t, properties[1].Commutes, 1)

	schools := map[string]bool{}
	for _, commute := range properties[0].Commutes {
		schools[commute.SchoolName] = true
	}
	assert.True(t, schools["UNSW"])
	assert.True(t, schools["USYD"])
}

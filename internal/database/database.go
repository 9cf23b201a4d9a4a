package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"qrent/server/internal/apperrors"
	"qrent/server/internal/models"
	"qrent/server/internal/search"
)

// Database is the SQLite-backed storage collaborator. It implements the
// read-side contracts consumed by the search and stats services; the
// ingestion write path goes through gorm (see upsert.go).
type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// buildFilter translates a compiled property filter into a WHERE fragment
// over properties aliased as p. The target-school commute constraint is a
// mandatory EXISTS over property_schools; every other dimension is optional
// and AND-combined. Region prefixes OR-combine inside one condition.
func buildFilter(f search.PropertyFilter) (string, []interface{}) {
	conds := []string{}
	var args []interface{}

	school := `EXISTS (
            SELECT 1 FROM property_schools ps
            JOIN schools s ON s.id = ps.school_id
            WHERE ps.property_id = p.id
            AND s.name = ?
            AND ps.commute_time IS NOT NULL`
	args = append(args, f.TargetSchool)
	if f.MinCommuteTime != nil {
		school += " AND ps.commute_time >= ?"
		args = append(args, *f.MinCommuteTime)
	}
	if f.MaxCommuteTime != nil {
		school += " AND ps.commute_time <= ?"
		args = append(args, *f.MaxCommuteTime)
	}
	school += ")"
	conds = append(conds, school)

	if f.MinPrice != nil {
		conds = append(conds, "p.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "p.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.MinBedrooms != nil {
		conds = append(conds, "p.bedroom_count >= ?")
		args = append(args, *f.MinBedrooms)
	}
	if f.MaxBedrooms != nil {
		conds = append(conds, "p.bedroom_count <= ?")
		args = append(args, *f.MaxBedrooms)
	}
	if f.MinBathrooms != nil {
		conds = append(conds, "p.bathroom_count >= ?")
		args = append(args, *f.MinBathrooms)
	}
	if f.MaxBathrooms != nil {
		conds = append(conds, "p.bathroom_count <= ?")
		args = append(args, *f.MaxBathrooms)
	}
	if f.PropertyType != nil {
		conds = append(conds, "p.property_type = ?")
		args = append(args, *f.PropertyType)
	}
	if f.MinRating != nil {
		conds = append(conds, "p.average_score >= ?")
		args = append(args, *f.MinRating)
	}
	if f.MoveInDate != nil {
		conds = append(conds, "p.available_date IS NOT NULL AND p.available_date <= ?")
		args = append(args, f.MoveInDate.Format("2006-01-02"))
	}
	if f.PublishedAfter != nil {
		conds = append(conds, "p.published_at >= ?")
		args = append(args, f.PublishedAfter.Format(time.RFC3339))
	}
	if len(f.RegionPrefixes) > 0 {
		likes := make([]string, len(f.RegionPrefixes))
		for i, prefix := range f.RegionPrefixes {
			likes[i] = "r2.name LIKE ?"
			args = append(args, prefix+"%")
		}
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM regions r2 WHERE r2.id = p.region_id AND (%s))",
			strings.Join(likes, " OR ")))
	}

	return strings.Join(conds, " AND "), args
}

// sortColumns maps validated sort columns onto their SQL expressions.
var sortColumns = map[string]string{
	"price":          "p.price",
	"bedroom_count":  "p.bedroom_count",
	"bathroom_count": "p.bathroom_count",
	"average_score":  "p.average_score",
	"available_date": "p.available_date",
	"published_at":   "p.published_at",
}

// orderClause builds the ORDER BY expression, always appending the primary
// key so pagination is stable under equal sort values.
func orderClause(sort []search.SortSpec) string {
	var parts []string
	for _, spec := range sort {
		column, ok := sortColumns[spec.Column]
		if !ok {
			continue
		}
		direction := "ASC"
		if spec.Direction == search.SortDesc {
			direction = "DESC"
		}
		parts = append(parts, column+" "+direction)
	}
	if len(parts) == 0 {
		parts = append(parts, "p.published_at DESC")
	}
	parts = append(parts, "p.id ASC")
	return strings.Join(parts, ", ")
}

func (d *Database) FindProperties(ctx context.Context, filter search.PropertyFilter, sort []search.SortSpec, skip, take int) ([]models.Property, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(`
        SELECT
            p.id,
            p.price,
            p.bedroom_count,
            p.bathroom_count,
            p.property_type,
            p.region_id,
            r.name,
            p.average_score,
            p.available_date,
            COALESCE(p.published_at, ''),
            COALESCE(p.created_at, '')
        FROM properties p
        LEFT JOIN regions r ON r.id = p.region_id
        WHERE %s
        ORDER BY %s
        LIMIT ? OFFSET ?
    `, where, orderClause(sort))
	args = append(args, take, skip)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		var regionID sql.NullInt64
		var regionName sql.NullString
		var availableDate sql.NullString
		var publishedAt, createdAt string

		err := rows.Scan(
			&p.ID,
			&p.Price,
			&p.BedroomCount,
			&p.BathroomCount,
			&p.PropertyType,
			&regionID,
			&regionName,
			&p.AverageScore,
			&availableDate,
			&publishedAt,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		if regionID.Valid {
			id := regionID.Int64
			p.RegionID = &id
			if regionName.Valid {
				p.Region = &models.Region{ID: id, Name: regionName.String}
			}
		}
		if availableDate.Valid && availableDate.String != "" {
			if t, ok := parseStoredTime(availableDate.String); ok {
				p.AvailableDate = &t
			}
		}
		if t, ok := parseStoredTime(publishedAt); ok {
			p.PublishedAt = t
		}
		if t, ok := parseStoredTime(createdAt); ok {
			p.CreatedAt = t
		}

		properties = append(properties, p)
	}
	return properties, rows.Err()
}

func (d *Database) CountProperties(ctx context.Context, filter search.PropertyFilter) (int, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf("SELECT COUNT(*) FROM properties p WHERE %s", where)

	var count int
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (d *Database) AggregateProperties(ctx context.Context, filter search.PropertyFilter) (models.PropertyAggregate, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(`
        SELECT
            COUNT(*),
            COALESCE(AVG(p.price), 0),
            COALESCE(AVG(ps.commute_time), 0)
        FROM properties p
        JOIN property_schools ps ON ps.property_id = p.id
        JOIN schools s ON s.id = ps.school_id AND s.name = ?
        WHERE %s
    `, where)
	args = append([]interface{}{filter.TargetSchool}, args...)

	var agg models.PropertyAggregate
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&agg.Count, &agg.AvgPrice, &agg.AvgCommuteTime)
	return agg, err
}

// FindCommute resolves the commute time from one property to a school. A
// missing or uncomputed commute row is a NotFoundError: properties returned
// by a school-filtered search are guaranteed to have one.
func (d *Database) FindCommute(ctx context.Context, propertyID int64, schoolName string) (int, error) {
	var commute sql.NullInt64
	err := d.db.QueryRowContext(ctx, `
        SELECT ps.commute_time
        FROM property_schools ps
        JOIN schools s ON s.id = ps.school_id
        WHERE ps.property_id = ? AND s.name = ?
    `, propertyID, schoolName).Scan(&commute)
	if err == sql.ErrNoRows {
		return 0, apperrors.NewNotFound("commute", fmt.Sprintf("property %d has no commute row for school %s", propertyID, schoolName))
	}
	if err != nil {
		return 0, err
	}
	if !commute.Valid {
		return 0, apperrors.NewNotFound("commute", fmt.Sprintf("property %d has no computed commute time for school %s", propertyID, schoolName))
	}
	return int(commute.Int64), nil
}

func (d *Database) GroupPropertiesByRegion(ctx context.Context, filter search.PropertyFilter, limit int) ([]models.RegionGroup, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(`
        SELECT
            r.id,
            r.name,
            COUNT(*) as property_count,
            COALESCE(AVG(p.price), 0)
        FROM properties p
        JOIN regions r ON r.id = p.region_id
        WHERE %s
        GROUP BY r.id, r.name
        ORDER BY property_count DESC, r.name ASC
        LIMIT ?
    `, where)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.RegionGroup
	for rows.Next() {
		var g models.RegionGroup
		if err := rows.Scan(&g.RegionID, &g.RegionName, &g.Count, &g.AvgPrice); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (d *Database) AggregateCommuteForRegion(ctx context.Context, filter search.PropertyFilter, regionID int64) (float64, error) {
	where, args := buildFilter(filter)
	query := fmt.Sprintf(`
        SELECT COALESCE(AVG(ps.commute_time), 0)
        FROM properties p
        JOIN property_schools ps ON ps.property_id = p.id
        JOIN schools s ON s.id = ps.school_id AND s.name = ?
        WHERE %s AND p.region_id = ?
    `, where)
	args = append([]interface{}{filter.TargetSchool}, args...)
	args = append(args, regionID)

	var avg float64
	err := d.db.QueryRowContext(ctx, query, args...).Scan(&avg)
	return avg, err
}

// FindRegionsByNamePrefixes resolves regions whose name starts with any of
// the given tokens. With no tokens, all regions are returned.
func (d *Database) FindRegionsByNamePrefixes(ctx context.Context, tokens []string) ([]models.Region, error) {
	query := "SELECT id, name, COALESCE(created_at, '') FROM regions"
	var args []interface{}
	if len(tokens) > 0 {
		likes := make([]string, len(tokens))
		for i, token := range tokens {
			likes[i] = "name LIKE ?"
			args = append(args, token+"%")
		}
		query += " WHERE " + strings.Join(likes, " OR ")
	}
	query += " ORDER BY name ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		var r models.Region
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &createdAt); err != nil {
			return nil, err
		}
		if t, ok := parseStoredTime(createdAt); ok {
			r.CreatedAt = t
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// FindPropertiesByRegion returns every property of a region, each carrying
// its full set of commute rows across all schools.
func (d *Database) FindPropertiesByRegion(ctx context.Context, regionID int64) ([]models.Property, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT
            p.id,
            p.price,
            p.bedroom_count,
            p.bathroom_count,
            p.property_type,
            p.average_score,
            p.available_date,
            COALESCE(p.published_at, '')
        FROM properties p
        WHERE p.region_id = ?
        ORDER BY p.id ASC
    `, regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	index := make(map[int64]int)
	for rows.Next() {
		var p models.Property
		var availableDate sql.NullString
		var publishedAt string
		err := rows.Scan(&p.ID, &p.Price, &p.BedroomCount, &p.BathroomCount,
			&p.PropertyType, &p.AverageScore, &availableDate, &publishedAt)
		if err != nil {
			return nil, err
		}
		id := regionID
		p.RegionID = &id
		if availableDate.Valid && availableDate.String != "" {
			if t, ok := parseStoredTime(availableDate.String); ok {
				p.AvailableDate = &t
			}
		}
		if t, ok := parseStoredTime(publishedAt); ok {
			p.PublishedAt = t
		}
		index[p.ID] = len(properties)
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return properties, nil
	}

	commuteRows, err := d.db.QueryContext(ctx, `
        SELECT ps.property_id, ps.school_id, s.name, ps.commute_time
        FROM property_schools ps
        JOIN schools s ON s.id = ps.school_id
        JOIN properties p ON p.id = ps.property_id
        WHERE p.region_id = ?
    `, regionID)
	if err != nil {
		return nil, err
	}
	defer commuteRows.Close()

	for commuteRows.Next() {
		var commute models.PropertySchool
		var commuteTime sql.NullInt64
		if err := commuteRows.Scan(&commute.PropertyID, &commute.SchoolID, &commute.SchoolName, &commuteTime); err != nil {
			return nil, err
		}
		if commuteTime.Valid {
			t := int(commuteTime.Int64)
			commute.CommuteTime = &t
		}
		if i, ok := index[commute.PropertyID]; ok {
			properties[i].Commutes = append(properties[i].Commutes, commute)
		}
	}
	return properties, commuteRows.Err()
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

// storedTimeLayouts covers the formats the sqlite driver and the gorm write
// path leave in date columns.
var storedTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseStoredTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

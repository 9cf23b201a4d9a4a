package database

import "fmt"

func (d *Database) RunMigrations() error {
	// Create regions table
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS regions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create regions table: %v", err)
	}

	// Create schools table
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schools (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schools table: %v", err)
	}

	// Create properties table
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			price INTEGER NOT NULL,
			bedroom_count INTEGER NOT NULL DEFAULT 0,
			bathroom_count INTEGER NOT NULL DEFAULT 0,
			property_type INTEGER NOT NULL DEFAULT 1,
			region_id INTEGER REFERENCES regions(id),
			average_score REAL NOT NULL DEFAULT 0,
			available_date DATE,
			published_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create properties table: %v", err)
	}

	// Create property_schools join table carrying commute times
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS property_schools (
			property_id INTEGER NOT NULL REFERENCES properties(id),
			school_id INTEGER NOT NULL REFERENCES schools(id),
			commute_time INTEGER,
			PRIMARY KEY (property_id, school_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create property_schools table: %v", err)
	}

	// Index for region-scoped queries
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_properties_region
		ON properties(region_id);
	`)
	if err != nil {
		return err
	}

	// Index for commute lookups by school
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_property_schools_school
		ON property_schools(school_id, commute_time);
	`)
	if err != nil {
		return err
	}

	return nil
}

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations creates the indexes AutoMigrate does not declare
func RunMigrations(db *gorm.DB) error {
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_case_records_lookup_key
		ON case_records(court_code, lookup_key)`,
	`CREATE INDEX IF NOT EXISTS idx_query_logs_time
		ON query_logs(query_time)`,
	`CREATE INDEX IF NOT EXISTS idx_query_logs_operation
		ON query_logs(portal, operation)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_date
		ON orders(order_date)`,
}

func createIndexes(db *gorm.DB) error {
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

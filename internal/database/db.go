package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
)

// ErrNotFound is returned for unknown record ids
var ErrNotFound = errors.New("record not found")

func Initialize(dbPath string) (*gorm.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&QueryLog{},
		&CaseRecord{},
		&Party{},
		&OrderRecord{},
	); err != nil {
		return err
	}
	return RunMigrations(db)
}

// Store persists what the API fetched. The retrieval packages never write
// here themselves.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the database answers queries
func (s *Store) Ping(ctx context.Context) error {
	var n int64
	return s.db.WithContext(ctx).Model(&QueryLog{}).Count(&n).Error
}

// LogQuery inserts entry and sets its ID
func (s *Store) LogQuery(ctx context.Context, entry *QueryLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to save query log: %w", err)
	}
	return nil
}

// SaveCases stores case status results linked to a query log entry
func (s *Store) SaveCases(ctx context.Context, logID uint, courtCode string, cases []models.CaseInfo) ([]CaseRecord, error) {
	return s.saveCases(ctx, logID, courtCode, "", cases)
}

// SaveCaseLookup stores the results of a lookup by case number so later
// orders for the same lookup attach to them
func (s *Store) SaveCaseLookup(ctx context.Context, logID uint, courtCode string, ref CaseRef, cases []models.CaseInfo) ([]CaseRecord, error) {
	return s.saveCases(ctx, logID, courtCode, ref.Key(), cases)
}

func (s *Store) saveCases(ctx context.Context, logID uint, courtCode, key string, cases []models.CaseInfo) ([]CaseRecord, error) {
	if len(cases) == 0 {
		return []CaseRecord{}, nil
	}
	records := make([]CaseRecord, len(cases))
	for i, info := range cases {
		records[i] = NewCaseRecord(courtCode, info)
		records[i].QueryLogID = logID
		records[i].LookupKey = key
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to save cases: %w", err)
	}
	return records, nil
}

// SaveOrders attaches orders to the latest record stored for the same
// lookup, creating a bare record when none exists yet
func (s *Store) SaveOrders(ctx context.Context, logID uint, courtCode string, ref CaseRef, orders []models.CaseOrder) (*CaseRecord, error) {
	db := s.db.WithContext(ctx)
	key := ref.Key()

	var rec CaseRecord
	err := db.Where("court_code = ? AND lookup_key = ?", courtCode, key).
		Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = CaseRecord{
			QueryLogID: logID,
			CourtCode:  courtCode,
			LookupKey:  key,
			CaseType:   ref.CaseType,
			CaseNumber: ref.CaseNumber + "/" + ref.Year,
		}
		err = db.Create(&rec).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find case record: %w", err)
	}

	if len(orders) > 0 {
		rows := make([]OrderRecord, len(orders))
		for i, o := range orders {
			rows[i] = NewOrderRecord(o)
			rows[i].CaseRecordID = rec.ID
		}
		if err := db.Create(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to save orders: %w", err)
		}
		rec.Orders = rows
	}
	return &rec, nil
}

// MarkDownloaded records where an order PDF was saved
func (s *Store) MarkDownloaded(ctx context.Context, orderID uint, path string) error {
	return s.db.WithContext(ctx).Model(&OrderRecord{}).Where("id = ?", orderID).
		Updates(map[string]any{"downloaded": true, "local_path": path}).Error
}

// ListCases pages through stored cases, newest first
func (s *Store) ListCases(ctx context.Context, page, limit int) ([]CaseRecord, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&CaseRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	cases := []CaseRecord{}
	err := db.Preload("Parties").Preload("Orders").
		Offset((page - 1) * limit).Limit(limit).
		Order("created_at DESC, id DESC").
		Find(&cases).Error
	return cases, total, err
}

// GetCase loads one stored case with its parties and orders
func (s *Store) GetCase(ctx context.Context, id uint) (*CaseRecord, error) {
	var rec CaseRecord
	err := s.db.WithContext(ctx).Preload("Parties").Preload("Orders").First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecentQueries returns the latest log entries, optionally for one portal
func (s *Store) RecentQueries(ctx context.Context, portal string, limit int) ([]QueryLog, error) {
	db := s.db.WithContext(ctx).Order("query_time DESC, id DESC").Limit(limit)
	if portal != "" {
		db = db.Where("portal = ?", portal)
	}
	logs := []QueryLog{}
	if err := db.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

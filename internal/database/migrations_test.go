package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/tripweave/tripweave/backend/internal/itinerary"
	"gorm.io/gorm"
)

func openMigrated(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:database_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := OpenSQLite(dsn, nil)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access raw database: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("", nil); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestOpenSQLiteRecordsAppliedMigrations(t *testing.T) {
	db := openMigrated(t)

	var record migrationRecord
	err := db.Where("name = ?", migrationNormalizeUnscheduledDays).Take(&record).Error
	if err != nil {
		t.Fatalf("expected migration ledger entry, got %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		t.Fatalf("expected applied timestamp to be recorded")
	}
}

func TestNormalizeUnscheduledDaysFoldsNonPositiveDays(t *testing.T) {
	db := openMigrated(t)

	zero := 0
	negative := -3
	scheduled := 2
	rows := []itinerary.Item{
		{ItemID: "item-1", TripID: "trip-1", Title: "Zero day", DayNumber: &zero},
		{ItemID: "item-2", TripID: "trip-1", Title: "Negative day", DayNumber: &negative},
		{ItemID: "item-3", TripID: "trip-1", Title: "Scheduled", DayNumber: &scheduled},
	}
	for index := range rows {
		if err := db.Create(&rows[index]).Error; err != nil {
			t.Fatalf("failed to seed item: %v", err)
		}
	}

	if err := normalizeUnscheduledDays(db); err != nil {
		t.Fatalf("unexpected migration error: %v", err)
	}

	var stored []itinerary.Item
	if err := db.Order("item_id ASC").Find(&stored).Error; err != nil {
		t.Fatalf("failed to read items back: %v", err)
	}
	if stored[0].DayNumber != nil || stored[1].DayNumber != nil {
		t.Fatalf("expected non-positive days folded to NULL, got %+v", stored[:2])
	}
	if stored[2].DayNumber == nil || *stored[2].DayNumber != 2 {
		t.Fatalf("expected scheduled day untouched, got %+v", stored[2])
	}
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := openMigrated(t)

	if err := applyMigrations(db, nil); err != nil {
		t.Fatalf("unexpected re-apply error: %v", err)
	}

	var count int64
	if err := db.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count ledger rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single ledger row, got %d", count)
	}
}

package model

import (
	"fmt"
	"testing"

	"github.com/yszxh/nano-image-generator/common/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&History{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	old := DB
	DB = db
	t.Cleanup(func() { DB = old })
}

func TestAddHistoryAssignsDefaults(t *testing.T) {
	setupTestDB(t)

	history := &History{Prompt: "a cat", Kind: "image", Action: "generate", MediaPayload: "data:image/png;base64,xx"}
	if err := AddHistory(history); err != nil {
		t.Fatalf("AddHistory() error = %v", err)
	}
	if history.Id == "" {
		t.Error("Id not assigned")
	}
	if history.CreatedAt == 0 {
		t.Error("CreatedAt not assigned")
	}

	got, err := GetHistoryById(history.Id)
	if err != nil {
		t.Fatalf("GetHistoryById() error = %v", err)
	}
	if got.Prompt != "a cat" {
		t.Errorf("Prompt = %q", got.Prompt)
	}
}

func TestHistoryCapacityEviction(t *testing.T) {
	setupTestDB(t)

	oldLimit := config.HistoryLimit
	config.HistoryLimit = 5
	t.Cleanup(func() { config.HistoryLimit = oldLimit })

	for i := 0; i < 8; i++ {
		history := &History{
			Id:        fmt.Sprintf("h-%02d", i),
			Prompt:    fmt.Sprintf("prompt %d", i),
			CreatedAt: int64(1000 + i),
		}
		if err := AddHistory(history); err != nil {
			t.Fatalf("AddHistory(%d) error = %v", i, err)
		}
	}

	count, err := CountHistories()
	if err != nil {
		t.Fatalf("CountHistories() error = %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}

	// 留下的是最新的 5 条，最旧的被淘汰
	histories, err := GetAllHistories()
	if err != nil {
		t.Fatalf("GetAllHistories() error = %v", err)
	}
	if histories[0].Id != "h-07" {
		t.Errorf("newest = %s, want h-07", histories[0].Id)
	}
	if histories[len(histories)-1].Id != "h-03" {
		t.Errorf("oldest kept = %s, want h-03", histories[len(histories)-1].Id)
	}
}

func TestHistoriesNewestFirst(t *testing.T) {
	setupTestDB(t)

	for i := 0; i < 3; i++ {
		if err := AddHistory(&History{Id: fmt.Sprintf("h-%d", i), CreatedAt: int64(100 + i)}); err != nil {
			t.Fatalf("AddHistory() error = %v", err)
		}
	}
	histories, err := GetAllHistories()
	if err != nil {
		t.Fatalf("GetAllHistories() error = %v", err)
	}
	for i := 1; i < len(histories); i++ {
		if histories[i-1].CreatedAt < histories[i].CreatedAt {
			t.Errorf("histories not newest-first at %d", i)
		}
	}
}

func TestDeleteAndClear(t *testing.T) {
	setupTestDB(t)

	if err := AddHistory(&History{Id: "keep"}); err != nil {
		t.Fatal(err)
	}
	if err := AddHistory(&History{Id: "gone"}); err != nil {
		t.Fatal(err)
	}

	if err := DeleteHistoryById("gone"); err != nil {
		t.Fatalf("DeleteHistoryById() error = %v", err)
	}
	if _, err := GetHistoryById("gone"); err == nil {
		t.Error("deleted record still readable")
	}

	if err := ClearHistories(); err != nil {
		t.Fatalf("ClearHistories() error = %v", err)
	}
	count, _ := CountHistories()
	if count != 0 {
		t.Errorf("count after clear = %d, want 0", count)
	}
}

func TestAddHistoryRetriesAfterShrink(t *testing.T) {
	setupTestDB(t)

	for i := 0; i < 10; i++ {
		if err := DB.Create(&History{Id: fmt.Sprintf("h-%02d", i), Prompt: "old", CreatedAt: int64(i)}).Error; err != nil {
			t.Fatal(err)
		}
	}

	// 主键冲突让首次插入失败，触发收缩到七成后重试：
	// h-00 属于被收缩掉的最旧三成，重试得以成功
	history := &History{Id: "h-00", Prompt: "retried", CreatedAt: 100}
	if err := AddHistory(history); err != nil {
		t.Fatalf("AddHistory() error = %v, want success via shrink-and-retry", err)
	}

	got, err := GetHistoryById("h-00")
	if err != nil {
		t.Fatalf("GetHistoryById() error = %v", err)
	}
	if got.Prompt != "retried" {
		t.Errorf("Prompt = %q, want the retried record", got.Prompt)
	}

	// 收缩到 7 条后重试插入 1 条
	count, _ := CountHistories()
	if count != 8 {
		t.Errorf("count = %d, want 8", count)
	}
	// 未被收缩波及的旧记录仍在
	if _, err := GetHistoryById("h-09"); err != nil {
		t.Error("h-09 should survive the shrink")
	}
	if _, err := GetHistoryById("h-01"); err == nil {
		t.Error("h-01 should be evicted by the shrink")
	}
}

func TestShrinkHistoriesKeepsNewest(t *testing.T) {
	setupTestDB(t)

	for i := 0; i < 10; i++ {
		DB.Create(&History{Id: fmt.Sprintf("h-%02d", i), CreatedAt: int64(i)})
	}

	if err := shrinkHistories(); err != nil {
		t.Fatalf("shrinkHistories() error = %v", err)
	}
	count, _ := CountHistories()
	if count != 7 {
		t.Errorf("count = %d, want 7", count)
	}
	// 最旧的三条应当被删掉
	if _, err := GetHistoryById("h-00"); err == nil {
		t.Error("h-00 survived shrink")
	}
	if _, err := GetHistoryById("h-09"); err != nil {
		t.Error("h-09 evicted by shrink")
	}
}

func TestGetHistoryByIdEmptyId(t *testing.T) {
	setupTestDB(t)
	if _, err := GetHistoryById(""); err == nil {
		t.Error("want error for empty id")
	}
}

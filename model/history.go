package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/yszxh/nano-image-generator/common/config"
	"github.com/yszxh/nano-image-generator/common/helper"
	"github.com/yszxh/nano-image-generator/common/logger"
)

// History 一条已完成的生成记录。图片的 MediaPayload 默认是 data-URI；
// 配好对象存储后入库的是公开 URL，前端经同源代理取图。
type History struct {
	Id           string `json:"id" gorm:"primaryKey"`
	Prompt       string `json:"prompt" gorm:"type:text"`
	Kind         string `json:"mediaType" gorm:"index;default:'image'"`
	Action       string `json:"type" gorm:"default:'generate'"`
	MediaPayload string `json:"mediaPayload" gorm:"type:text"`
	SourceUrl    string `json:"sourceUrl"`
	ModelName    string `json:"modelName"`
	PromptTokens int    `json:"promptTokens" gorm:"default:0"`
	CreatedAt    int64  `json:"createdAt" gorm:"bigint;index"`
}

// AddHistory 追加一条记录并维持容量上限。
// 插入失败时认为是存储受限，收缩保留集到七成后重试一次，
// 宁可丢最旧的记录也不丢这次的保存。
func AddHistory(history *History) error {
	if history.Id == "" {
		history.Id = uuid.New().String()
	}
	if history.CreatedAt == 0 {
		history.CreatedAt = helper.GetTimestamp()
	}

	if err := DB.Create(history).Error; err != nil {
		logger.SysError("failed to save history, shrinking retained set: " + err.Error())
		if shrinkErr := shrinkHistories(); shrinkErr != nil {
			return fmt.Errorf("failed to shrink histories: %w (original: %v)", shrinkErr, err)
		}
		if err = DB.Create(history).Error; err != nil {
			return err
		}
	}

	return trimHistories(config.HistoryLimit)
}

// trimHistories 超过容量时删掉最旧的记录
func trimHistories(limit int) error {
	if limit <= 0 {
		return nil
	}
	var count int64
	if err := DB.Model(&History{}).Count(&count).Error; err != nil {
		return err
	}
	if count <= int64(limit) {
		return nil
	}
	return deleteOldest(int(count) - limit)
}

// shrinkHistories 保留最新的七成（至少 1 条），其余删除
func shrinkHistories() error {
	var count int64
	if err := DB.Model(&History{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	keep := int(float64(count) * 0.7)
	if keep < 1 {
		keep = 1
	}
	return deleteOldest(int(count) - keep)
}

func deleteOldest(n int) error {
	if n <= 0 {
		return nil
	}
	var victims []History
	if err := DB.Select("id").Order("created_at asc").Limit(n).Find(&victims).Error; err != nil {
		return err
	}
	ids := make([]string, 0, len(victims))
	for _, victim := range victims {
		ids = append(ids, victim.Id)
	}
	return DB.Where("id IN ?", ids).Delete(&History{}).Error
}

// GetAllHistories 最新在前
func GetAllHistories() ([]*History, error) {
	var histories []*History
	err := DB.Order("created_at desc").Find(&histories).Error
	return histories, err
}

func GetHistoryById(id string) (*History, error) {
	if id == "" {
		return nil, fmt.Errorf("id 为空")
	}
	history := History{Id: id}
	err := DB.First(&history, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

func DeleteHistoryById(id string) error {
	if id == "" {
		return fmt.Errorf("id 为空")
	}
	return DB.Delete(&History{}, "id = ?", id).Error
}

func ClearHistories() error {
	return DB.Where("1 = 1").Delete(&History{}).Error
}

func CountHistories() (int64, error) {
	var count int64
	err := DB.Model(&History{}).Count(&count).Error
	return count, err
}

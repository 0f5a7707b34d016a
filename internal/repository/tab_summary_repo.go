package repository

import (
	"vacation-sync/internal/models"

	"gorm.io/gorm"
)

type TabSummaryRepository interface {
	Append(tabs []models.TabSummary) error
	GetAll() ([]models.TabSummary, error)
}

type GormTabSummaryRepository struct {
	db *gorm.DB
}

func NewGormTabSummaryRepository(db *gorm.DB) (*GormTabSummaryRepository, error) {
	if err := db.AutoMigrate(&models.TabSummary{}); err != nil {
		return nil, err
	}
	return &GormTabSummaryRepository{db: db}, nil
}

func (r *GormTabSummaryRepository) withDB(tx *gorm.DB) *GormTabSummaryRepository {
	return &GormTabSummaryRepository{db: tx}
}

// Append always inserts; summaries are history, not state.
func (r *GormTabSummaryRepository) Append(tabs []models.TabSummary) error {
	if len(tabs) == 0 {
		return nil
	}
	for i := range tabs {
		tabs[i].ID = 0
	}
	return r.db.Create(&tabs).Error
}

func (r *GormTabSummaryRepository) GetAll() ([]models.TabSummary, error) {
	var tabs []models.TabSummary
	err := r.db.Order("report_year DESC, report_month DESC, id ASC").Find(&tabs).Error
	return tabs, err
}

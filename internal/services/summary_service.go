package services

import (
	"context"
	"errors"
	"fmt"

	"grnsync/internal/models"

	"gorm.io/gorm"
)

type SummaryService struct {
	db *gorm.DB
}

func NewSummaryService(db *gorm.DB) (*SummaryService, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}

	return &SummaryService{db: db}, nil
}

func (s *SummaryService) StoreRunSummary(ctx context.Context, summary models.RunSummary) error {
	if s == nil {
		return errors.New("summary service is nil")
	}
	if s.db == nil {
		return errors.New("db is nil")
	}

	if err := s.db.WithContext(ctx).Create(&summary).Error; err != nil {
		return fmt.Errorf("store run summary: %w", err)
	}

	return nil
}

func (s *SummaryService) GetRunSummaries(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if s == nil {
		return nil, errors.New("summary service is nil")
	}
	if s.db == nil {
		return nil, errors.New("db is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	var summaries []models.RunSummary
	if err := s.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("get run summaries: %w", err)
	}

	return summaries, nil
}

package services

import (
	"context"
	"errors"

	"github.com/nimasrn/ride-settlement/internal/model"
	"github.com/nimasrn/ride-settlement/internal/repository"
)

type SummaryService struct {
	summaries SummaryRepository
}

func NewSummaryService(summaries SummaryRepository) *SummaryService {
	return &SummaryService{summaries: summaries}
}

func (s *SummaryService) Get(ctx context.Context, userID int64) (*model.UserTransactionSummary, error) {
	summary, err := s.summaries.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSummaryNotFound) {
			return nil, ErrSummaryNotFound
		}
		return nil, err
	}
	return summary, nil
}

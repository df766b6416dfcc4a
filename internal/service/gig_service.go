package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/gigflow/internal/model"
)

type GigService struct {
	gigs GigStore
}

func NewGigService(gigs GigStore) *GigService {
	return &GigService{gigs: gigs}
}

type CreateGigInput struct {
	Principal   model.Principal
	Title       string
	Description string
	Budget      float64
}

func (s *GigService) Create(ctx context.Context, input CreateGigInput) (*model.Gig, error) {
	if input.Principal.IsZero() {
		return nil, ErrPermissionDenied
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidInput)
	}
	if input.Budget <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive", ErrInvalidInput)
	}

	return s.gigs.CreateGig(ctx, model.Gig{
		OwnerID:     input.Principal.UserID,
		Title:       title,
		Description: description,
		Budget:      input.Budget,
		Status:      model.GigStatusOpen,
	})
}

// ListOpen returns open gigs, newest first, whose title contains search.
func (s *GigService) ListOpen(ctx context.Context, search string) ([]model.Gig, error) {
	return s.gigs.ListOpenGigs(ctx, search)
}

func (s *GigService) Get(ctx context.Context, id uuid.UUID) (*model.Gig, error) {
	gig, err := s.gigs.GetGig(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGigNotFound
		}
		return nil, err
	}
	return gig, nil
}

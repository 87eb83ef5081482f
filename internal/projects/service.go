package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *CreateProjectRequest) (*Project, error) {
	now := time.Now()
	project := &Project{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Name:        req.Name,
		Description: req.Description,
		BrandName:   req.BrandName,
		BrandTone:   req.BrandTone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID, params ListParams) ([]Project, int64, error) {
	return s.repo.ListByOwner(ctx, ownerID, params)
}

func (s *Service) Update(ctx context.Context, project *Project, req *UpdateProjectRequest) (*Project, error) {
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.BrandName != nil {
		project.BrandName = *req.BrandName
	}
	if req.BrandTone != nil {
		project.BrandTone = *req.BrandTone
	}
	project.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

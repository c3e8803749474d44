package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/organizations"
)

type OrganizationService interface {
	Current(ctx context.Context) (*models.Organization, error)
	Update(ctx context.Context, p models.OrganizationPatch) (*models.Organization, error)
}

type organizationService struct {
	deps Deps
}

func NewOrganizationService(deps Deps) OrganizationService {
	return &organizationService{deps: deps.withDefaults()}
}

func (s *organizationService) Current(ctx context.Context) (*models.Organization, error) {
	return s.deps.tenant(ctx)
}

func (s *organizationService) Update(ctx context.Context, p models.OrganizationPatch) (*models.Organization, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, invalid("shop name is required")
	}

	repo := organizations.NewSQLiteRepository(s.deps.DB)
	if err := repo.Update(ctx, org.ID, p); err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	s.deps.emit(ctx, org.ID, events.ActionUpdate, events.EntityOrganization, org.ID, "shop profile updated")

	return repo.Get(ctx, org.ID)
}

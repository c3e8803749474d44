package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/clients"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/repairs"
)

const (
	defaultClientListLimit   = 100
	defaultClientSearchLimit = 10
)

type ClientInput struct {
	FullName string
	Phone    string
	Email    string
	Location string
}

type ClientService interface {
	Create(ctx context.Context, in ClientInput) (string, error)
	Update(ctx context.Context, id string, p models.ClientPatch) error
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Client, error)
	GetByPhone(ctx context.Context, phone string) (*models.Client, error)
	List(ctx context.Context, limit int) ([]models.Client, error)
	Search(ctx context.Context, query string, limit int) ([]models.Client, error)
	// History lists the client's repairs, newest first.
	History(ctx context.Context, clientID string) ([]models.RepairView, error)
}

type clientService struct {
	deps Deps
}

func NewClientService(deps Deps) ClientService {
	return &clientService{deps: deps.withDefaults()}
}

func (s *clientService) Create(ctx context.Context, in ClientInput) (string, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return "", err
	}

	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.FullName == "" {
		return "", invalid("client name is required")
	}
	if in.Phone == "" {
		return "", invalid("client phone is required")
	}

	c := &models.Client{
		FullName: in.FullName,
		Phone:    in.Phone,
		Email:    strings.TrimSpace(in.Email),
		Location: strings.TrimSpace(in.Location),
	}
	c.Stamp(s.deps.IDs.NewID(), org.ID, s.deps.Clock.Now())

	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := clients.NewSQLiteRepository(tx)
		taken, err := repo.PhoneTaken(ctx, org.ID, c.Phone, "")
		if err != nil {
			return err
		}
		if taken {
			return &common.DuplicateEntityError{Entity: "client", Field: "phone", Value: c.Phone}
		}
		return repo.Insert(ctx, c)
	})
	if err != nil {
		return "", err
	}

	s.deps.emit(ctx, org.ID, events.ActionCreate, events.EntityClient, c.ID,
		fmt.Sprintf("Created client %s (%s)", c.FullName, c.Phone))
	return c.ID, nil
}

func (s *clientService) Update(ctx context.Context, id string, p models.ClientPatch) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	if p.FullName != nil && strings.TrimSpace(*p.FullName) == "" {
		return invalid("client name is required")
	}
	if p.Phone != nil {
		phone := strings.TrimSpace(*p.Phone)
		if phone == "" {
			return invalid("client phone is required")
		}
		p.Phone = &phone
	}

	var name string
	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := clients.NewSQLiteRepository(tx)
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameTenant(org, current.OrganizationID); err != nil {
			return err
		}
		if p.Phone != nil && *p.Phone != current.Phone {
			taken, err := repo.PhoneTaken(ctx, org.ID, *p.Phone, id)
			if err != nil {
				return err
			}
			if taken {
				return &common.DuplicateEntityError{Entity: "client", Field: "phone", Value: *p.Phone}
			}
		}
		name = current.FullName
		if p.FullName != nil {
			name = *p.FullName
		}
		return repo.Update(ctx, id, p, s.deps.Clock.Now())
	})
	if err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionUpdate, events.EntityClient, id, "Updated client "+name)
	return nil
}

// SoftDelete hides the client. Its repairs are left untouched.
func (s *clientService) SoftDelete(ctx context.Context, id string) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	repo := clients.NewSQLiteRepository(s.deps.DB)
	c, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := sameTenant(org, c.OrganizationID); err != nil {
		return err
	}
	if err := repo.SoftDelete(ctx, id, s.deps.Clock.Now()); err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionDelete, events.EntityClient, id, "Deleted client "+c.FullName)
	return nil
}

func (s *clientService) GetByID(ctx context.Context, id string) (*models.Client, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	c, err := clients.NewSQLiteRepository(s.deps.DB).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sameTenant(org, c.OrganizationID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *clientService) GetByPhone(ctx context.Context, phone string) (*models.Client, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return clients.NewSQLiteRepository(s.deps.DB).GetByPhone(ctx, org.ID, strings.TrimSpace(phone))
}

func (s *clientService) List(ctx context.Context, limit int) ([]models.Client, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultClientListLimit
	}
	return clients.NewSQLiteRepository(s.deps.DB).List(ctx, org.ID, limit)
}

func (s *clientService) Search(ctx context.Context, query string, limit int) ([]models.Client, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultClientSearchLimit
	}
	return clients.NewSQLiteRepository(s.deps.DB).Search(ctx, org.ID, query, limit)
}

func (s *clientService) History(ctx context.Context, clientID string) ([]models.RepairView, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return repairs.NewSQLiteRepository(s.deps.DB).ListByClient(ctx, org.ID, clientID)
}

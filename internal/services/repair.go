package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/dbx"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/models"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/clients"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/repairs"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/users"
)

const (
	// OverstayDays is how long a fixed device may wait for pickup before it
	// shows up on the overstayed list.
	OverstayDays = 30

	repairSearchLimit = 50
	ticketAttempts    = 20
)

// newTicketNo draws a candidate ticket number. Replaced in tests.
var newTicketNo = func() string {
	return fmt.Sprintf("T-%04d", rand.IntN(10000))
}

type RepairInput struct {
	ClientID         string
	AssignedTo       string
	DeviceType       string
	Brand            string
	Model            string
	SerialNo         string
	Accessories      string
	IssueDescription string
	BinLocation      string
	ImagePaths       []string
	InternalCost     float64
	LaborCost        float64
	FinalPrice       float64
}

type PaymentInput struct {
	Amount    float64
	Method    string
	MpesaCode string
}

type RepairService interface {
	Create(ctx context.Context, in RepairInput) (*models.Repair, error)
	Update(ctx context.Context, id string, p models.RepairPatch) error
	UpdateStatus(ctx context.Context, id string, status models.RepairStatus) error
	RecordPayment(ctx context.Context, id string, in PaymentInput) error
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.RepairView, error)
	GetByTicket(ctx context.Context, ticketNo string) (*models.RepairView, error)
	List(ctx context.Context, f models.RepairFilter) ([]models.RepairView, error)
	Search(ctx context.Context, query string) ([]models.RepairView, error)
	Overstayed(ctx context.Context) ([]models.RepairView, error)
	RevenueStats(ctx context.Context, month string) (*models.RevenueStats, error)
}

type repairService struct {
	deps Deps
}

func NewRepairService(deps Deps) RepairService {
	return &repairService{deps: deps.withDefaults()}
}

func validateMoney(fields map[string]*float64) error {
	for name, v := range fields {
		if v != nil && *v < 0 {
			return invalid("%s cannot be negative", name)
		}
	}
	return nil
}

func (s *repairService) checkRefs(ctx context.Context, tx dbx.DBTX, org *models.Organization, clientID, assignedTo string) error {
	if clientID != "" {
		c, err := clients.NewSQLiteRepository(tx).GetByID(ctx, clientID)
		if errors.Is(err, common.ErrNotFound) || (err == nil && c.OrganizationID != org.ID) {
			return invalid("unknown client %s", clientID)
		}
		if err != nil {
			return err
		}
	}
	if assignedTo != "" {
		u, err := users.NewSQLiteRepository(tx).GetByID(ctx, assignedTo)
		if errors.Is(err, common.ErrNotFound) || (err == nil && u.OrganizationID != org.ID) {
			return invalid("unknown technician %s", assignedTo)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *repairService) Create(ctx context.Context, in RepairInput) (*models.Repair, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if in.ClientID == "" {
		return nil, invalid("client is required")
	}
	if err := validateMoney(map[string]*float64{
		"internal cost": &in.InternalCost, "labor cost": &in.LaborCost, "final price": &in.FinalPrice,
	}); err != nil {
		return nil, err
	}

	r := &models.Repair{
		ClientID:         in.ClientID,
		AssignedTo:       in.AssignedTo,
		DeviceType:       strings.TrimSpace(in.DeviceType),
		Brand:            strings.TrimSpace(in.Brand),
		Model:            strings.TrimSpace(in.Model),
		SerialNo:         strings.TrimSpace(in.SerialNo),
		Accessories:      in.Accessories,
		IssueDescription: in.IssueDescription,
		Status:           models.StatusReceived,
		BinLocation:      in.BinLocation,
		ImagePaths:       in.ImagePaths,
		InternalCost:     in.InternalCost,
		LaborCost:        in.LaborCost,
		FinalPrice:       in.FinalPrice,
	}
	if r.ImagePaths == nil {
		r.ImagePaths = []string{}
	}
	r.Stamp(s.deps.IDs.NewID(), org.ID, s.deps.Clock.Now())

	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.checkRefs(ctx, tx, org, r.ClientID, r.AssignedTo); err != nil {
			return err
		}
		repo := repairs.NewSQLiteRepository(tx)
		ticket, err := s.allocateTicket(ctx, repo, org.ID)
		if err != nil {
			return err
		}
		r.TicketNo = ticket
		return repo.Insert(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.deps.emit(ctx, org.ID, events.ActionCreate, events.EntityRepair, r.ID,
		fmt.Sprintf("Created ticket %s: %s %s %s", r.TicketNo, r.DeviceType, r.Brand, r.Model))
	return r, nil
}

func (s *repairService) allocateTicket(ctx context.Context, repo repairs.Repository, orgID string) (string, error) {
	for i := 0; i < ticketAttempts; i++ {
		t := newTicketNo()
		exists, err := repo.TicketExists(ctx, orgID, t)
		if err != nil {
			return "", err
		}
		if !exists {
			return t, nil
		}
	}
	return "", fmt.Errorf("could not allocate a free ticket number after %d attempts", ticketAttempts)
}

// applyStatusRules stamps the dates and payment flag that go with a status
// change. current is the stored repair, p the patch about to be applied.
func applyStatusRules(current *models.Repair, p *models.RepairPatch, now time.Time) {
	if p.Status == nil || *p.Status == current.Status {
		return
	}
	switch *p.Status {
	case models.StatusFixed:
		if current.DateFixed == nil && p.DateFixed == nil {
			p.DateFixed = &now
		}
	case models.StatusCollected:
		if p.DateOut == nil {
			p.DateOut = &now
		}
		paid := true
		p.IsPaid = &paid
	}
}

func (s *repairService) Update(ctx context.Context, id string, p models.RepairPatch) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("unknown status %q", *p.Status)
	}
	if err := validateMoney(map[string]*float64{
		"internal cost": p.InternalCost, "labor cost": p.LaborCost,
		"final price": p.FinalPrice, "amount paid": p.AmountPaid,
	}); err != nil {
		return err
	}

	var ticket string
	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := repairs.NewSQLiteRepository(tx)
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameTenant(org, current.OrganizationID); err != nil {
			return err
		}
		if p.AssignedTo != nil {
			if err := s.checkRefs(ctx, tx, org, "", *p.AssignedTo); err != nil {
				return err
			}
		}
		ticket = current.TicketNo
		now := s.deps.Clock.Now()
		applyStatusRules(current, &p, now)
		return repo.Update(ctx, id, p, now)
	})
	if err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionUpdate, events.EntityRepair, id, "Updated ticket "+ticket)
	return nil
}

func (s *repairService) UpdateStatus(ctx context.Context, id string, status models.RepairStatus) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	if !status.Valid() {
		return invalid("unknown status %q", status)
	}

	var details string
	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := repairs.NewSQLiteRepository(tx)
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameTenant(org, current.OrganizationID); err != nil {
			return err
		}
		details = fmt.Sprintf("Ticket %s: %s -> %s", current.TicketNo, current.Status, status)
		now := s.deps.Clock.Now()
		p := models.RepairPatch{Status: &status}
		applyStatusRules(current, &p, now)
		return repo.Update(ctx, id, p, now)
	})
	if err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionStatus, events.EntityRepair, id, details)
	return nil
}

// RecordPayment adds a payment to the amount already paid. The repair counts
// as paid once the total reaches the final price.
func (s *repairService) RecordPayment(ctx context.Context, id string, in PaymentInput) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	if in.Amount <= 0 {
		return invalid("payment amount must be positive")
	}

	var details string
	err = dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := repairs.NewSQLiteRepository(tx)
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := sameTenant(org, current.OrganizationID); err != nil {
			return err
		}
		total := current.AmountPaid + in.Amount
		paid := total >= current.FinalPrice
		p := models.RepairPatch{AmountPaid: &total, IsPaid: &paid}
		if in.Method != "" {
			p.PaymentMethod = &in.Method
		}
		if in.MpesaCode != "" {
			code := strings.ToUpper(strings.TrimSpace(in.MpesaCode))
			p.MpesaCode = &code
		}
		details = fmt.Sprintf("Ticket %s: paid %.2f (%s), total %.2f of %.2f",
			current.TicketNo, in.Amount, in.Method, total, current.FinalPrice)
		return repo.Update(ctx, id, p, s.deps.Clock.Now())
	})
	if err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionPayment, events.EntityRepair, id, details)
	return nil
}

func (s *repairService) SoftDelete(ctx context.Context, id string) error {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return err
	}
	repo := repairs.NewSQLiteRepository(s.deps.DB)
	r, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := sameTenant(org, r.OrganizationID); err != nil {
		return err
	}
	if err := repo.SoftDelete(ctx, id, s.deps.Clock.Now()); err != nil {
		return err
	}

	s.deps.emit(ctx, org.ID, events.ActionDelete, events.EntityRepair, id, "Deleted ticket "+r.TicketNo)
	return nil
}

func (s *repairService) GetByID(ctx context.Context, id string) (*models.RepairView, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	v, err := repairs.NewSQLiteRepository(s.deps.DB).GetView(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sameTenant(org, v.OrganizationID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *repairService) GetByTicket(ctx context.Context, ticketNo string) (*models.RepairView, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	return repairs.NewSQLiteRepository(s.deps.DB).GetByTicket(ctx, org.ID, strings.ToUpper(strings.TrimSpace(ticketNo)))
}

func (s *repairService) List(ctx context.Context, f models.RepairFilter) ([]models.RepairView, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("unknown status %q", f.Status)
	}
	return repairs.NewSQLiteRepository(s.deps.DB).List(ctx, org.ID, f)
}

func (s *repairService) Search(ctx context.Context, query string) ([]models.RepairView, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return repairs.NewSQLiteRepository(s.deps.DB).Search(ctx, org.ID, query, repairSearchLimit)
}

func (s *repairService) Overstayed(ctx context.Context) ([]models.RepairView, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := s.deps.Clock.Now().AddDate(0, 0, -OverstayDays)
	return repairs.NewSQLiteRepository(s.deps.DB).Overstayed(ctx, org.ID, cutoff)
}

// RevenueStats summarises a calendar month given as "YYYY-MM". An empty month
// means the current one.
func (s *repairService) RevenueStats(ctx context.Context, month string) (*models.RevenueStats, error) {
	org, err := s.deps.tenant(ctx)
	if err != nil {
		return nil, err
	}
	if month == "" {
		month = s.deps.Clock.Now().UTC().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, invalid("month must look like 2024-05")
	}
	return repairs.NewSQLiteRepository(s.deps.DB).RevenueStats(ctx, org.ID, month)
}

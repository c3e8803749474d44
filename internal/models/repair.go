package models

import "time"

type RepairStatus string

const (
	StatusReceived        RepairStatus = "Received"
	StatusDiagnosing      RepairStatus = "Diagnosing"
	StatusPendingApproval RepairStatus = "PendingApproval"
	StatusWaitingParts    RepairStatus = "WaitingParts"
	StatusFixed           RepairStatus = "Fixed"
	StatusCollected       RepairStatus = "Collected"
	StatusUnrepairable    RepairStatus = "Unrepairable"
)

var RepairStatuses = []RepairStatus{
	StatusReceived, StatusDiagnosing, StatusPendingApproval, StatusWaitingParts,
	StatusFixed, StatusCollected, StatusUnrepairable,
}

func (s RepairStatus) Valid() bool {
	for _, v := range RepairStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Repair struct {
	Syncable
	ClientID         string
	AssignedTo       string
	TicketNo         string
	DeviceType       string
	Brand            string
	Model            string
	SerialNo         string
	Accessories      string
	IssueDescription string
	Diagnosis        string
	Status           RepairStatus
	BinLocation      string
	ImagePaths       []string
	InternalCost     float64
	LaborCost        float64
	FinalPrice       float64
	AmountPaid       float64
	PaymentMethod    string
	MpesaCode        string
	IsPaid           bool
	DateFixed        *time.Time
	DateOut          *time.Time
}

// Balance is what the client still owes.
func (r *Repair) Balance() float64 {
	return r.FinalPrice - r.AmountPaid
}

type RepairPatch struct {
	AssignedTo       *string
	DeviceType       *string
	Brand            *string
	Model            *string
	SerialNo         *string
	Accessories      *string
	IssueDescription *string
	Diagnosis        *string
	Status           *RepairStatus
	BinLocation      *string
	ImagePaths       *[]string
	InternalCost     *float64
	LaborCost        *float64
	FinalPrice       *float64
	AmountPaid       *float64
	PaymentMethod    *string
	MpesaCode        *string
	IsPaid           *bool
	DateFixed        *time.Time
	DateOut          *time.Time
}

func (p RepairPatch) IsEmpty() bool {
	return p.AssignedTo == nil && p.DeviceType == nil && p.Brand == nil && p.Model == nil &&
		p.SerialNo == nil && p.Accessories == nil && p.IssueDescription == nil &&
		p.Diagnosis == nil && p.Status == nil && p.BinLocation == nil && p.ImagePaths == nil &&
		p.InternalCost == nil && p.LaborCost == nil && p.FinalPrice == nil &&
		p.AmountPaid == nil && p.PaymentMethod == nil && p.MpesaCode == nil &&
		p.IsPaid == nil && p.DateFixed == nil && p.DateOut == nil
}

// RepairFilter narrows List. Zero values mean "any".
type RepairFilter struct {
	Status     RepairStatus
	ClientID   string
	ActiveOnly bool
	Limit      int
}

// RevenueStats summarises one calendar month ("YYYY-MM").
type RevenueStats struct {
	Month           string
	Revenue         float64
	Profit          float64
	OutstandingDebt float64
	Collected       int
}

// RepairView is a repair joined with its client and assigned technician, as
// listed on the dashboard and in search results.
type RepairView struct {
	Repair
	ClientName     string
	ClientPhone    string
	ClientLocation string
	AssignedToName string
}

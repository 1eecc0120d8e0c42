package handler

import (
	"time"

	"legajo/internal/leave/models"
	"legajo/internal/leave/service"
)

var weekdayNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

type HolidayResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

func FromHoliday(h *models.Holiday) *HolidayResponse {
	return &HolidayResponse{ID: h.ID.String(), Date: formatDate(h.Date), Description: h.Description}
}

type HolidayListResponse struct {
	Year     int                `json:"year"`
	Holidays []*HolidayResponse `json:"holidays"`
}

type WorkPlanResponse struct {
	EmployeeID string   `json:"employee_id"`
	Days       []string `json:"days"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
}

func FromWorkPlan(p *models.WorkPlan) *WorkPlanResponse {
	days := make([]string, 0, len(p.Days))
	for i, works := range p.Days {
		if works {
			days = append(days, weekdayNames[i])
		}
	}
	return &WorkPlanResponse{EmployeeID: p.EmployeeID.String(), Days: days, Start: p.Start, End: p.End}
}

type LeaveTypeResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	MaxDays     int    `json:"max_days"`
	Free        bool   `json:"free"`
	Paid        bool   `json:"paid"`
}

func FromLeaveType(t *models.LeaveType) *LeaveTypeResponse {
	return &LeaveTypeResponse{
		ID:          t.ID.String(),
		Description: t.Description,
		MaxDays:     t.MaxDays,
		Free:        t.Free(),
		Paid:        t.Paid,
	}
}

type LeaveTypeListResponse struct {
	Types []*LeaveTypeResponse `json:"types"`
}

func FromLeaveTypes(list []*models.LeaveType) *LeaveTypeListResponse {
	out := make([]*LeaveTypeResponse, 0, len(list))
	for _, t := range list {
		out = append(out, FromLeaveType(t))
	}
	return &LeaveTypeListResponse{Types: out}
}

type RequestResponse struct {
	ID          string     `json:"id"`
	EmployeeID  string     `json:"employee_id"`
	Kind        string     `json:"kind"`
	TypeID      string     `json:"type_id,omitempty"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Days        int        `json:"days"`
	Status      string     `json:"status"`
	Comment     string     `json:"comment,omitempty"`
	ManagerNote string     `json:"manager_note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

func FromRequest(r *models.Request) *RequestResponse {
	resp := &RequestResponse{
		ID:          r.ID.String(),
		EmployeeID:  r.EmployeeID.String(),
		Kind:        string(r.Kind),
		From:        formatDate(r.From),
		To:          formatDate(r.To),
		Days:        r.Days(),
		Status:      string(r.Status),
		Comment:     r.Comment,
		ManagerNote: r.ManagerNote,
		CreatedAt:   r.CreatedAt,
	}
	if !r.TypeID.IsNil() {
		resp.TypeID = r.TypeID.String()
	}
	if !r.DecidedAt.IsZero() {
		decided := r.DecidedAt
		resp.DecidedAt = &decided
	}
	return resp
}

type SubmitResponse struct {
	Request  *RequestResponse `json:"request"`
	Warnings []string         `json:"warnings"`
}

type RequestListResponse struct {
	Requests []*RequestResponse `json:"requests"`
}

func FromRequests(list []*models.Request) *RequestListResponse {
	out := make([]*RequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, FromRequest(r))
	}
	return &RequestListResponse{Requests: out}
}

type DecisionResponse struct {
	Request      *RequestResponse `json:"request"`
	AutoRejected bool             `json:"auto_rejected"`
	Reason       string           `json:"reason,omitempty"`
	Warnings     []string         `json:"warnings"`
	DaysConsumed int              `json:"days_consumed"`
}

func FromDecision(d service.Decision) *DecisionResponse {
	return &DecisionResponse{
		Request:      FromRequest(d.Request),
		AutoRejected: d.AutoRejected,
		Reason:       d.Reason,
		Warnings:     nonNil(d.Warnings),
		DaysConsumed: d.DaysConsumed,
	}
}

type VacationDaysResponse struct {
	HireDate string `json:"hire_date"`
	Year     int    `json:"year"`
	Cutoff   string `json:"cutoff"`
	Days     int    `json:"days"`
}

type GrantResponse struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Available  int    `json:"available"`
	Consumed   int    `json:"consumed"`
	Remaining  int    `json:"remaining"`
}

func FromGrant(g *models.Grant) *GrantResponse {
	return &GrantResponse{
		ID:         g.ID.String(),
		EmployeeID: g.EmployeeID.String(),
		From:       formatDate(g.From),
		To:         formatDate(g.To),
		Available:  g.Available,
		Consumed:   g.Consumed,
		Remaining:  g.Remaining(),
	}
}

type GrantListResponse struct {
	Grants    []*GrantResponse `json:"grants"`
	Remaining int              `json:"remaining"`
}

func FromGrants(list []*models.Grant) *GrantListResponse {
	resp := &GrantListResponse{Grants: make([]*GrantResponse, 0, len(list))}
	for _, g := range list {
		resp.Grants = append(resp.Grants, FromGrant(g))
		resp.Remaining += g.Remaining()
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package handler

import (
	"time"

	"legajo/internal/audit"
	"legajo/internal/employee/models"
	"legajo/internal/employee/service"
)

type PreviewCUILResponse struct {
	Complete   bool   `json:"complete"`
	CUIL       string `json:"cuil"`
	MaskedCUIL string `json:"masked_cuil"`
	MaskedDNI  string `json:"masked_dni"`
	Fallback   bool   `json:"fallback"`
	Unresolved bool   `json:"unresolved"`
}

func FromPreview(p service.Preview) *PreviewCUILResponse {
	return &PreviewCUILResponse{
		Complete:   p.Complete,
		CUIL:       p.CUIL,
		MaskedCUIL: p.MaskedCUIL,
		MaskedDNI:  p.MaskedDNI,
		Fallback:   p.Fallback,
		Unresolved: p.Unresolved,
	}
}

// EmployeeResponse renders DNI and CUIL in their masked display forms.
type EmployeeResponse struct {
	ID         string    `json:"id"`
	FirstNames string    `json:"first_names"`
	LastName   string    `json:"last_name"`
	DNI        string    `json:"dni"`
	CUIL       string    `json:"cuil"`
	Sex        string    `json:"sex"`
	SexLabel   string    `json:"sex_label"`
	BirthDate  string    `json:"birth_date"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Children   int       `json:"children"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func FromEmployee(e *models.Employee) *EmployeeResponse {
	return &EmployeeResponse{
		ID:         e.ID.String(),
		FirstNames: e.FirstNames,
		LastName:   e.LastName,
		DNI:        e.DNI.Masked(),
		CUIL:       e.MaskedCUIL(),
		Sex:        string(e.Sex),
		SexLabel:   e.Sex.Label(),
		BirthDate:  e.BirthDate.Format(time.DateOnly),
		Phone:      e.Phone,
		Address:    e.Address,
		Children:   e.Children,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

type UpdateEmployeeResponse struct {
	Employee      *EmployeeResponse `json:"employee"`
	ChangedFields []string          `json:"changed_fields"`
}

// SearchResult is one autocomplete suggestion.
type SearchResult struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	DNI   string `json:"dni"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

func FromSearch(list []*models.Employee) *SearchResponse {
	out := &SearchResponse{Results: make([]SearchResult, 0, len(list))}
	for _, e := range list {
		out.Results = append(out.Results, SearchResult{
			ID:    e.ID.String(),
			Label: e.FullName(),
			DNI:   e.DNI.Masked(),
		})
	}
	return out
}

type AuditEventResponse struct {
	ID        string                  `json:"id"`
	Action    string                  `json:"action"`
	Changes   map[string]audit.Change `json:"changes"`
	Actor     string                  `json:"actor,omitempty"`
	RequestID string                  `json:"request_id,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

type HistoryResponse struct {
	Events []AuditEventResponse `json:"events"`
}

func FromHistory(events []audit.Event) *HistoryResponse {
	out := &HistoryResponse{Events: make([]AuditEventResponse, 0, len(events))}
	for _, ev := range events {
		out.Events = append(out.Events, AuditEventResponse{
			ID:        ev.ID.String(),
			Action:    string(ev.Action),
			Changes:   ev.Changes,
			Actor:     ev.Actor,
			RequestID: ev.RequestID,
			Timestamp: ev.Timestamp,
		})
	}
	return out
}

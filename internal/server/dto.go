package server

import (
	"rotaline/internal/domain"
	"rotaline/internal/rota"
)

// Request payloads

type LoginRequest struct {
	Username string `json:"username" minLength:"1"`
	Password string `json:"password"`
}

type PIDUpdateRequest struct {
	Name             *string  `json:"project_name,omitempty"`
	Status           *string  `json:"project_status,omitempty" enum:"proposed,active,on_hold,closed"`
	CompanyID        *int64   `json:"company,omitempty"`
	ProjectManagerID *int64   `json:"project_manager,omitempty"`
	TeamManagerIDs   *[]int64 `json:"team_managers,omitempty"`
	Sponsor          *string  `json:"project_sponsor,omitempty"`
	Description      *string  `json:"project_description,omitempty"`
	BusinessCase     *string  `json:"business_case,omitempty"`
	BusinessBenefits *string  `json:"business_benefits,omitempty"`
	Scope            *string  `json:"project_scope,omitempty"`
	Exclusions       *string  `json:"exclusions,omitempty"`
	Assumptions      *string  `json:"assumptions,omitempty"`
}

// Response payloads

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

type WhoAmIResponse struct {
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	Source      string   `json:"source" enum:"jwt,api_key"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// RotaRowResponse is one person's week. Day columns are keyed "<iso weekday>_r".
type RotaRowResponse struct {
	PK        int64  `json:"pk"`
	User      string `json:"user"`
	Monday    string `json:"1_r"`
	Tuesday   string `json:"2_r"`
	Wednesday string `json:"3_r"`
	Thursday  string `json:"4_r"`
	Friday    string `json:"5_r"`
	Saturday  string `json:"6_r"`
	Sunday    string `json:"7_r"`
}

type ActivityResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type CompanyResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PIDResponse struct {
	Success bool           `json:"success"`
	Data    domain.Project `json:"data"`
}

func mapRotaRow(r rota.Row) RotaRowResponse {
	return RotaRowResponse{
		PK:        r.Person.ID,
		User:      r.Person.Name,
		Monday:    r.Cell(1),
		Tuesday:   r.Cell(2),
		Wednesday: r.Cell(3),
		Thursday:  r.Cell(4),
		Friday:    r.Cell(5),
		Saturday:  r.Cell(6),
		Sunday:    r.Cell(7),
	}
}

func mapUsers(items []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(items))
	for _, u := range items {
		out = append(out, UserResponse{ID: u.ID, Username: u.Username, FullName: u.FullName()})
	}
	return out
}

func nonNilSlice(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

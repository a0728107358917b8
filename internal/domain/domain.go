package domain

import "strings"

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email,omitempty"`
	IsActive     bool   `json:"is_active"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

type Team struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Company struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Project struct {
	Number           string  `json:"project_number"`
	Name             string  `json:"project_name"`
	Status           string  `json:"project_status" enum:"proposed,active,on_hold,closed"`
	CompanyID        *int64  `json:"company,omitempty"`
	ProjectManagerID *int64  `json:"project_manager,omitempty"`
	TeamManagerIDs   []int64 `json:"team_managers"`
	Sponsor          string  `json:"project_sponsor"`
	Description      string  `json:"project_description"`
	BusinessCase     string  `json:"business_case"`
	BusinessBenefits string  `json:"business_benefits"`
	Scope            string  `json:"project_scope"`
	Exclusions       string  `json:"exclusions"`
	Assumptions      string  `json:"assumptions"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

type ProjectACL struct {
	ProjectNumber string `json:"project_number"`
	RoleID        string `json:"role_id"`
	Access        string `json:"access" enum:"read,write"`
}

type RotaActivity struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type RotaItem struct {
	ID         string `json:"id"`
	WorkDate   string `json:"work_date" format:"date"`
	PersonID   int64  `json:"person_id"`
	ActivityID int64  `json:"activity_id"`
	AuthorID   *int64 `json:"author_id,omitempty"`
	UpdatedAt  string `json:"updated_at" format:"date-time"`
}

// EngineeringDay books a person against WIP items or project work items for a date.
type EngineeringDay struct {
	ID         int64    `json:"id"`
	WorkDate   string   `json:"work_date" format:"date"`
	ResourceID int64    `json:"resource_id"`
	DayType    string   `json:"day_type"`
	WIPItems   []string `json:"wip_items,omitempty"`
	WorkItems  []string `json:"work_items,omitempty"`
	CreatedAt  string   `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Actor      string `json:"actor"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

package user

import "time"

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	Name         string     `json:"name"`
	Phone        string     `json:"phone,omitempty"`
	Company      string     `json:"company,omitempty"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLogin    *time.Time `json:"lastLogin"`

	// Display-only placeholders; nothing server-side mutates these.
	PortfolioValue float64 `json:"portfolioValue"`
	TotalReturns   float64 `json:"totalReturns"`

	// Audit trail, informational only.
	SignupIP    string `json:"signupIP,omitempty"`
	LastLoginIP string `json:"lastLoginIP,omitempty"`
	UserAgent   string `json:"-"`
}

// NewUserRequest carries the fields sign-up persists for a fresh account.
type NewUserRequest struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Company      string
	SignupIP     string
	UserAgent    string
}

// Public is the subset of a user that auth endpoints return to the browser.
type Public struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Phone          string     `json:"phone,omitempty"`
	Company        string     `json:"company,omitempty"`
	PortfolioValue float64    `json:"portfolioValue"`
	TotalReturns   float64    `json:"totalReturns"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      *time.Time `json:"lastLogin"`
}

func (u User) Public() Public {
	return Public{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		Phone:          u.Phone,
		Company:        u.Company,
		PortfolioValue: u.PortfolioValue,
		TotalReturns:   u.TotalReturns,
		CreatedAt:      u.CreatedAt,
		LastLogin:      u.LastLogin,
	}
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AdminView is what the admin listing exposes per user: Public plus the
// moderation and audit fields an operator needs.
type AdminView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Phone          string     `json:"phone,omitempty"`
	Company        string     `json:"company,omitempty"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastLogin      *time.Time `json:"lastLogin"`
	PortfolioValue float64    `json:"portfolioValue"`
	TotalReturns   float64    `json:"totalReturns"`
	SignupIP       string     `json:"signupIP,omitempty"`
	LastLoginIP    string     `json:"lastLoginIP,omitempty"`
}

func (u User) AdminView() AdminView {
	return AdminView{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		Phone:          u.Phone,
		Company:        u.Company,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
		LastLogin:      u.LastLogin,
		PortfolioValue: u.PortfolioValue,
		TotalReturns:   u.TotalReturns,
		SignupIP:       u.SignupIP,
		LastLoginIP:    u.LastLoginIP,
	}
}

// Stats is the aggregate block the admin listing returns.
type Stats struct {
	TotalUsers  int64 `json:"totalUsers"`
	ActiveUsers int64 `json:"activeUsers"`
	AdminUsers  int64 `json:"adminUsers"`
	ClientUsers int64 `json:"clientUsers"`
}

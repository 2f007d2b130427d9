package model

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reporta se r é um dos papéis aceitos.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile é a linha de profiles. A instância guarda apenas o nome; o estado
// de conexão vive no gateway.
type Profile struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	InstanceName *string   `json:"instance_name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Instance devolve o nome da instância ou vazio.
func (p Profile) Instance() string {
	if p.InstanceName == nil {
		return ""
	}
	return *p.InstanceName
}

// UserProfile é a linha devolvida por get_all_users_with_profiles.
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	InstanceName *string   `json:"instance_name"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u UserProfile) Instance() string {
	if u.InstanceName == nil {
		return ""
	}
	return *u.InstanceName
}

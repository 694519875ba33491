package api

import "time"

// Settings entities managed through the standard CRUD surface. Validate tags
// mirror the required-field checks the backend enforces, so a bad payload is
// rejected before any network call is made.

type Payer struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name" validate:"required"`
	PayerCode string    `json:"payerCode" validate:"required"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type Plan struct {
	ID       string `json:"id,omitempty"`
	PayerID  string `json:"payerId" validate:"required"`
	Name     string `json:"name" validate:"required"`
	PlanType string `json:"planType"`
	IsActive bool   `json:"isActive"`
}

type FeeSchedule struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name" validate:"required"`
	PayerID       string     `json:"payerId" validate:"required"`
	EffectiveFrom *time.Time `json:"effectiveFrom,omitempty"`
	EffectiveTo   *time.Time `json:"effectiveTo,omitempty"`
	IsActive      bool       `json:"isActive"`
}

// Entity is a billing entity (practice/organization) in the RCM platform.
type Entity struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name" validate:"required"`
	TaxID    string `json:"taxId"`
	NPI      string `json:"npi"`
	IsActive bool   `json:"isActive"`
}

type Provider struct {
	ID        string `json:"id,omitempty"`
	EntityID  string `json:"entityId" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	NPI       string `json:"npi" validate:"required"`
	Specialty string `json:"specialty"`
	IsActive  bool   `json:"isActive"`
}

type ZipGeoMapping struct {
	ID       string `json:"id,omitempty"`
	ZipCode  string `json:"zipCode" validate:"required"`
	Locality string `json:"locality" validate:"required"`
	State    string `json:"state" validate:"required"`
	Carrier  string `json:"carrier"`
}

type Role struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsSystem    bool   `json:"isSystem"`
}

type User struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	RoleID    string `json:"roleId" validate:"required"`
	IsActive  bool   `json:"isActive"`
}

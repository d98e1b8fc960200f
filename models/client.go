package models

import "time"

const ClientTable = "grd_clients"

// Client 借用人
type Client struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:100;index;not null" json:"name"`
	Identity     string    `gorm:"size:20;not null" json:"identity"`
	CPF          *string   `gorm:"size:14;uniqueIndex" json:"cpf,omitempty"`
	MilitaryUnit string    `gorm:"size:100" json:"militaryUnit,omitempty"`
	IsActive     bool      `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Client) TableName() string { return ClientTable }

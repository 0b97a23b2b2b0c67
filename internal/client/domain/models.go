package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Client struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"not null;index" json:"name"`
	TaxCode    string       `gorm:"column:tax_code" json:"tax_code,omitempty"`
	Address    string       `json:"address,omitempty"`
	City       string       `json:"city,omitempty"`
	Province   string       `json:"province,omitempty"`
	PostalCode string       `gorm:"column:postal_code" json:"postal_code,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Email      string       `json:"email,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

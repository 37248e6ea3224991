package model

import (
	"time"

	"github.com/google/uuid"
)

// Client is owned by the surrounding system; documents reference it.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"size:200;not null" json:"full_name"`
	Email     string    `gorm:"size:200" json:"email,omitempty"`
	Phone     string    `gorm:"size:50" json:"phone,omitempty"`
	Address   string    `gorm:"size:500" json:"address,omitempty"`
	City      string    `gorm:"size:100" json:"city,omitempty"`
	PostCode  string    `gorm:"size:20" json:"post_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

package model

import "time"

// Position is the durable share count for a symbol. Quantity never goes
// negative; a closed position persists at zero rather than being deleted.
type Position struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"size:20;not null;uniqueIndex" json:"symbol"`
	Quantity  int64     `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

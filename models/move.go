// models/move.go
package models

import "time"

// Move is one applied ply. Rows are append-only; the latest move's FEN always
// equals the owning game's current FEN because both are written in the same
// transaction.
type Move struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	GameID  uint   `json:"game_id" gorm:"not null;index"`
	UserID  uint   `json:"user_id" gorm:"not null;index"`
	MoveStr string `json:"movestr" gorm:"not null"`
	FEN     string `json:"fen" gorm:"not null"`

	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime"`
}

// models/invitation.go
package models

import "time"

const (
	GameTypeChess = "CHESS"
)

const (
	InvitationPending   = "PENDING"
	InvitationAccepted  = "ACCEPTED"
	InvitationDeclined  = "DECLINED"
	InvitationCancelled = "CANCELLED"
)

// Invitation is a directed proposal from one user to a named opponent.
// Status only ever leaves PENDING once; the transition is guarded by a
// conditional update so two concurrent answers can't both win.
type Invitation struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	FromID   uint   `json:"from_id" gorm:"not null;index"`
	ToID     uint   `json:"to_id" gorm:"not null;index"`
	GameType string `json:"game_type" gorm:"not null;default:'CHESS'"`
	Status   string `json:"status" gorm:"not null;default:'PENDING';index"`

	DateSent     time.Time  `json:"date_sent" gorm:"autoCreateTime"`
	DateAnswered *time.Time `json:"date_answered,omitempty"`

	From User `json:"-" gorm:"foreignKey:FromID"`
	To   User `json:"-" gorm:"foreignKey:ToID"`
}

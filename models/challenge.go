// models/challenge.go
package models

import "time"

const (
	ChallengePending   = "PENDING"
	ChallengeAccepted  = "ACCEPTED"
	ChallengeCancelled = "CANCELLED"
	// DECLINED is terminal like the others but nothing drives it yet; it is
	// reserved for a symmetric-response flow.
	ChallengeDeclined = "DECLINED"
)

// ChallengeRequest is an open, undirected offer to play. Any eligible user
// except the requester may claim it; the claim races through the same
// conditional-update discipline as Invitation.
type ChallengeRequest struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	RequesterID uint   `json:"requester_id" gorm:"not null;index"`
	GameType    string `json:"game_type" gorm:"not null;default:'CHESS'"`
	Status      string `json:"status" gorm:"not null;default:'PENDING';index"`

	// Set together with Status=ACCEPTED, in the same transaction that
	// creates the game.
	FulfilledBy *uint `json:"fulfilled_by,omitempty"`
	GameID      *uint `json:"game_id,omitempty"`

	DateRequested time.Time  `json:"date_requested" gorm:"autoCreateTime"`
	DateAnswered  *time.Time `json:"date_answered,omitempty"`

	Requester User `json:"-" gorm:"foreignKey:RequesterID"`
}

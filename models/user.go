// models/user.go
package models

import "time"

type User struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name" gorm:"uniqueIndex;not null"`
	Password *string `json:"-"`
	Email    *string `json:"email,omitempty" gorm:"uniqueIndex"`

	// Soft delete flag. Deleted users keep their row so that finished games
	// and moves still resolve, but email/password are nulled and the account
	// can no longer log in or be invited.
	Deleted bool `json:"deleted" gorm:"not null;default:false"`

	Wins   int `json:"wins" gorm:"not null;default:0"`
	Draws  int `json:"draws" gorm:"not null;default:0"`
	Losses int `json:"losses" gorm:"not null;default:0"`

	DateJoined time.Time `json:"date_joined" gorm:"autoCreateTime"`
}

// models/game.go
package models

import "time"

// StartingFEN is the standard chess starting position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Game results. The first five come back from the chess-workers service;
// the last three are only ever produced by this API.
const (
	ResultCheckmate            = "CHECKMATE"
	ResultStalemate            = "STALEMATE"
	ResultInsufficientMaterial = "INSUFFICIENTMATERIAL"
	ResultThreefoldRepetition  = "THREEFOLDREPETITION"
	ResultFiftyMoveRule        = "FIFTYMOVERULE"

	ResultDrawByAgreement = "DRAWBYAGREEMENT"
	ResultResignation     = "RESIGNATION"
	ResultTimeout         = "TIMEOUT"
)

// DrawResult reports whether a game result is a draw (no winner).
func DrawResult(result string) bool {
	switch result {
	case ResultStalemate, ResultInsufficientMaterial, ResultThreefoldRepetition,
		ResultFiftyMoveRule, ResultDrawByAgreement:
		return true
	}
	return false
}

type Game struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	GameType string `json:"game_type" gorm:"not null;default:'CHESS'"`

	// Exactly one of these back-references is set, depending on whether the
	// game came out of an invitation or an open challenge.
	InvitationID *uint `json:"invitation_id,omitempty"`
	ChallengeID  *uint `json:"challenge_id,omitempty"`

	// Sides are assigned randomly once at creation and never change.
	White uint `json:"white" gorm:"not null"`
	Black uint `json:"black" gorm:"not null"`

	// Whomst holds the id of the player whose turn it is. White moves first.
	Whomst uint `json:"whomst" gorm:"not null"`

	Winner   *uint   `json:"winner,omitempty"`
	IsActive bool    `json:"is_active" gorm:"not null;default:true;index"`
	Result   *string `json:"result,omitempty"`

	FEN string `json:"fen" gorm:"not null;default:'rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1'"`

	// States is an opaque blob owned by the chess-workers service (repetition
	// counters, move clocks, ...). It is stored and round-tripped verbatim,
	// never parsed here.
	States string `json:"states" gorm:"not null;default:'{}'"`

	DateStarted time.Time `json:"date_started" gorm:"autoCreateTime"`
	LastActive  time.Time `json:"last_active" gorm:"autoCreateTime;index"`
}

// Opponent returns the other player of the game. The caller must already
// know userID is one of the two players.
func (g *Game) Opponent(userID uint) uint {
	if userID == g.White {
		return g.Black
	}
	return g.White
}

// HasPlayer reports whether userID holds one of the game's two sides.
func (g *Game) HasPlayer(userID uint) bool {
	return userID == g.White || userID == g.Black
}

// services/game_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"chess-match-system/models"
	"chess-match-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type GameService struct {
	DB  *gorm.DB
	Hub LiveUpdateHub
}

func NewGameService(db *gorm.DB, hub LiveUpdateHub) *GameService {
	return &GameService{DB: db, Hub: hub}
}

// createGameTx creates the game paired with an accepted invitation or
// challenge. It must run inside the same transaction as the parent's state
// transition so either both rows exist or neither does.
//
// Sides are shuffled uniformly; white always moves first.
func createGameTx(tx *gorm.DB, a, b uint, gameType string, invitationID, challengeID *uint) (*models.Game, error) {
	white, black := a, b
	if rand.Intn(2) == 1 {
		white, black = b, a
	}
	game := models.Game{
		GameType:     gameType,
		InvitationID: invitationID,
		ChallengeID:  challengeID,
		White:        white,
		Black:        black,
		Whomst:       white,
		IsActive:     true,
		FEN:          models.StartingFEN,
		States:       "{}",
	}
	if err := tx.Create(&game).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// finishGameTx performs the terminal transition, conditional on the game
// still being active so two racing terminations can't both commit. Returns
// false when the race was lost.
func finishGameTx(tx *gorm.DB, game *models.Game, result string, winner *uint) (bool, error) {
	res := tx.Model(&models.Game{}).
		Where("id = ? AND is_active = ?", game.ID, true).
		Updates(map[string]interface{}{
			"winner":      winner,
			"result":      result,
			"is_active":   false,
			"last_active": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, applyCountersTx(tx, game, winner)
}

// applyCountersTx bumps the players' win/draw/loss tallies for a finished
// game. Runs in the terminating transaction.
func applyCountersTx(tx *gorm.DB, game *models.Game, winner *uint) error {
	if winner == nil {
		return tx.Model(&models.User{}).
			Where("id IN ?", []uint{game.White, game.Black}).
			Update("draws", gorm.Expr("draws + 1")).Error
	}
	if err := tx.Model(&models.User{}).Where("id = ?", *winner).
		Update("wins", gorm.Expr("wins + 1")).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{}).Where("id = ?", game.Opponent(*winner)).
		Update("losses", gorm.Expr("losses + 1")).Error
}

// Forfeit resigns the game on behalf of callerID. The opponent wins. No move
// row is produced and no consent is required.
func (s *GameService) Forfeit(gameID, callerID uint) (*models.Game, error) {
	var game models.Game
	err := s.DB.First(&game, gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: game '%d' does not exist", ErrNotFound, gameID)
	}
	if err != nil {
		return nil, err
	}
	if !game.HasPlayer(callerID) {
		return nil, fmt.Errorf("%w: user '%d' not a player in game '%d'", ErrForbidden, callerID, gameID)
	}

	winner := game.Opponent(callerID)
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		done, err := finishGameTx(tx, &game, models.ResultResignation, &winner)
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("%w: game '%d' is no longer active", ErrConflict, gameID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.DB.First(&game, gameID).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// SweepTimeouts terminates active games whose player on turn has been idle
// longer than timeout. TIMEOUT is the one result the evaluator never
// produces; it is owned by this API. The opponent of the player on turn
// wins. Returns how many games were closed.
func (s *GameService) SweepTimeouts(timeout time.Duration) (int, error) {
	cutoff := time.Now().Add(-timeout)

	var stale []models.Game
	if err := s.DB.Where("is_active = ? AND last_active < ?", true, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	closed := 0
	for i := range stale {
		game := stale[i]
		winner := game.Opponent(game.Whomst)
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			done, err := finishGameTx(tx, &game, models.ResultTimeout, &winner)
			if err != nil {
				return err
			}
			if done {
				closed++
			}
			// a lost race just means someone moved or forfeited in time
			return nil
		})
		if err != nil {
			return closed, err
		}
	}
	return closed, nil
}

// --- Fiber handlers ---

func (s *GameService) GetGames(c *fiber.Ctx) error {
	skip, limit, reverse := utils.Pagination(c)

	q := s.DB.Model(&models.Game{})
	if id := c.QueryInt("game_id", 0); id > 0 {
		q = q.Where("id = ?", id)
	}
	if id := c.QueryInt("invitation_id", 0); id > 0 {
		q = q.Where("invitation_id = ?", id)
	}
	if id := c.QueryInt("challenge_id", 0); id > 0 {
		q = q.Where("challenge_id = ?", id)
	}
	if id := c.QueryInt("white_id", 0); id > 0 {
		q = q.Where("white = ?", id)
	}
	if id := c.QueryInt("black_id", 0); id > 0 {
		q = q.Where("black = ?", id)
	}
	if id := c.QueryInt("whomst_id", 0); id > 0 {
		q = q.Where("whomst = ?", id)
	}
	if id := c.QueryInt("winner_id", 0); id > 0 {
		q = q.Where("winner = ?", id)
	}
	if id := c.QueryInt("player_id", 0); id > 0 {
		q = q.Where("white = ? OR black = ?", id, id)
	}
	if raw := c.Query("is_active"); raw != "" {
		q = q.Where("is_active = ?", c.QueryBool("is_active"))
	}

	order := "date_started ASC"
	if reverse {
		order = "date_started DESC"
	}

	var games []models.Game
	if err := q.Order(order).Offset(skip).Limit(limit).Find(&games).Error; err != nil {
		log.Printf("DB error listing games: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(games)
}

func (s *GameService) GetGameByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}
	var game models.Game
	if err := s.DB.First(&game, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "game not found"})
		}
		return respondErr(c, err)
	}
	return c.JSON(game)
}

func (s *GameService) ForfeitGame(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}
	callerID := c.Locals("user_id").(uint)

	game, err := s.Forfeit(uint(id), callerID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(game)
}

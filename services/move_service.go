// services/move_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chess-match-system/models"
	"chess-match-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// MoveService ties board mutation to turn handover and game termination.
// The evaluator is consulted outside the transaction (it mutates nothing);
// the Move insert and the Game update commit together, so the latest move's
// FEN and the game's FEN can never disagree.
type MoveService struct {
	DB        *gorm.DB
	Evaluator *EvaluatorClient
	Hub       LiveUpdateHub
}

func NewMoveService(db *gorm.DB, evaluator *EvaluatorClient, hub LiveUpdateHub) *MoveService {
	return &MoveService{DB: db, Evaluator: evaluator, Hub: hub}
}

// ApplyMove performs one ply for callerID on the given game.
func (s *MoveService) ApplyMove(ctx context.Context, gameID, callerID uint, moveStr string) (*models.Game, error) {
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
	if callerID != game.Whomst {
		return nil, fmt.Errorf("%w: it is not the turn of user '%d'", ErrInvalidTurn, callerID)
	}

	verdict, err := s.Evaluator.DoMove(ctx, game.FEN, moveStr, game.States)
	if err != nil {
		return nil, err
	}

	whomst := game.Opponent(callerID)

	var winner *uint
	var result *string
	active := true
	switch verdict.Status {
	case EvalMoveOK, EvalCheck:
		// game continues
	case models.ResultCheckmate:
		active = false
		res := verdict.Status
		result = &res
		winner = &callerID
	case models.ResultStalemate, models.ResultInsufficientMaterial,
		models.ResultThreefoldRepetition, models.ResultFiftyMoveRule:
		active = false
		res := verdict.Status
		result = &res
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrUpstreamUnavailable, verdict.Status)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// Conditional on is_active and on the turn still being the caller's,
		// so neither a concurrent forfeit/timeout nor a duplicate submission
		// of the same ply can land twice.
		res := tx.Model(&models.Game{}).
			Where("id = ? AND is_active = ? AND whomst = ?", gameID, true, callerID).
			Updates(map[string]interface{}{
				"fen":         verdict.FEN,
				"states":      string(verdict.States),
				"whomst":      whomst,
				"is_active":   active,
				"result":      result,
				"winner":      winner,
				"last_active": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: game '%d' changed state during the move", ErrConflict, gameID)
		}

		move := models.Move{GameID: gameID, UserID: callerID, MoveStr: moveStr, FEN: verdict.FEN}
		if err := tx.Create(&move).Error; err != nil {
			return err
		}

		if !active {
			return applyCountersTx(tx, &game, winner)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit fan-out. Best-effort: never blocks or fails the move.
	s.Hub.Publish(gameID, NewMoveEvent(gameID, moveStr, verdict.FEN, verdict.Status, whomst))

	if err := s.DB.First(&game, gameID).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// --- Fiber handlers ---

type DoMoveRequest struct {
	Move string `json:"move"`
}

func (s *MoveService) DoMove(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid game id"})
	}
	callerID := c.Locals("user_id").(uint)

	var req DoMoveRequest
	if err := c.BodyParser(&req); err != nil || req.Move == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "'move' is required"})
	}

	game, err := s.ApplyMove(c.Context(), uint(id), callerID, req.Move)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(game)
}

func (s *MoveService) GetMoves(c *fiber.Ctx) error {
	skip, limit, reverse := utils.Pagination(c)

	q := s.DB.Model(&models.Move{})
	if id := c.QueryInt("move_id", 0); id > 0 {
		q = q.Where("id = ?", id)
	}
	if id := c.QueryInt("user_id", 0); id > 0 {
		q = q.Where("user_id = ?", id)
	}
	if id := c.QueryInt("game_id", 0); id > 0 {
		q = q.Where("game_id = ?", id)
	}

	// moves for a game form a total order; id breaks timestamp ties
	order := "id ASC"
	if reverse {
		order = "id DESC"
	}

	var moves []models.Move
	if err := q.Order(order).Offset(skip).Limit(limit).Find(&moves).Error; err != nil {
		log.Printf("DB error listing moves: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(moves)
}

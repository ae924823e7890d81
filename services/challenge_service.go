// services/challenge_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"chess-match-system/models"
	"chess-match-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ChallengeService owns the open-challenge state machine. Same transition
// discipline as InvitationService: conditional update on status = 'PENDING',
// loser of a race gets a conflict. Accepting claims the challenge, creates
// the game, and records who fulfilled it — all in one transaction.
type ChallengeService struct {
	DB              *gorm.DB
	ListPendingOnly bool
}

func NewChallengeService(db *gorm.DB, listPendingOnly bool) *ChallengeService {
	return &ChallengeService{DB: db, ListPendingOnly: listPendingOnly}
}

// Create inserts a PENDING open challenge. A requester with a pending
// challenge already outstanding may not stack another one.
func (s *ChallengeService) Create(requesterID uint, gameType string) (*models.ChallengeRequest, error) {
	if gameType == "" {
		gameType = models.GameTypeChess
	}

	var count int64
	if err := s.DB.Model(&models.ChallengeRequest{}).
		Where("requester_id = ? AND status = ?", requesterID, models.ChallengePending).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: user '%d' already has a pending challenge", ErrConflict, requesterID)
	}

	challenge := models.ChallengeRequest{RequesterID: requesterID, GameType: gameType, Status: models.ChallengePending}
	if err := s.DB.Create(&challenge).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

// Accept claims a pending challenge for acceptorID. The conditional update
// makes the claim exactly-once: of two simultaneous acceptors, one wins and
// the other observes zero rows affected.
func (s *ChallengeService) Accept(id, acceptorID uint) (*models.Game, error) {
	challenge, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if challenge.RequesterID == acceptorID {
		return nil, fmt.Errorf("%w: cannot accept own challenge", ErrInvalidArgument)
	}

	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("id = ? AND deleted = ?", challenge.RequesterID, false).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: user '%d' who created challenge '%d' no longer exists", ErrNotFound, challenge.RequesterID, id)
	}

	var game *models.Game
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ChallengeRequest{}).
			Where("id = ? AND status = ?", id, models.ChallengePending).
			Updates(map[string]interface{}{
				"status":        models.ChallengeAccepted,
				"fulfilled_by":  acceptorID,
				"date_answered": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: challenge '%d' is no longer available", ErrConflict, id)
		}

		chID := id
		game, err = createGameTx(tx, challenge.RequesterID, acceptorID, challenge.GameType, nil, &chID)
		if err != nil {
			return err
		}
		// Record the spawned game back onto the challenge row.
		return tx.Model(&models.ChallengeRequest{}).
			Where("id = ?", id).
			Update("game_id", game.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// Cancel withdraws a pending challenge. Only the requester may cancel.
func (s *ChallengeService) Cancel(id, callerID uint) error {
	challenge, err := s.load(id)
	if err != nil {
		return err
	}
	if challenge.RequesterID != callerID {
		return fmt.Errorf("%w: can't cancel someone else's challenge", ErrForbidden)
	}

	result := s.DB.Model(&models.ChallengeRequest{}).
		Where("id = ? AND status = ?", id, models.ChallengePending).
		Updates(map[string]interface{}{
			"status":        models.ChallengeCancelled,
			"date_answered": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: challenge '%d' is no longer pending", ErrConflict, id)
	}
	return nil
}

func (s *ChallengeService) load(id uint) (*models.ChallengeRequest, error) {
	var challenge models.ChallengeRequest
	err := s.DB.First(&challenge, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: challenge '%d' does not exist", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

// --- Fiber handlers ---

type CreateChallengeRequest struct {
	GameType string `json:"game_type"`
}

func (s *ChallengeService) CreateChallenge(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(uint)

	var req CreateChallengeRequest
	// body is optional; game type defaults to CHESS
	_ = c.BodyParser(&req)

	challenge, err := s.Create(callerID, req.GameType)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

func (s *ChallengeService) GetChallenges(c *fiber.Ctx) error {
	skip, limit, reverse := utils.Pagination(c)

	q := s.DB.Model(&models.ChallengeRequest{})
	if id := c.QueryInt("requester_id", 0); id > 0 {
		q = q.Where("requester_id = ?", id)
	}
	if id := c.QueryInt("responder_id", 0); id > 0 {
		q = q.Where("fulfilled_by = ?", id)
	}
	if id := c.QueryInt("challenge_id", 0); id > 0 {
		q = q.Where("id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	} else if s.ListPendingOnly {
		q = q.Where("status = ?", models.ChallengePending)
	}

	order := "date_requested ASC"
	if reverse {
		order = "date_requested DESC"
	}

	var challenges []models.ChallengeRequest
	if err := q.Order(order).Offset(skip).Limit(limit).Find(&challenges).Error; err != nil {
		log.Printf("DB error listing challenges: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(challenges)
}

func (s *ChallengeService) AcceptChallenge(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid challenge id"})
	}
	callerID := c.Locals("user_id").(uint)

	game, err := s.Accept(uint(id), callerID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"game_id": game.ID})
}

func (s *ChallengeService) CancelChallenge(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid challenge id"})
	}
	callerID := c.Locals("user_id").(uint)

	if err := s.Cancel(uint(id), callerID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "OK"})
}

// services/invitation_service.go
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

// InvitationService owns the invitation state machine:
// PENDING -> ACCEPTED | DECLINED | CANCELLED, terminal once non-pending.
//
// Every transition is a conditional update guarded by status = 'PENDING';
// zero rows affected means another caller transitioned the row first and the
// operation reports a conflict. No in-process locks, so the discipline stays
// correct across replicas.
type InvitationService struct {
	DB              *gorm.DB
	ListPendingOnly bool
}

func NewInvitationService(db *gorm.DB, listPendingOnly bool) *InvitationService {
	return &InvitationService{DB: db, ListPendingOnly: listPendingOnly}
}

// Create inserts a PENDING invitation from sender to recipient.
func (s *InvitationService) Create(senderID, recipientID uint, gameType string) (*models.Invitation, error) {
	if senderID == recipientID {
		return nil, fmt.Errorf("%w: cannot invite self", ErrInvalidArgument)
	}
	if gameType == "" {
		gameType = models.GameTypeChess
	}

	var recipient models.User
	err := s.DB.Where("id = ? AND deleted = ?", recipientID, false).First(&recipient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: addressee '%d' does not exist", ErrNotFound, recipientID)
	}
	if err != nil {
		return nil, err
	}

	invitation := models.Invitation{FromID: senderID, ToID: recipientID, GameType: gameType, Status: models.InvitationPending}
	if err := s.DB.Create(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// Accept transitions the invitation to ACCEPTED and creates the paired game
// in the same transaction, so a crash between the two is impossible.
func (s *InvitationService) Accept(id, callerID uint) (*models.Game, error) {
	invitation, err := s.loadForAnswer(id)
	if err != nil {
		return nil, err
	}
	if invitation.ToID != callerID {
		return nil, fmt.Errorf("%w: invitation '%d' not addressed to user '%d'", ErrForbidden, id, callerID)
	}

	// The sender may have deleted their account since sending.
	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("id = ? AND deleted = ?", invitation.FromID, false).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: user '%d' who sent invitation '%d' no longer exists", ErrNotFound, invitation.FromID, id)
	}

	var game *models.Game
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.transitionTx(tx, id, models.InvitationAccepted); err != nil {
			return err
		}
		invID := id
		game, err = createGameTx(tx, invitation.FromID, invitation.ToID, invitation.GameType, &invID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return game, nil
}

// Decline rejects a pending invitation. Only the recipient may decline.
func (s *InvitationService) Decline(id, callerID uint) error {
	invitation, err := s.loadForAnswer(id)
	if err != nil {
		return err
	}
	if invitation.ToID != callerID {
		return fmt.Errorf("%w: invitation '%d' not addressed to user '%d'", ErrForbidden, id, callerID)
	}
	return s.transitionTx(s.DB, id, models.InvitationDeclined)
}

// Cancel withdraws a pending invitation. Only the sender may cancel.
func (s *InvitationService) Cancel(id, callerID uint) error {
	invitation, err := s.loadForAnswer(id)
	if err != nil {
		return err
	}
	if invitation.FromID != callerID {
		return fmt.Errorf("%w: invitation '%d' not sent by user '%d'", ErrForbidden, id, callerID)
	}
	return s.transitionTx(s.DB, id, models.InvitationCancelled)
}

func (s *InvitationService) loadForAnswer(id uint) (*models.Invitation, error) {
	var invitation models.Invitation
	err := s.DB.First(&invitation, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invitation '%d' does not exist", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// transitionTx is the single conditional-update site for all three terminal
// transitions. Exactly one of two racing callers sees RowsAffected == 1.
func (s *InvitationService) transitionTx(tx *gorm.DB, id uint, to string) error {
	result := tx.Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationPending).
		Updates(map[string]interface{}{"status": to, "date_answered": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: invitation '%d' is no longer pending", ErrConflict, id)
	}
	return nil
}

// --- Fiber handlers ---

type CreateInvitationRequest struct {
	ToID     uint   `json:"to_id"`
	GameType string `json:"game_type"`
}

func (s *InvitationService) CreateInvitation(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(uint)

	var req CreateInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.ToID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "'to_id' is required"})
	}

	invitation, err := s.Create(callerID, req.ToID, req.GameType)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invitation)
}

func (s *InvitationService) GetInvitations(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(uint)
	skip, limit, reverse := utils.Pagination(c)

	toID := c.QueryInt("to_id", 0)
	fromID := c.QueryInt("from_id", 0)
	if toID <= 0 && fromID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "'to_id' or 'from_id' must be supplied"})
	}
	if uint(toID) != callerID && uint(fromID) != callerID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "'to_id' or 'from_id' must match the requestor's user ID"})
	}

	q := s.DB.Model(&models.Invitation{})
	if toID > 0 {
		q = q.Where("to_id = ?", toID)
	}
	if fromID > 0 {
		q = q.Where("from_id = ?", fromID)
	}
	if id := c.QueryInt("invitation_id", 0); id > 0 {
		q = q.Where("id = ?", id)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	} else if s.ListPendingOnly {
		q = q.Where("status = ?", models.InvitationPending)
	}

	order := "date_sent ASC"
	if reverse {
		order = "date_sent DESC"
	}

	var invitations []models.Invitation
	if err := q.Order(order).Offset(skip).Limit(limit).Find(&invitations).Error; err != nil {
		log.Printf("DB error listing invitations: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(invitations)
}

func (s *InvitationService) AcceptInvitation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid invitation id"})
	}
	callerID := c.Locals("user_id").(uint)

	game, err := s.Accept(uint(id), callerID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"game_id": game.ID})
}

func (s *InvitationService) DeclineInvitation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid invitation id"})
	}
	callerID := c.Locals("user_id").(uint)

	if err := s.Decline(uint(id), callerID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "OK"})
}

func (s *InvitationService) CancelInvitation(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid invitation id"})
	}
	callerID := c.Locals("user_id").(uint)

	if err := s.Cancel(uint(id), callerID); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "OK"})
}

// services/user_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chess-match-system/models"
	"chess-match-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	DB       *gorm.DB
	Secret   string
	TokenTTL time.Duration
}

func NewUserService(db *gorm.DB, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{DB: db, Secret: secret, TokenTTL: tokenTTL}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateUser hashes the password and inserts the row. Name/email uniqueness
// is pre-checked; a duplicate slipping through the check-then-insert race
// surfaces as a raw persistence error.
func (s *UserService) CreateUser(name, email, password string) (*models.User, error) {
	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("name = ? OR email = ?", name, email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: name or email already taken", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)
	user := models.User{Name: name, Email: &email, Password: &hashStr}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login checks the credentials and returns a signed JWT. Deleted users have
// a nil password hash and can never pass the compare.
func (s *UserService) Login(name, password string) (string, error) {
	var user models.User
	err := s.DB.Where("name = ? AND deleted = ?", name, false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: bad username or password", ErrForbidden)
	}
	if err != nil {
		return "", err
	}
	if user.Password == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password)) != nil {
		return "", fmt.Errorf("%w: bad username or password", ErrForbidden)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":       time.Now().Add(s.TokenTTL).Unix(),
		"user_id":   user.ID,
		"user_name": user.Name,
	})
	return token.SignedString([]byte(s.Secret))
}

// DeleteUser soft-deletes: the row stays for historical foreign keys, but
// email and password are cleared and never reused. Conditional on the user
// not being deleted already.
func (s *UserService) DeleteUser(id uint) error {
	result := s.DB.Model(&models.User{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{"deleted": true, "email": nil, "password": nil})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: user '%d' does not exist", ErrNotFound, id)
	}
	return nil
}

var userOrderColumns = map[string]string{
	"date_joined": "date_joined",
	"name":        "name",
	"wins":        "wins",
	"draws":       "draws",
	"losses":      "losses",
}

// --- Fiber handlers ---

func (s *UserService) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, email and password are required"})
	}
	if len(req.Name) > 64 || !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid name or email"})
	}

	user, err := s.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (s *UserService) LoginHandler(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	token, err := s.Login(req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			// bad credentials are a 401 here, not a 403
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "bad username or password"})
		}
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"token": token})
}

func (s *UserService) GetUsers(c *fiber.Ctx) error {
	skip, limit, reverse := utils.Pagination(c)

	q := s.DB.Model(&models.User{})
	if id := c.QueryInt("user_id", 0); id > 0 {
		q = q.Where("id = ?", id)
	}
	if name := c.Query("user_name"); name != "" {
		q = q.Where("name = ?", name)
	}

	col, ok := userOrderColumns[c.Query("order_by", "date_joined")]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order_by"})
	}
	dir := " ASC"
	if reverse {
		dir = " DESC"
	}

	var users []models.User
	if err := q.Order(col + dir).Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		log.Printf("DB error listing users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(users)
}

func (s *UserService) GetSelf(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return respondErr(c, err)
	}
	return c.JSON(user)
}

func (s *UserService) DeleteSelf(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(uint)
	if err := s.DeleteUser(userID); err != nil {
		return respondErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *UserService) NameExists(c *fiber.Ctx) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("name = ?", c.Params("name")).Count(&count).Error; err != nil {
		return respondErr(c, err)
	}
	if count == 0 {
		return c.JSON(fiber.Map{"exists": false, "detail": "username does not exist"})
	}
	return c.JSON(fiber.Map{"exists": true, "detail": "username exists"})
}

func (s *UserService) EmailExists(c *fiber.Ctx) error {
	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", c.Params("email")).Count(&count).Error; err != nil {
		return respondErr(c, err)
	}
	if count == 0 {
		return c.JSON(fiber.Map{"exists": false, "detail": "email does not exist"})
	}
	return c.JSON(fiber.Map{"exists": true, "detail": "email exists"})
}

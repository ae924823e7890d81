// services/errors.go
package services

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Engine-level error kinds. Handler methods translate these to HTTP statuses;
// everything else is treated as an unexpected persistence error and mapped to
// a generic 500 without leaking internals.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict means the entity's state changed between read and
	// conditional write — another caller got there first. The loser of the
	// race reports this instead of retrying or silently succeeding.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTurn is a move attempted out of turn. Distinct from the
	// evaluator rejecting the move itself.
	ErrInvalidTurn = errors.New("not your turn")

	// ErrUpstreamRejected carries the chess-workers verdict that the move is
	// illegal or the game already concluded. No state was mutated.
	ErrUpstreamRejected = errors.New("move rejected")

	// ErrUpstreamUnavailable covers evaluator timeouts, 5xx and malformed
	// responses. Never partially applied.
	ErrUpstreamUnavailable = errors.New("move evaluation service unavailable")
)

// respondErr maps an engine error to a JSON error response.
func respondErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidTurn), errors.Is(err, ErrUpstreamRejected):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrUpstreamUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("unexpected error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

// services/sse_game_service.go
package services

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"chess-match-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// heartbeat interval for idle streams; keeps intermediary proxies from
// closing the connection.
const sseHeartbeat = 20 * time.Second

// StreamGameUpdates streams live move events for one game over SSE. This is
// a live tail only — a client that connects after a move was published will
// not see it, and there is no replay on reconnect.
func (s *GameService) StreamGameUpdates(c *fiber.Ctx) error {
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

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache, no-transform")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, cancel := s.Hub.Subscribe(game.ID)
	ctx := c.Context()

	// Use fasthttp stream writer (THIS replaces Flush)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(sseHeartbeat)
		defer ticker.Stop()

		w.WriteString(": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case data, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-ticker.C:
				w.WriteString(": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}

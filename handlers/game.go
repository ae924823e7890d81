// handlers/game.go
package handlers

import (
	"chess-match-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(app *fiber.App, gameService *services.GameService, moveService *services.MoveService, auth fiber.Handler) {
	secured := app.Group("/", auth)

	secured.Get("/games", gameService.GetGames)
	secured.Get("/games/:id", gameService.GetGameByID)
	secured.Post("/games/:id/move", moveService.DoMove)
	secured.Post("/games/:id/forfeit", gameService.ForfeitGame)

	// live update stream (SSE)
	secured.Get("/games/:id/updates", gameService.StreamGameUpdates)

	secured.Get("/moves", moveService.GetMoves)
}

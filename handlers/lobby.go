// handlers/lobby.go
package handlers

import (
	"chess-match-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupLobbyRoutes wires the two ways of starting a game: directed
// invitations and open challenges.
func SetupLobbyRoutes(app *fiber.App, invitations *services.InvitationService, challenges *services.ChallengeService, auth fiber.Handler) {
	secured := app.Group("/", auth)

	secured.Post("/invitations", invitations.CreateInvitation)
	secured.Get("/invitations", invitations.GetInvitations)
	secured.Put("/invitations/:id/accept", invitations.AcceptInvitation)
	secured.Put("/invitations/:id/decline", invitations.DeclineInvitation)
	secured.Put("/invitations/:id/cancel", invitations.CancelInvitation)

	secured.Post("/challenges", challenges.CreateChallenge)
	secured.Get("/challenges", challenges.GetChallenges)
	secured.Post("/challenges/:id/accept", challenges.AcceptChallenge)
	secured.Post("/challenges/:id/cancel", challenges.CancelChallenge)
}

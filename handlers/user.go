// handlers/user.go
package handlers

import (
	"chess-match-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, auth fiber.Handler) {
	// Public routes — account creation, login and availability checks
	app.Post("/signup", userService.Signup)
	app.Post("/login", userService.LoginHandler)
	app.Get("/users/name/:name", userService.NameExists)
	app.Get("/users/email/:email", userService.EmailExists)

	secured := app.Group("/", auth)
	secured.Get("/users", userService.GetUsers)
	secured.Get("/users/self", userService.GetSelf)
	secured.Delete("/users/self", userService.DeleteSelf)
}

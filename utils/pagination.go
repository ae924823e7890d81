// utils/pagination.go
package utils

import "github.com/gofiber/fiber/v2"

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Pagination reads and clamps skip/limit/reverse query params.
func Pagination(c *fiber.Ctx) (skip, limit int, reverse bool) {
	skip = c.QueryInt("skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit = c.QueryInt("limit", DefaultPageSize)
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	reverse = c.QueryBool("reverse", false)
	return skip, limit, reverse
}

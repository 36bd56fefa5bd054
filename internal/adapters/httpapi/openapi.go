package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"timetable/docs/schema/openapi"
)

// serveOpenAPI returns the embedded API contract so clients can fetch it from
// the running server.
func serveOpenAPI(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/yaml")
	return c.Send(openapi.Spec())
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/release-queue/pkg/util/errorutil"
)

// bindRequest decodes the JSON body when one is sent and the query string
// otherwise. GET endpoints accept both.
func bindRequest(c *fiber.Ctx, out any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return apperrors.NewValidationError("invalid payload", map[string]any{"cause": err.Error()})
		}
		return nil
	}
	if err := c.QueryParser(out); err != nil {
		return apperrors.NewValidationError("invalid query", map[string]any{"cause": err.Error()})
	}
	return nil
}

func boolValue(v *bool) bool {
	return v != nil && *v
}

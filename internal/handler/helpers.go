package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func userIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		switch id := v.(type) {
		case string:
			return strings.TrimSpace(id)
		case fmt.Stringer:
			return strings.TrimSpace(id.String())
		}
	}
	return ""
}

func parseUUIDParam(c *fiber.Ctx, key string) (uuid.UUID, error) {
	value := strings.TrimSpace(c.Params(key))
	if value == "" {
		return uuid.Nil, fmt.Errorf("missing %s parameter", key)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s parameter", key)
	}
	return id, nil
}

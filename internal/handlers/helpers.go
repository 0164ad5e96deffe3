package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var errMissingUserID = errors.New("missing user id in context")

func currentUserID(c *fiber.Ctx) (string, error) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return "", errMissingUserID
	}
	return userID, nil
}

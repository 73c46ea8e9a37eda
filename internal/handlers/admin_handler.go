package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"profilex/internal/middleware"
	"profilex/internal/models"
	"profilex/internal/services"
)

// AdminHandler handles the admin-only user management routes. The admin
// gate itself lives in the service layer, which re-reads the account store
// on every call.
type AdminHandler struct {
	profileService *services.ProfileService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(profileService *services.ProfileService) *AdminHandler {
	return &AdminHandler{profileService: profileService}
}

// RegisterRoutes registers the admin routes. The caller must mount these
// behind middleware.AuthRequired.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/admin")
	adminRoutes.Put("/users/:email", h.HandleUpdateUser)
	adminRoutes.Delete("/users/:email", h.HandleDeleteUser)
}

// HandleUpdateUser applies a partial update to the target account on behalf
// of an admin, including promotion and demotion via isAdmin.
func (h *AdminHandler) HandleUpdateUser(c *fiber.Ctx) error {
	actor, _ := c.Locals(middleware.LocalsUserEmail).(string)
	target := targetEmail(c)

	var patch models.ProfileUpdate
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	profile, err := h.profileService.AdminUpdateUser(actor, target, patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAdminRequired):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Forbidden: Admin access required.",
			})
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("User account %s not found for admin update.", target),
			})
		case errors.Is(err, services.ErrUsernameTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Username already taken.",
			})
		}
		log.Printf("Error in admin update of %s by %s: %v", target, actor, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": fmt.Sprintf("Error updating user %s by admin.", target),
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("User %s updated successfully by admin.", target),
		"user":    profile,
	})
}

// HandleDeleteUser removes the target account and its extended-info record.
func (h *AdminHandler) HandleDeleteUser(c *fiber.Ctx) error {
	actor, _ := c.Locals(middleware.LocalsUserEmail).(string)
	target := targetEmail(c)

	if err := h.profileService.AdminDeleteUser(actor, target); err != nil {
		switch {
		case errors.Is(err, services.ErrAdminRequired):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Forbidden: Admin access required.",
			})
		case errors.Is(err, services.ErrSelfDelete):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Admin cannot delete their own account through this endpoint.",
			})
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("User %s not found for deletion.", target),
			})
		}
		log.Printf("Error in admin delete of %s by %s: %v", target, actor, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error deleting user by admin.",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("User %s deleted successfully by admin.", target),
	})
}

// targetEmail pulls the target email from the route. Emails arrive
// percent-encoded from most clients, so decode when possible.
func targetEmail(c *fiber.Ctx) string {
	raw := c.Params("email")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

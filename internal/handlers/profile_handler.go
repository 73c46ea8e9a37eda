package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"profilex/internal/middleware"
	"profilex/internal/models"
	"profilex/internal/services"
)

// ProfileHandler handles the public profile routes and the authenticated
// "me" routes.
type ProfileHandler struct {
	profileService *services.ProfileService
	validate       *validator.Validate
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		validate:       validator.New(),
	}
}

// RegisterRoutes registers the public profile routes.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	users := router.Group("/users")
	users.Get("/", h.HandleListProfiles)
	users.Post("/", h.HandleSignup)
	users.Get("/username/:username", h.HandlePublicProfile)
}

// RegisterMeRoutes registers the identity-scoped routes. The caller must
// mount these behind middleware.AuthRequired.
func (h *ProfileHandler) RegisterMeRoutes(router fiber.Router) {
	me := router.Group("/me")
	me.Get("/profile-info", h.HandleGetOwnProfile)
	me.Put("/profile-info", h.HandleUpdateOwnProfile)
}

// HandleListProfiles returns every profile in store order, public view.
func (h *ProfileHandler) HandleListProfiles(c *fiber.Ctx) error {
	profiles, err := h.profileService.ListPublicProfiles()
	if err != nil {
		log.Printf("Error fetching users: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error fetching users.",
			"error":   err.Error(),
		})
	}
	return c.JSON(profiles)
}

// HandleSignup registers a new user.
func (h *ProfileHandler) HandleSignup(c *fiber.Ctx) error {
	var req models.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Email, username, password, and name are required.",
			"errors":  validationErrors(err),
		})
	}

	profile, err := h.profileService.CreateProfile(req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Email already registered.",
			})
		case errors.Is(err, services.ErrUsernameTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Username already taken.",
			})
		}
		log.Printf("Error creating user %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error creating user.",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully.",
		"user":    profile,
	})
}

// HandlePublicProfile returns the public view of one profile by username.
func (h *ProfileHandler) HandlePublicProfile(c *fiber.Ctx) error {
	username := c.Params("username")

	profile, err := h.profileService.GetPublicProfileByUsername(username)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User not found.",
			})
		}
		log.Printf("Error fetching public profile %s: %v", username, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error fetching public profile.",
			"error":   err.Error(),
		})
	}

	c.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
	return c.JSON(profile)
}

// HandleGetOwnProfile returns the caller's own merged profile.
func (h *ProfileHandler) HandleGetOwnProfile(c *fiber.Ctx) error {
	email, _ := c.Locals(middleware.LocalsUserEmail).(string)
	if email == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Unauthorized: Authentication required (simulated).",
		})
	}

	profile, err := h.profileService.GetProfileByEmail(email)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User account not found.",
			})
		}
		log.Printf("Error fetching profile for %s: %v", email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error fetching your profile information.",
			"error":   err.Error(),
		})
	}

	return c.JSON(profile)
}

// HandleUpdateOwnProfile applies a partial update to the caller's own
// records. A username collision aborts the whole update.
func (h *ProfileHandler) HandleUpdateOwnProfile(c *fiber.Ctx) error {
	email, _ := c.Locals(middleware.LocalsUserEmail).(string)
	if email == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Unauthorized: Authentication required (simulated).",
		})
	}

	var patch models.ProfileUpdate
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	profile, err := h.profileService.UpdateOwnProfile(email, patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "User account not found for update.",
			})
		case errors.Is(err, services.ErrUsernameTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Username already taken.",
			})
		}
		log.Printf("Error updating profile for %s: %v", email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error updating profile.",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully.",
		"user":    profile,
	})
}

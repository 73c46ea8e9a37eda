package middleware

import (
	"github.com/gofiber/fiber/v2"

	"profilex/internal/services"
)

// HeaderUserEmail carries the simulated identity claim.
const HeaderUserEmail = "X-User-Email"

// LocalsUserEmail is the fiber locals key the verified email is stored
// under for downstream handlers.
const LocalsUserEmail = "userEmail"

// AuthRequired is a Fiber middleware that extracts the identity claim from
// the request header and fails closed when it is missing. No operation
// behind it proceeds without a claim.
func AuthRequired(verifier services.IdentityVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := verifier.Verify(c.Get(HeaderUserEmail))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Unauthorized: Authentication required (simulated).",
			})
		}

		c.Locals(LocalsUserEmail, identity.Email)
		return c.Next()
	}
}

// handlers/progression_routes.go
package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"progress-engine/middleware"
	"progress-engine/services"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService) {
	// 🔐 Secured routes: require user context forwarded by the gateway
	secured := app.Group("/user/progress", middleware.UserContextMiddleware())

	secured.Get("/", func(c *fiber.Ctx) error {
		summary, err := progressionService.Summary(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(summary)
	})

	secured.Post("/complete", func(c *fiber.Ctx) error {
		var req completeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if err := validateStruct(req); err != nil {
			return writeError(c, err)
		}

		res, err := progressionService.RecordCompletion(c.UserContext(), services.CompletionInput{
			UserID:       middleware.UserID(c),
			ActivityType: strings.TrimSpace(req.ActivityType),
			ActivityRef:  strings.TrimSpace(req.ActivityRef),
			Score:        req.Score,
		})
		if err != nil {
			return writeError(c, err)
		}

		status := fiber.StatusCreated
		if res.AlreadyCompleted {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(res)
	})

	secured.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := progressionService.Badges(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}

		response := make([]fiber.Map, 0, len(badges))
		for _, b := range badges {
			response = append(response, fiber.Map{
				"id":          b.ID,
				"name":        b.Name,
				"description": b.Description,
				"icon":        b.Icon,
				"category":    b.Category,
				"awarded_at":  b.AwardedAt,
				"metadata":    b.Metadata,
			})
		}
		return c.JSON(response)
	})

	secured.Get("/tracks", func(c *fiber.Ctx) error {
		tracks, err := progressionService.AllTrackStatuses(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(tracks)
	})

	secured.Get("/tracks/:slug", func(c *fiber.Ctx) error {
		st, err := progressionService.TrackStatus(c.UserContext(), middleware.UserID(c), c.Params("slug"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(st)
	})
}

// SetupCatalogRoutes exposes the static catalog; gateway auth only, no user context.
func SetupCatalogRoutes(app *fiber.App, progressionService *services.ProgressionService) {
	cat := progressionService.Catalog()

	app.Get("/catalog/activities", func(c *fiber.Ctx) error {
		out := make([]fiber.Map, 0)
		for _, t := range cat.Types() {
			r, _ := cat.RewardFor(t)
			out = append(out, fiber.Map{
				"activity_type": t,
				"points":        r.Points,
				"xp":            r.XP,
				"rescorable":    cat.Rescorable(t),
			})
		}
		return c.JSON(out)
	})

	app.Get("/catalog/tracks", func(c *fiber.Ctx) error {
		return c.JSON(cat.Tracks())
	})
}

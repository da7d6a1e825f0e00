package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	auth "github.com/goliatone/go-classroom-auth"
	"github.com/goliatone/go-classroom-auth/middleware/jwtware"
)

// AdminRoutes mounts account moderation behind the admin role.
func AdminRoutes(app *App, api fiber.Router) {
	admin := api.Group("/admin", app.routes.ProtectedRoute(jwtware.ModeMandatory, auth.RoleAdmin))

	admin.Get("/dashboard", AdminDashboard)
	admin.Post("/users/:id/block", app.changeStatus(app.accounts.Block))
	admin.Post("/users/:id/unblock", app.changeStatus(app.accounts.Unblock))
}

type statusChange func(ctx context.Context, actor auth.ActorRef, user *auth.User, reason string) (*auth.User, error)

type statusChangePayload struct {
	Reason string `json:"reason" form:"reason"`
}

func (a *App) changeStatus(change statusChange) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := auth.GetRouterClaims(c, "")
		if !ok {
			return auth.ErrUnauthenticated
		}

		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return auth.ErrValidation.WithMetadata(map[string]any{"id": "must be a valid UUID"})
		}

		payload := new(statusChangePayload)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(payload); err != nil {
				return auth.ErrValidation.Wrap(err)
			}
		}

		user, err := a.repo.Users().GetByID(c.UserContext(), id)
		if err != nil {
			return err
		}

		actor := auth.ActorRef{Type: "user", ID: claims.UserID()}
		updated, err := change(c.UserContext(), actor, user, payload.Reason)
		if err != nil {
			return err
		}

		return c.JSON(updated)
	}
}

// preventSelfBlock keeps an admin from locking themselves out.
func preventSelfBlock(_ context.Context, tc auth.TransitionContext) error {
	if tc.To == auth.UserStatusBlocked && tc.Actor.ID == tc.User.ID.String() {
		return auth.ErrForbidden.WithMetadata(map[string]any{"reason": "self_block"})
	}
	return nil
}

func AdminDashboard(c *fiber.Ctx) error {
	claims, ok := auth.GetRouterClaims(c, "")
	if !ok {
		return auth.ErrUnauthenticated
	}
	return c.JSON(fiber.Map{"admin": claims.UserID()})
}

// Package handlers contains the owner command handlers, their registration
// table and middleware.
package handlers

import (
	"context"

	apperrors "github.com/Par123456/selfcursor/internal/errors"
)

// OwnerOnly creates a middleware that lets through commands written by the
// account owner. Anything else is dropped without a reply, so other chat
// members cannot tell the commands exist.
func OwnerOnly(deps HandlerDeps) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd Command) {
			if cmd.Msg.Outgoing || (cmd.Msg.SenderID != 0 && cmd.Msg.SenderID == deps.Gateway.OwnerID()) {
				next(ctx, cmd)
				return
			}

			log := deps.Logger.With("middleware", "OwnerOnly")
			deps.fail(ctx, log, cmd, apperrors.NewAuthorizationError("command "+cmd.Name+" is owner-only"))
		}
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/swgoh/prereqbot/pkg/failure"
)

// PermissionResolver returns the permission bits a user has in a channel.
type PermissionResolver func(ctx context.Context, userID, channelID string) (int64, error)

// RequirePermissions fails unless the invoking user holds every bit in perms.
// Direct messages carry no guild permissions and always fail.
func RequirePermissions(perms int64, resolve PermissionResolver) Check {
	return func(ctx context.Context, inv Invocation) error {
		if inv.GuildID == "" {
			return failure.New(failure.ErrChecksFailed, "command is only available in a server", nil)
		}
		have, err := resolve(ctx, inv.UserID, inv.ChannelID)
		if err != nil {
			return failure.New(failure.ErrChecksFailed, fmt.Sprintf("resolve permissions: %v", err), nil)
		}
		if have&perms != perms {
			return failure.New(failure.ErrChecksFailed, fmt.Sprintf("missing permissions %#x", perms&^have), nil)
		}
		return nil
	}
}

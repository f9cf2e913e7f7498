package setup

import (
	"context"
	"log/slog"

	"github.com/bornholm/burpacl/internal/authn/basic"
	"github.com/bornholm/burpacl/internal/config"
)

var NewUserProviderFromConfig = createFromConfigOnce(func(ctx context.Context, conf *config.Config) (basic.UserProvider, error) {
	users := make([]*basic.User, 0, len(conf.Auth.Users))
	for _, u := range conf.Auth.Users {
		if u.Name == "" {
			continue
		}

		if u.PasswordHash == "" {
			slog.WarnContext(ctx, "api user without password hash cannot authenticate", slog.String("username", string(u.Name)))
		}

		users = append(users, basic.NewUser(string(u.Name), string(u.PasswordHash)))
	}

	return basic.NewUsers(users...), nil
})

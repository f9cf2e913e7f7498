package command

import (
	"strconv"
	"strings"

	"github.com/bornholm/burpacl/internal/admin"
	"github.com/bornholm/burpacl/internal/setup"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <username> [client] [server]",
	Short: "Evaluate the grants of a user against the configured backends",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		engine, err := setup.NewEngineFromConfig(ctx, conf)
		if err != nil {
			return errors.Wrap(err, "could not load acl")
		}

		var client, server string
		if len(args) > 1 {
			client = args[1]
		}
		if len(args) > 2 {
			server = args[2]
		}

		res := admin.Check(ctx, engine, args[0], client, server)

		pterm.Printf("User: %s\n", res.Username)

		table := pterm.TableData{
			{"PREDICATE", "RESULT", "INHERITED FROM"},
			{"admin", strconv.FormatBool(res.Admin), strings.Join(res.AdminInherit, ", ")},
			{"moderator", strconv.FormatBool(res.Moderator), strings.Join(res.ModeratorInherit, ", ")},
			{"client allowed (" + client + ")", strconv.FormatBool(res.ClientAllowed), ""},
			{"client rw (" + client + ")", strconv.FormatBool(res.ClientRW), ""},
			{"server allowed (" + server + ")", strconv.FormatBool(res.ServerAllowed), ""},
			{"server rw (" + server + ")", strconv.FormatBool(res.ServerRW), ""},
		}

		return errors.WithStack(pterm.DefaultTable.WithHasHeader().WithData(table).Render())
	},
}

package command

import (
	"os"

	"github.com/bornholm/burpacl/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var dumpConfigCmd = &cobra.Command{
	Use:   "dump-config",
	Short: "Dump the default configuration file and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Dump(os.Stdout, config.NewDefaultConfig()); err != nil {
			return errors.Wrap(err, "could not dump config file")
		}

		return nil
	},
}

// internal/cli/show_config.go
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/adjudicator/internal/appconfig"
)

// showConfigCmd prints the merged configuration.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON configs are loaded properly and overridden by flags accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		appconfig.ShowConfig(stdout, viper.ConfigFileUsed(), *getConfig())
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
}

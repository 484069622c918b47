// internal/cli/show_config.go
package toolflow

import (
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/mwiater/toolflow/internal/appconfig"
)

var showConfigDump bool

// showConfigCmd implements 'show config', which prints the merged
// configuration after flags, config file and defaults are applied.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON configs are loaded properly and overriden by flags accordingly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		out := cmd.OutOrStdout()
		appconfig.ShowConfig(out, cfg.ConfigPath, *cfg)
		if showConfigDump {
			_, err := pp.Fprintln(out, cfg)
			return err
		}
		return nil
	},
}

func init() {
	showConfigCmd.Flags().BoolVar(&showConfigDump, "dump", false, "also pretty-print the full configuration struct")
	showCmd.AddCommand(showConfigCmd)
}

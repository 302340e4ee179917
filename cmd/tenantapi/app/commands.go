// Package app provides the commands of the tenant API binary.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenantdesk/platform/v1/config"
)

// NewRootCmd creates the root command with the serve and check subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tenantapi",
		Short:         "Multi-tenant API server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().String("config", "", "Optional configuration file; environment variables take precedence")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())
	return root
}

// loadConfig reads the optional --config file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return config.LoadFrom(v)
}

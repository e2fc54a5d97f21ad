package main

import (
	"github.com/spf13/cobra"
)

// appHolder keeps the app built by the root command so it can be closed
// after Execute returns, whether or not the command failed.
type appHolder struct {
	app *app
}

func (h *appHolder) get() *app { return h.app }

// Close releases the app, if one was built. It is safe to call twice.
func (h *appHolder) Close() {
	if h.app != nil {
		h.app.Close()
		h.app = nil
	}
}

func rootCmd(h *appHolder) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Soil fertility advisor client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			h.app, err = newApp(cmd.Context(), cfg)
			return err
		},
	}

	cmd.PersistentFlags().String("api-url", "", "Service base URL (overrides SOIL_API_URL)")
	cmd.PersistentFlags().String("db", "", "Credential database path (overrides SOIL_DB_PATH)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		loginCmd(h.get),
		registerCmd(h.get),
		logoutCmd(h.get),
		whoamiCmd(h.get),
		analyzeCmd(h.get),
		historyCmd(h.get),
		showCmd(h.get),
		statsCmd(h.get),
		chatCmd(h.get),
	)
	return cmd
}

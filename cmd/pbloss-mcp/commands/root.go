package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pbloss-mcp/internal/config"
	"pbloss-mcp/internal/logging"
	"pbloss-mcp/internal/model"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose      bool
	settingsFile string
	overrides    map[string]string

	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "pbloss-mcp",
	Short: "PbLoss-MCP estimates the timing of Pb loss in zircon U-Pb data",
	Long: `An MCP Server and command line tool that estimates the age of an ancient Pb-loss event
by Monte Carlo sampling of concordant and discordant zircon U-Pb analyses.
Without a subcommand it serves MCP over stdio.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if settingsFile != "" {
			cfg.SettingsFile = settingsFile
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("PbLoss-MCP starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "TOML settings file (default $PBLOSS_SETTINGS_FILE or pbloss.toml next to the binary)")
	rootCmd.PersistentFlags().StringToStringVar(&overrides, "set", nil, "override a calculation setting, e.g. --set monte-carlo-runs=200")

	rootCmd.AddCommand(serveCmd, estimateCmd, classifyCmd)
}

// loadSettings reads the settings file and applies --set overrides.
func loadSettings() (model.CalculationSettings, config.ImportSettings, error) {
	settings, err := config.LoadCalculationSettings(cfg.SettingsFile)
	if err != nil {
		return model.CalculationSettings{}, config.ImportSettings{}, err
	}
	if len(overrides) > 0 {
		cc, err := config.ParseCalculationOverrides(overrides)
		if err != nil {
			return model.CalculationSettings{}, config.ImportSettings{}, err
		}
		if err := cc.Apply(&settings); err != nil {
			return model.CalculationSettings{}, config.ImportSettings{}, err
		}
		if err := settings.Validate(); err != nil {
			return model.CalculationSettings{}, config.ImportSettings{}, err
		}
	}
	imports, err := config.LoadImportSettings(cfg.SettingsFile)
	if err != nil {
		return model.CalculationSettings{}, config.ImportSettings{}, err
	}
	return settings, imports, nil
}

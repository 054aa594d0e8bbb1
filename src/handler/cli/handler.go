package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"redundancy-analyzer/src/config"
	"redundancy-analyzer/src/controller"
	"redundancy-analyzer/src/service/retry"
	"redundancy-analyzer/src/service/state"
	"redundancy-analyzer/src/util"
)

// Handler handles CLI commands
type Handler struct {
	cfg        *config.Config
	configPath string
	rootCmd    *cobra.Command
}

// New creates a new CLI handler
func New() *Handler {
	h := &Handler{}
	h.setupCommands()
	return h
}

func (h *Handler) setupCommands() {
	analyze := h.analyzeCmd()

	h.rootCmd = &cobra.Command{
		Use:   "redundancy-analyzer",
		Short: "Duplicate code and abandoned table detection",
		Long: "Scans a project for duplicated and unused code, cross-references an optional\n" +
			"database schema against the code and reports removable redundancy",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return h.loadConfig()
		},
		RunE:          analyze.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	h.rootCmd.PersistentFlags().StringVarP(&h.configPath, "config", "c", "",
		"Path to configuration file")

	// analyze is the default action
	h.rootCmd.Flags().AddFlagSet(analyze.Flags())

	h.rootCmd.AddCommand(analyze)
	h.rootCmd.AddCommand(h.statusCmd())
	h.rootCmd.AddCommand(h.resumeCmd())
	h.rootCmd.AddCommand(h.listCmd())
	h.rootCmd.AddCommand(h.cleanupCmd())
	h.rootCmd.AddCommand(h.versionCmd())
	h.rootCmd.AddCommand(h.detectorsCmd())
}

func (h *Handler) loadConfig() error {
	loader := config.NewLoader()
	cfg, err := loader.Load(h.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	h.cfg = cfg

	// Initialize logger from config
	util.SetDefaultLogger(cfg.Logging)
	util.Debug("Configuration loaded successfully")
	util.Debug("Log level set to: %s", cfg.Logging.Level)

	return nil
}

// newController wires an analysis controller against the configured state
// directory
func (h *Handler) newController(opts ...controller.Option) *controller.AnalysisController {
	states := state.NewFileManager(h.cfg.State.Dir)
	return controller.NewAnalysisController(h.cfg, states, retry.NewHandler(h.cfg.Retry), opts...)
}

// Execute runs the CLI
func (h *Handler) Execute() error {
	return h.rootCmd.Execute()
}

// Run is the main entry point
func Run() {
	handler := New()
	if err := handler.Execute(); err != nil {
		printErrorBanner(os.Stderr, err)
		os.Exit(1)
	}
}

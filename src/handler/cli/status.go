package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"redundancy-analyzer/src/controller"
	"redundancy-analyzer/src/model"
	"redundancy-analyzer/src/service/state"
)

func (h *Handler) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <analysisId>",
		Short: "Show the state of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := h.newController().Status(args[0])
			if err != nil {
				return err
			}
			printState(s)
			return nil
		},
	}
}

func (h *Handler) resumeCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "resume <analysisId>",
		Short: "Continue an interrupted analysis from its last checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			renderer := newProgressRenderer(os.Stderr)
			ctrl := h.newController(controller.WithObserver(renderer))
			if err := ctrl.Resume(ctx, id); err != nil {
				return err
			}
			analysisReport, err := ctrl.Wait(ctx, id, timeout)
			renderer.Done()
			if err != nil {
				return err
			}

			s, err := ctrl.Status(id)
			if err != nil {
				return err
			}
			return h.writeReports(analysisReport, s.Options)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Maximum time to wait for the analysis (default from config)")
	return cmd
}

func (h *Handler) listCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			states := state.NewFileManager(h.cfg.State.Dir)
			var (
				list []model.AnalysisState
				err  error
			)
			if activeOnly {
				list, err = states.ListActiveAnalyses()
			} else {
				list, err = states.ListAnalyses()
			}
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No analyses recorded")
				return nil
			}

			fmt.Printf("%-36s  %-17s  %6s  %8s  %-20s  %s\n", "ID", "STATUS", "PROG", "FINDINGS", "STARTED", "PROJECT")
			for _, s := range list {
				fmt.Printf("%-36s  %-17s  %5.1f%%  %8d  %-20s  %s\n",
					s.ID, s.Status, s.Progress, s.FindingsCount,
					s.StartTime.Local().Format("2006-01-02 15:04:05"), s.ProjectPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only list analyses that have not finished")
	return cmd
}

func (h *Handler) cleanupCmd() *cobra.Command {
	var olderThan int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete finished analyses older than a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			days := olderThan
			if !cmd.Flags().Changed("older-than") {
				days = h.cfg.State.CleanupAfterDays
			}
			removed, err := state.NewFileManager(h.cfg.State.Dir).CleanupCompletedAnalyses(days)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d analyses older than %d days\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", 7, "Age in days (default from config)")
	return cmd
}

func printState(s *model.AnalysisState) {
	fmt.Printf("Analysis:  %s\n", s.ID)
	fmt.Printf("Project:   %s\n", s.ProjectPath)
	fmt.Printf("Status:    %s\n", phaseStyle.Render(string(s.Status)))
	fmt.Printf("Progress:  %s %.1f%%\n", progressBar(s.Progress), s.Progress)
	if s.TotalFiles > 0 {
		fmt.Printf("Files:     %d/%d\n", s.FilesScanned, s.TotalFiles)
	}
	fmt.Printf("Findings:  %d\n", s.FindingsCount)
	fmt.Printf("Started:   %s\n", s.StartTime.Local().Format(time.RFC3339))
	if s.EndTime != nil {
		fmt.Printf("Finished:  %s (%v)\n", s.EndTime.Local().Format(time.RFC3339), s.EndTime.Sub(s.StartTime).Round(time.Millisecond))
	}
	if s.Error != "" {
		fmt.Printf("Error:     %s\n", errorStyle.Render(s.Error))
	}
}

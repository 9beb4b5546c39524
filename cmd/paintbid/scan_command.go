package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paintbid/paintbid/internal/bids"
	"github.com/paintbid/paintbid/internal/indicator"
	"github.com/paintbid/paintbid/internal/ipc"
	"github.com/paintbid/paintbid/internal/pipeline"
	"github.com/paintbid/paintbid/internal/session"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var projectFlag string
	var addressFlag string
	var userFlag string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a guided room walkthrough with narration and video capture",
		Long: "Records a narrated room scan. While the scan runs, `paintbid ask` toggles\n" +
			"the microphone to ask a question, and `paintbid cancel` abandons the scan.",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := loaded.Config
			logger := ctx.logger()

			aiClient, err := ctx.aiClient()
			if err != nil {
				return err
			}

			socketPath, err := ipc.RuntimeSocketPath()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			listener, err := ipc.Acquire(runCtx, socketPath, time.Second, 2)
			if err != nil {
				if errors.Is(err, ipc.ErrAlreadyRunning) {
					return fmt.Errorf("%w (use `paintbid status` to inspect it)", err)
				}
				return err
			}
			defer func() {
				_ = listener.Close()
				_ = os.Remove(socketPath)
			}()

			controller := session.NewController(logger, session.Capabilities{
				Recorder:  pipeline.NewRecorder(cfg.Capture.Argv, cfg.Capture.OutputDir, logger),
				Narrator:  pipeline.NewNarrator(aiClient, logger),
				Listener:  pipeline.NewListener(aiClient, logger, cfg.Audio.Input, cfg.Audio.Fallback),
				Advisor:   aiClient,
				Indicator: indicator.NewConsole(cmd.OutOrStdout()),
			}, session.Options{
				MaxDuration: cfg.Capture.MaxDuration(),
				JoinTimeout: cfg.Capture.JoinTimeout(),
			})

			go func() {
				if serveErr := ipc.Serve(runCtx, listener, controller, logger); serveErr != nil {
					logger.Error("ipc server error", "error", serveErr.Error())
				}
			}()

			result := controller.Run(runCtx)
			printResult(cmd, result)

			if result.Err != nil {
				return result.Err
			}
			if result.Cancelled {
				return nil
			}

			if projectFlag != "" {
				return saveScanBid(cmd, ctx, result, projectFlag, addressFlag, userFlag)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectFlag, "project", "", "Save the scan result as a draft bid with this project name")
	cmd.Flags().StringVar(&addressFlag, "address", "", "Project address for the saved bid")
	cmd.Flags().StringVar(&userFlag, "user", "", "Contractor account (defaults to user_id from config)")
	return cmd
}

func printResult(cmd *cobra.Command, result session.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\nstate: %s\n", result.State)
	if result.VideoURI != "" {
		fmt.Fprintf(out, "video: %s (%s)\n", result.VideoURI, result.VideoDuration.Round(time.Second))
	}
	if result.TranscriptSummary != "" {
		fmt.Fprintf(out, "\ntranscript:\n%s\n", result.TranscriptSummary)
	}
	if len(result.SuggestedItems) > 0 {
		fmt.Fprintf(out, "\nsuggested line items:\n")
		for _, item := range result.SuggestedItems {
			fmt.Fprintf(out, "  %-40s %8.2f x $%.2f = $%.2f\n", item.Description, item.Quantity, item.UnitPrice, item.Total)
		}
	}
}

// saveScanBid persists the completed walkthrough as a draft bid.
func saveScanBid(cmd *cobra.Command, ctx *commandContext, result session.Result, project, address, user string) error {
	userID, err := ctx.userID(user)
	if err != nil {
		return err
	}

	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	bid, err := store.Save(cmd.Context(), bids.Draft{
		UserID:      userID,
		ProjectName: project,
		Address:     address,
		Items:       result.SuggestedItems,
		Status:      bids.StatusDraft,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nsaved bid %s (%s, $%.2f)\n", bid.ID, bid.ProjectName, bid.EstimatedCost)
	return nil
}

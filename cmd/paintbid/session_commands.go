package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/paintbid/paintbid/internal/ipc"
)

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask",
		Short: "Toggle the question microphone during an active scan",
		Long: "The first ask pauses narration and opens the microphone; the second ask\n" +
			"closes it and speaks the answer before the scan resumes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return forward(cmd, "ask")
		},
	}
}

func newCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abandon the active scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return forward(cmd, "cancel")
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active scan's state and current step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return forward(cmd, "status")
		},
	}
}

// forward sends one command to the scan process over its unix socket.
func forward(cmd *cobra.Command, command string) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}

	resp, err := ipc.Send(cmd.Context(), socketPath, ipc.Request{Command: command}, 2*time.Second)
	if err != nil {
		if ipc.IsSocketMissing(err) || ipc.IsConnectionRefused(err) {
			return fmt.Errorf("no active scan session (start one with `paintbid scan`)")
		}
		return err
	}

	if !resp.OK {
		return fmt.Errorf("%s", resp.Error)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "state: %s", resp.State)
	if resp.Step >= 0 {
		fmt.Fprintf(out, " (step %d)", resp.Step)
	}
	fmt.Fprintln(out)
	if resp.Message != "" {
		fmt.Fprintln(out, resp.Message)
	}
	return nil
}

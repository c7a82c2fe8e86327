// Command kiosk is the terminal front end students use to record and submit
// their pledge videos against a running API server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pledgecam/pledgecam-api/internal/capture"
	"github.com/pledgecam/pledgecam-api/internal/client"
	"github.com/pledgecam/pledgecam-api/internal/wizard"
)

var (
	serverURL  string
	videoInput string
	audioInput string
)

func main() {
	root := &cobra.Command{
		Use:           "kiosk",
		Short:         "Pledge video recording kiosk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "pledge API base URL")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive submission session",
		RunE:  runSession,
	}
	runCmd.Flags().StringVar(&videoInput, "video-input", "", "camera device (default /dev/video0)")
	runCmd.Flags().StringVar(&audioInput, "audio-input", "", "microphone device (default alsa default)")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the API server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			api := newAPIClient()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := api.Health(ctx); err != nil {
				return err
			}
			fmt.Println("server is healthy")
			return nil
		},
	}

	root.AddCommand(runCmd, healthCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newAPIClient() *client.Client {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return client.New(client.Config{BaseURL: serverURL}, logger)
}

func runSession(cmd *cobra.Command, args []string) error {
	api := newAPIClient()
	ctx := cmd.Context()

	if err := api.Health(ctx); err != nil {
		return fmt.Errorf("server not reachable: %w", err)
	}

	w := wizard.New(api, zap.NewNop(), func() {
		fmt.Println("Thank you! Your pledge video has been submitted.")
	})
	engine := capture.NewEngine(capture.NewFFmpegDevice(videoInput, audioInput), "video/webm")
	w.AttachCapture(engine)
	defer w.Close()

	in := bufio.NewScanner(os.Stdin)

	for {
		grade := prompt(in, "Grade (or 'quit'): ")
		if grade == "quit" {
			return nil
		}
		if err := w.SelectGrade(ctx, grade); err != nil {
			fmt.Println("  !", err)
			continue
		}
		names := w.Names()
		if len(names) == 0 {
			fmt.Println("  everyone in that grade has already submitted")
			continue
		}
		fmt.Println("Students still to record:")
		for _, name := range names {
			fmt.Println("  -", name)
		}

		name := prompt(in, "Your name: ")
		celebrity := prompt(in, "Celebrity you nominate: ")
		if err := w.SubmitStep1(ctx, name, celebrity); err != nil {
			fmt.Println("  !", err)
			continue
		}

		fmt.Println()
		fmt.Println(w.ComposedText())
		fmt.Println()

		if err := recordAndUpload(ctx, in, w, engine); err != nil {
			fmt.Println("  !", err)
		}
	}
}

// recordAndUpload loops the record/review/upload portion until the video is
// submitted or the user backs out.
func recordAndUpload(ctx context.Context, in *bufio.Scanner, w *wizard.Wizard, engine *capture.Engine) error {
	for {
		switch prompt(in, "[record/back]: ") {
		case "back":
			w.Back()
			return nil
		case "record":
		default:
			continue
		}

		if err := engine.Start(ctx); err != nil {
			return err
		}
		fmt.Println("Recording... press enter to stop.")
		prompt(in, "")
		if err := engine.Stop(); err != nil {
			return err
		}

		switch prompt(in, "[upload/redo/back]: ") {
		case "redo":
			if err := engine.Reset(); err != nil {
				return err
			}
			continue
		case "back":
			w.Back()
			return nil
		case "upload":
		default:
			engine.Teardown()
			continue
		}

		artifact := engine.Artifact()
		if err := w.Upload(ctx, artifact); err != nil {
			fmt.Println("  upload failed:", err)
			// The wizard holds its place; the take can be retried or redone.
			continue
		}
		engine.Teardown()
		return nil
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return "quit"
	}
	return strings.TrimSpace(in.Text())
}

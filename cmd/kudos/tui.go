package main

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/kudos/internal/tui"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
)

var tuiFlags struct {
	logFile string
	webhook string
	nats    string
	inline  bool
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the wizard in the terminal",
	Long: `Run the wizard in the terminal. Answers are delivered to the same
submitters as the web wizard once the thank-you screen appears.

The terminal belongs to the wizard, so logs only go to --log-file.`,
	RunE: runTUI,
}

var tuiKeys = map[string]string{
	"log.file":           "log-file",
	"submit.webhook.url": "webhook",
	"submit.nats.url":    "nats",
}

func init() {
	tuiCmd.Flags().StringVar(&tuiFlags.logFile, "log-file", "", "Write logs to this file")
	tuiCmd.Flags().StringVar(&tuiFlags.webhook, "webhook", "", "POST the submission to this URL")
	tuiCmd.Flags().StringVar(&tuiFlags.nats, "nats", "", `Publish the submission to this NATS server ("embedded" runs one in process)`)
	tuiCmd.Flags().BoolVar(&tuiFlags.inline, "inline", false, "Render inline instead of on the alternate screen")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, tuiKeys)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.Log, nil)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	out, err := buildSinks(cfg.Submit, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.close(5 * time.Second); err != nil {
			logger.Warn("closing nats", logging.Err(err))
		}
	}()

	var programOpts []tea.ProgramOption
	if !tuiFlags.inline {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	programOpts = append(programOpts,
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	st, err := tui.Run(cmd.Context(), tui.Options{
		Delay:         cfg.Wizard.CompletionDelay,
		ConfettiCount: cfg.Wizard.ConfettiCount,
		Submitter:     out.submitter,
		SubmitTimeout: cfg.Submit.Timeout,
		Logger:        logger,
	}, programOpts...)
	if err != nil {
		return fmt.Errorf("wizard: %w", err)
	}

	report(cmd.OutOrStdout(), st.Completed(), st.Declined())
	return nil
}

func report(w io.Writer, completed, declined bool) {
	switch {
	case !completed:
		fmt.Fprintln(w, "Wizard closed before it was finished. Nothing was sent.")
	case declined:
		fmt.Fprintln(w, "Thanks for your feedback!")
	default:
		fmt.Fprintln(w, "Thanks for your testimonial!")
	}
}

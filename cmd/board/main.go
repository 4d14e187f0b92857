// Command board is a terminal client for the pipeline board: it lists
// pipelines as stage columns and runs board commands against the CRM API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/xavierca1/ligue-pipeline/internal/board"
	"github.com/xavierca1/ligue-pipeline/internal/config"
	"github.com/xavierca1/ligue-pipeline/internal/infra/integration/crmapi"
	"github.com/xavierca1/ligue-pipeline/internal/logging"
)

var (
	apiURL    string
	apiToken  string
	timeout   time.Duration
	assumeYes bool
	verbose   bool
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// app is built once per invocation in PersistentPreRunE.
type app struct {
	client *crmapi.Client
	board  *board.Board
	notify *printNotifier
	out    io.Writer
	log    *logrus.Entry
}

var cli *app

var rootCmd = &cobra.Command{
	Use:   "board",
	Short: "Pipeline board client for the CRM API",
	Long: `Manage sales pipelines, their stages and the leads in them.

Every change is sent to the server and the board is reloaded afterwards;
what you see is always the server's state.

Configuration is read from flags, then CRM_API_URL, CRM_API_TOKEN,
CRM_COMMAND_TIMEOUT and CRM_RATE_LIMIT (a .env file is honoured).`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg := config.LoadClient()
	if cmd.Flags().Changed("api-url") {
		cfg.APIBaseURL = apiURL
	}
	if cmd.Flags().Changed("token") {
		cfg.APIToken = apiToken
	}
	if cmd.Flags().Changed("timeout") {
		cfg.CommandTimeout = timeout
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logrus.NewEntry(logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()))
	client := crmapi.NewClient(cfg.APIBaseURL, cfg.APIToken,
		crmapi.WithRateLimit(cfg.RateLimit, int(cfg.RateLimit)+1),
		crmapi.WithLogger(log),
	)

	notifier := &printNotifier{out: cmd.ErrOrStderr()}
	var confirmer board.Confirmer = newPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
	if assumeYes {
		confirmer = board.ConfirmFunc(func(context.Context, string) bool { return true })
	}

	cli = &app{
		client: client,
		board: board.New(client,
			board.WithConfirmer(confirmer),
			board.WithNotifier(notifier),
			board.WithCommandTimeout(cfg.CommandTimeout),
			board.WithLogger(log),
		),
		notify: notifier,
		out:    cmd.OutOrStdout(),
		log:    log,
	}
	return nil
}

// load fetches the current listing before a board command runs.
func (a *app) load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return a.board.Refresh(ctx)
}

func (a *app) ok(format string, args ...any) {
	fmt.Fprintln(a.out, okStyle.Render(fmt.Sprintf(format, args...)))
}

func init() {
	config.LoadEnv()

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "CRM API base URL (default from CRM_API_URL)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token (default from CRM_API_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", board.DefaultCommandTimeout, "How long a command may stay in flight")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to every confirmation")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(pipelinesCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(moveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if cli == nil || !cli.notify.shown() {
			fmt.Fprintln(os.Stderr, errorStyle.Render(message(err)))
		}
		os.Exit(1)
	}
}

// message prefers the board's user-facing text for board errors and falls
// back to the raw error for flag and argument problems.
func message(err error) string {
	if msg := board.UserMessage(err); msg != board.GenericMessage {
		return msg
	}
	return err.Error()
}

package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// CLI represents the main CLI structure
type CLI struct {
	BaseURL  string `env:"ASKCHAT_BASE_URL" help:"Chat service base URL"`
	APIKey   string `env:"ASKCHAT_API_KEY" help:"API key"`
	Config   string `help:"Path to config file"`
	LogLevel string `default:"warn" help:"Log level"`

	Ask      AskCmd      `cmd:"" help:"Ask a question and stream the answer"`
	History  HistoryCmd  `cmd:"" help:"List past conversations"`
	Export   ExportCmd   `cmd:"" help:"Export a message's asset to a file"`
	Feedback FeedbackCmd `cmd:"" help:"Submit feedback for a message"`
}

func main() {
	// Best effort: local .env for development setups.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("askchat"),
		kong.Description("Ask AI about your data from the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

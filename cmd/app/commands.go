package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/starford/diarysum/internal"
	"github.com/starford/diarysum/internal/mcpserver"
	"github.com/starford/diarysum/internal/models"
	"github.com/starford/diarysum/internal/orchestrator"
)

var (
	successColor = color.New(color.FgHiGreen)
	skipColor    = color.New(color.FgHiBlack)
	errorColor   = color.New(color.FgHiRed)
	titleColor   = color.New(color.FgHiCyan, color.Bold)
)

// setup loads the configuration and wires the services with JSON logs on stderr.
func setup(cmd *cli.Command, opts ...orchestrator.Option) (*internal.Config, *internal.Services, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
	services, err := internal.NewServices(cfg, logger, nil, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, services, nil
}

// startSpinner shows progress on an interactive stderr only.
func startSpinner(suffix string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

func printOutcome(w io.Writer, o models.Outcome) {
	switch o.State {
	case models.StateSummarized:
		label := "summarized"
		if o.DryRun {
			label = "would summarize"
		}
		successColor.Fprintf(w, "  %-16s %s\n", label, o.Name)
		if o.Summary != "" {
			skipColor.Fprintf(w, "  %-16s %s\n", "", o.Summary)
		}
	case models.StateSkipped:
		skipColor.Fprintf(w, "  %-16s %s (%s)\n", "skipped", o.Name, o.Reason)
	case models.StateFailed:
		errorColor.Fprintf(w, "  %-16s %s: %s\n", "failed", o.Name, o.Error)
	}
}

func printReport(w io.Writer, r *models.Report) {
	titleColor.Fprintf(w, "%s\n", r.Folder)
	for _, o := range r.Outcomes {
		printOutcome(w, o)
	}
	fmt.Fprintln(w)
	if r.Failed > 0 {
		errorColor.Fprintln(w, r.Message)
		return
	}
	successColor.Fprintln(w, r.Message)
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Summarize every diary in the folder",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Compute summaries without writing files"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, services, err := setup(cmd)
			if err != nil {
				return err
			}

			stop := startSpinner(fmt.Sprintf("Summarizing %s...", cfg.Diary.Folder))
			report, err := services.Diaries.Run(ctx, cfg.Diary.Folder, cmd.Bool("dry-run"))
			stop()
			if report != nil {
				printReport(os.Stdout, report)
			}
			return err
		},
	}
}

func fileCommand() *cli.Command {
	return &cli.Command{
		Name:      "file",
		Usage:     "Summarize a single diary file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Compute the summary without writing the file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("a diary path is required")
			}
			_, services, err := setup(cmd)
			if err != nil {
				return err
			}

			stop := startSpinner(fmt.Sprintf("Summarizing %s...", path))
			o, err := services.Diaries.ProcessFile(ctx, path, cmd.Bool("dry-run"))
			stop()
			if err != nil {
				return err
			}
			printOutcome(os.Stdout, o)
			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Print the text that would be sent to the model",
		ArgsUsage: "<path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("a diary path is required")
			}
			_, services, err := setup(cmd)
			if err != nil {
				return err
			}
			text, err := services.Diaries.Preview(ctx, path)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func recentCommand() *cli.Command {
	return &cli.Command{
		Name:  "recent",
		Usage: "List the most recently modified diaries",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Number of diaries to list (default diary.recent_limit)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, services, err := setup(cmd)
			if err != nil {
				return err
			}
			files, err := services.Diaries.Recent(ctx, cfg.Diary.Folder, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, f := range files {
				skipColor.Printf("%s  ", f.ModifiedAt.Local().Format("2006-01-02 15:04"))
				fmt.Println(f.Name)
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Summarize diaries as they are saved",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "debounce", Usage: "Quiet period before a changed file is processed (default watch.debounce)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, services, err := setup(cmd)
			if err != nil {
				return err
			}
			debounce := cfg.Watch.Debounce
			if cmd.IsSet("debounce") {
				debounce = cmd.Duration("debounce")
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			titleColor.Printf("Watching %s (debounce %s)\n", cfg.Diary.Folder, debounce)
			err = services.Watch(ctx, cfg.Diary.Folder, debounce, nil, func(o models.Outcome, err error) {
				if err != nil {
					errorColor.Printf("  %-16s %v\n", "failed", err)
					return
				}
				printOutcome(os.Stdout, o)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the diary tools over MCP stdio",
		Action: func(_ context.Context, cmd *cli.Command) error {
			_, services, err := setup(cmd)
			if err != nil {
				return err
			}
			return mcpserver.New(services.Diaries, Version).ServeStdio()
		},
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/xhad/webqa/internal/app"
	"github.com/xhad/webqa/pkg/research"
)

var stateLabels = map[research.State]string{
	research.StatePreparing:        "Processing question...",
	research.StateSearching:        "Searching the web...",
	research.StateEvaluating:       "Checking whether this webpage is worth looking at...",
	research.StateExpanding:        "Finding hyperlinks on this page...",
	research.StateAnswering:        "Generating answers...",
	research.StateAggregating:      "Recording this webpage...",
	research.StateCheckSufficiency: "Checking whether to stop...",
	research.StateFinalizing:       "Putting answers together...",
}

func runChat(ctx context.Context) error {
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	color.Cyan("\nAsk a question about anything on the web (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.ToLower(question) == "exit" {
			break
		}

		res, err := ask(ctx, a, question)
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		assistantPrompt("\nAssistant: %s\n", res.Answer)
		printSources(res)
	}

	return scanner.Err()
}

// ask runs one question with a spinner. Ctrl-C cancels the question.
func ask(ctx context.Context, a *app.App, question string) (*research.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	spinner := getSpinner("Processing question...")
	defer func() {
		_ = spinner.Finish()
		fmt.Fprint(os.Stderr, "\r")
	}()

	return a.Researcher.Ask(ctx, question, func(e research.Event) {
		label := stateLabels[e.State]
		if label == "" {
			return
		}
		if e.Message != "" {
			label += " " + e.Message
		}
		spinner.Describe(color.CyanString(label))
	})
}

func printSources(res *research.Result) {
	if len(res.Pages) == 0 {
		return
	}
	color.New(color.Faint).Println("\nSources:")
	for _, p := range res.Pages {
		color.New(color.Faint).Printf("- %s (%s)\n", p.Title, p.URL)
	}
}

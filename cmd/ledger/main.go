// Command ledger replays a CSV file of client transactions and prints the
// resulting account balances as CSV on stdout.
//
//	ledger transactions.csv > accounts.csv
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/riteshkumar/ledger-replay/internal/codec"
	"github.com/riteshkumar/ledger-replay/internal/config"
	"github.com/riteshkumar/ledger-replay/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: ledger <transactions.csv>")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	replayService := service.NewReplayService(nil, logger)
	result, err := replayService.Replay(context.Background(), file)
	if err != nil {
		return err
	}

	if err := codec.NewWriter(stdout).WriteAll(result.Accounts); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Command matter-cli is an interactive shell for a running matter-home.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "matter-home base URL")
	apiKey := flag.String("api-key", os.Getenv("MATTER_HOME_API_KEY"), "API key")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	sh := &shell{c: newClient(strings.TrimRight(*addr, "/"), *apiKey), out: os.Stdout}

	// One-shot: matter-cli [flags] <command> [args...]
	if flag.NArg() > 0 {
		sh.exec(ctx, strings.Join(flag.Args(), " "))
		return
	}

	cfg := &readline.Config{
		Prompt:          "matter> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, ".matter-cli_history")
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	sh.out = rl.Stdout()
	sh.run(ctx, rl)
}

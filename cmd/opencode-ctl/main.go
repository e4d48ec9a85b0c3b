package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"opencode/internal/config"
	"opencode/internal/ipc"
)

const usage = `usage: opencode-ctl [--socket path] <trigger|say|status|shutdown> [text...]`

func main() {
	cfg, err := config.Load("opencode-ctl", os.Args[1:])
	if errors.Is(err, cli.ErrHelp) {
		fmt.Println(usage)
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(cfg.Args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	req := ipc.Request{
		Cmd:  cfg.Args[0],
		Text: strings.Join(cfg.Args[1:], " "),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply, err := ipc.Send(ctx, cfg.Socket, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opencode not running:", err)
		os.Exit(1)
	}

	fmt.Println(reply.Message)
	if !reply.OK {
		os.Exit(1)
	}
}

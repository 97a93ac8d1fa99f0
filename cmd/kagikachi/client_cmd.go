package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/kagikachi"
	"github.com/luciancaetano/kagikachi/ws"
)

const defaultClientAddr = "127.0.0.1:7878"

var dialTimeout time.Duration

// clientCmd opens an interactive session: one command per line, one reply
// per command.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Open an interactive session against a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := addrFlag
		if addr == "" {
			addr = defaultClientAddr
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
		session, err := ws.Dial(ctx, addr)
		cancel()
		if err != nil {
			return fmt.Errorf("connect to %s: %w", addr, err)
		}
		defer session.Close()

		fmt.Fprintln(cmd.OutOrStdout(), color.CyanString("connected to %s", addr))
		return runREPL(cmd.InOrStdin(), cmd.OutOrStdout(), session)
	},
}

type commandSession interface {
	Do(command string) (string, error)
}

// runREPL sends each non-empty line from in and prints the reply to out. It
// returns nil at end of input or on "quit"/"exit".
func runREPL(in io.Reader, out io.Writer, session commandSession) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)

	for {
		fmt.Fprint(out, color.HiBlackString("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		reply, err := session.Do(line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, colorReply(reply))
	}
}

// colorReply shows OK and PONG in green and error replies in red.
func colorReply(reply string) string {
	switch {
	case reply == kagikachi.ReplyOK || reply == kagikachi.ReplyPong:
		return color.GreenString(reply)
	case isErrorReply(reply):
		return color.RedString(reply)
	default:
		return reply
	}
}

func isErrorReply(reply string) bool {
	for _, prefix := range []string{"Key ", "Invalid ", "Index ", "Unknown "} {
		if strings.HasPrefix(reply, prefix) {
			return true
		}
	}
	return strings.HasSuffix(reply, " is not a valid index for array")
}

func init() {
	rootCmd.AddCommand(clientCmd)
	clientCmd.Flags().DurationVar(&dialTimeout, "timeout", 5*time.Second, "Connect and handshake timeout")
}

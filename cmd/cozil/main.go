package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/cozil/cozil-backend/internal/client"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:3000", "Cozil server URL")
		report   = flag.String("report", "", "Medical report to attach (PDF or image)")
		username = flag.String("user", "", "Log in as this user so the exchange is saved")
		raw      = flag.Bool("raw", false, "Print the answer without markdown rendering")
		width    = flag.Int("width", 80, "Word wrap width")
	)
	flag.Parse()
	message := strings.Join(flag.Args(), " ")

	c, err := client.New(*server)
	if err != nil {
		fatal(err)
	}
	ctx := context.Background()

	if *username != "" {
		password, err := readPassword()
		if err != nil {
			fatal(err)
		}
		if err := c.Login(ctx, *username, password); err != nil {
			fatal(err)
		}
	}

	// Interactive mode keeps the conversation going and replays it each turn.
	if message == "" && *report == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		interactive(ctx, c, render(*raw, *width))
		return
	}

	answer, err := c.Chat(ctx, message, *report, nil)
	if err != nil {
		fatal(err)
	}
	fmt.Print(render(*raw, *width)(answer))
}

func interactive(ctx context.Context, c *client.Client, show func(string) string) {
	var history []client.Turn
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}

		answer, err := c.Chat(ctx, line, "", history)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		fmt.Print(show(answer))
		history = append(history, client.Turn{Role: "user", Text: line}, client.Turn{Role: "model", Text: answer})
	}
}

// render returns a markdown renderer, or the identity when output is not a
// terminal or rendering was disabled.
func render(raw bool, width int) func(string) string {
	plain := func(s string) string { return s + "\n" }
	if raw || !term.IsTerminal(int(os.Stdout.Fd())) {
		return plain
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plain
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return plain(s)
		}
		return out
	}
}

func readPassword() (string, error) {
	if p := os.Getenv("COZIL_PASSWORD"); p != "" {
		return p, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("set COZIL_PASSWORD when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return string(b), err
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "cozil:", err)
	os.Exit(1)
}

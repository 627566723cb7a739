package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/mrlokans/booksdb/internal/catalog"
	"github.com/mrlokans/booksdb/internal/config"
	"github.com/mrlokans/booksdb/internal/dispatch"
	"github.com/mrlokans/booksdb/internal/entities"
	"github.com/mrlokans/booksdb/internal/entrypoint"
)

// ShellCommand runs the interactive catalog console.
type ShellCommand struct {
	cfg *config.Config
}

func NewShellCommand(cfg *config.Config) *ShellCommand {
	return &ShellCommand{cfg: cfg}
}

func (cmd *ShellCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	bindCatalogFlags(fs, cmd.cfg)
	fs.IntVar(&cmd.cfg.Dispatch.Workers, "workers", cmd.cfg.Dispatch.Workers, "Background workers for catalog calls")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s shell [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Interactive console for searching, adding, rating and reviewing books.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ShellCommand) Run() error {
	if err := cmd.cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	backend, err := entrypoint.OpenStore(ctx, cmd.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect catalog: %w", err)
	}
	store := backend.Store
	defer store.Disconnect(context.Background())

	pool := dispatch.NewPool(dispatch.Config{Workers: cmd.cfg.Dispatch.Workers, QueueSize: cmd.cfg.Dispatch.QueueSize})
	defer pool.Close()

	shell := NewShell(store, pool, os.Stdin, os.Stdout)
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		shell.ReadPassword = func(prompt string) (string, error) {
			fmt.Print(prompt)
			b, err := term.ReadPassword(fd)
			fmt.Println()
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(string(b)), nil
		}
	}
	return shell.Run(ctx)
}

// outcome is what a catalog job hands back to the shell loop.
type outcome struct {
	text   string
	login  *entities.User
	logout bool
}

// Shell reads commands on one goroutine and runs catalog calls on the pool.
// Session state is only touched by the loop.
type Shell struct {
	store   catalog.Store
	pool    *dispatch.Pool
	scanner *bufio.Scanner
	out     io.Writer

	// ReadPassword reads a secret without echo. When nil the next input line is used.
	ReadPassword func(prompt string) (string, error)

	user *entities.User
}

type result struct {
	outcome
	err error
}

func NewShell(store catalog.Store, pool *dispatch.Pool, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		store:   store,
		pool:    pool,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Book catalog console. Type 'help' for commands.")

	for {
		fmt.Fprint(s.out, "\n> ")
		if !s.scanner.Scan() {
			return s.scanner.Err()
		}

		switch cmd := strings.TrimSpace(s.scanner.Text()); cmd {
		case "":
		case "help":
			s.printHelp()
		case "exit", "quit":
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		case "login":
			s.handleLogin(ctx)
		case "logout":
			s.run(ctx, func(context.Context) (outcome, error) {
				return outcome{text: "Logged out.", logout: true}, nil
			})
		case "whoami":
			if s.user == nil {
				fmt.Fprintln(s.out, "Not logged in.")
			} else {
				fmt.Fprintf(s.out, "%s (#%d)\n", s.user.Username, s.user.ID)
			}
		case "search":
			s.handleSearch(ctx)
		case "add book":
			s.handleAddBook(ctx)
		case "delete book":
			s.handleDeleteBook(ctx)
		case "rate":
			s.handleRate(ctx)
		case "review":
			s.handleReview(ctx)
		case "reviews":
			s.handleReviews(ctx)
		case "creator":
			s.handleCreator(ctx)
		case "add author":
			s.handleAddAuthor(ctx)
		case "add genre":
			s.handleAddGenre(ctx)
		case "add user":
			s.handleAddUser(ctx)
		default:
			fmt.Fprintf(s.out, "Unknown command %q. Type 'help' for commands.\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  Session: login, logout, whoami")
	fmt.Fprintln(s.out, "  Books: search, add book, delete book, rate, review, reviews, creator")
	fmt.Fprintln(s.out, "  Catalog: add author, add genre, add user")
	fmt.Fprintln(s.out, "  System: help, exit")
}

// run submits job to the pool and applies its outcome once it arrives on the results channel.
func (s *Shell) run(ctx context.Context, job func(ctx context.Context) (outcome, error)) {
	results := make(chan result, 1)
	f := dispatch.Submit(s.pool, job)
	f.OnComplete(func(o outcome, err error) {
		results <- result{outcome: o, err: err}
	})

	var r result
	select {
	case r = <-results:
	case <-ctx.Done():
		fmt.Fprintf(s.out, "Error: %v\n", ctx.Err())
		return
	}

	if r.err != nil {
		fmt.Fprintf(s.out, "Error: %s\n", describe(r.err))
		return
	}
	if r.login != nil {
		s.user = r.login
	}
	if r.logout {
		s.user = nil
	}
	if r.text != "" {
		fmt.Fprintln(s.out, r.text)
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, catalog.ErrMissingUser):
		return "you must log in first"
	case errors.Is(err, dispatch.ErrPoolClosed):
		return "console is shutting down"
	default:
		return err.Error()
	}
}

func (s *Shell) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.scanner.Text()), true
}

func (s *Shell) promptSecret(label string) (string, bool) {
	if s.ReadPassword == nil {
		return s.prompt(label)
	}
	secret, err := s.ReadPassword(label)
	if err != nil {
		fmt.Fprintf(s.out, "Error: failed to read password: %v\n", err)
		return "", false
	}
	return secret, true
}

func (s *Shell) promptInt(label string) (int, bool) {
	raw, ok := s.prompt(label)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %q is not a number\n", raw)
		return 0, false
	}
	return n, true
}

// promptDate accepts YYYY-MM-DD or an empty line for no date.
func (s *Shell) promptDate(label string) (*time.Time, bool) {
	raw, ok := s.prompt(label)
	if !ok || raw == "" {
		return nil, ok
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %q is not a YYYY-MM-DD date\n", raw)
		return nil, false
	}
	return &t, true
}

func (s *Shell) promptIDs(label string) ([]int, bool) {
	raw, ok := s.prompt(label)
	if !ok {
		return nil, false
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %q is not an id\n", part)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

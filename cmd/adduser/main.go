// Command adduser registers an account directly in the database. It is the
// only way to create an Admin, since self-registration over HTTP always
// yields the User role.
//
//	adduser -user alice [-nickname Al] [-email a@example.com] [-admin] [-db data/ledger.db]
//
// The password is prompted for without echo when stdin is a terminal, or read
// from the first line of stdin otherwise.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sakif/expense-ledger/internal/auth"
	"github.com/sakif/expense-ledger/internal/config"
	"github.com/sakif/expense-ledger/internal/model"
	sqliteRepo "github.com/sakif/expense-ledger/internal/repository/sqlite"
	"github.com/sakif/expense-ledger/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	username := fs.String("user", "", "Username")
	nickname := fs.String("nickname", "", "Display name")
	email := fs.String("email", "", "Email address")
	admin := fs.Bool("admin", false, "Grant the Admin role")
	dbPath := fs.String("db", cfg.DBPath, "Path to database file (defaults to DB_PATH)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		fmt.Fprintln(stdout, "Usage: adduser -user <username> [-nickname <name>] [-email <email>] [-admin] [-db <db_path>]")
		fs.PrintDefaults()
		return errors.New("missing required flags: user")
	}

	fmt.Fprint(stdout, "Password: ")
	password, err := readPassword(stdin)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(stdout)

	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be empty")
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	db, err := sqliteRepo.New(*dbPath, sqliteRepo.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	role := model.RoleUser
	if *admin {
		role = model.RoleAdmin
	}

	users := service.NewUserService(db.Users(), auth.NewPasswordService(cfg.PasswordIterations), logger)
	user, err := users.Register(context.Background(), service.RegisterInput{
		Username: *username,
		Password: password,
		Nickname: *nickname,
		Email:    *email,
		Role:     role,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s (%s)\n", user.Username, user.ID, user.Role)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Not a terminal (pipes, tests): take the first line.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

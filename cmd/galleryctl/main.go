// Command galleryctl performs operator tasks on the gallery database.
//
//	galleryctl useradd <username>   register a user; the password is read from the terminal
//	galleryctl users                list usernames
//	galleryctl purge-sessions       remove expired sessions
//	galleryctl migrate              apply pending schema migrations
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/mkrupp/webgallery/internal/infra/config"
	"github.com/mkrupp/webgallery/internal/infra/database"
	"github.com/mkrupp/webgallery/internal/infra/logging"
	"github.com/mkrupp/webgallery/internal/repo/session"
	"github.com/mkrupp/webgallery/internal/repo/user"
	"github.com/mkrupp/webgallery/internal/svc/authsvc"
	"github.com/mkrupp/webgallery/internal/util/clock"
)

const configPrefix = "GALLERY_CTL"

var ErrUsage = errors.New("usage")

type Config struct {
	config.EnvConfig

	Log  logging.LoggerConfig `envPrefix:"LOG_"`
	DB   database.Config      `envPrefix:"DB_"`
	Auth authsvc.AuthConfig   `envPrefix:"AUTH_"`
}

// console is where commands read input and write output.
type console struct {
	in       io.Reader
	out      io.Writer
	password func() (string, error)
}

func main() {
	ctx := context.Background()

	var cfg Config
	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logging.Configure(ctx, cfg.Log, "gallery.ctl")

	con := console{in: os.Stdin, out: os.Stdout}
	con.password = con.readPassword

	if err := run(ctx, cfg, os.Args[1:], con); err != nil {
		fmt.Fprintln(os.Stderr, "galleryctl:", err)

		if errors.Is(err, ErrUsage) {
			os.Exit(2)
		}

		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, args []string, con console) error {
	flags := flag.NewFlagSet("galleryctl", flag.ContinueOnError)
	flags.SetOutput(con.out)

	if err := flags.Parse(args); err != nil {
		return errors.Join(ErrUsage, err)
	}

	if flags.NArg() == 0 {
		return fmt.Errorf("%w: galleryctl useradd|users|purge-sessions|migrate", ErrUsage)
	}

	cmd, rest := flags.Arg(0), flags.Args()[1:]

	if cmd == "migrate" {
		cfg.DB.AutoMigrate = false
	}

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	switch cmd {
	case "useradd":
		return userAdd(ctx, cfg, db, rest, con)
	case "users":
		return listUsers(ctx, cfg, db, con)
	case "purge-sessions":
		return purgeSessions(ctx, cfg, db, con)
	case "migrate":
		return migrate(ctx, db, con)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func userAdd(ctx context.Context, cfg Config, db *database.DB, args []string, con console) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: galleryctl useradd <username>", ErrUsage)
	}

	credentials, err := authsvc.NewCredentialStore(user.SQLUserRepositoryFactory(db), cfg.Auth, clock.NewMonotonic())
	if err != nil {
		return fmt.Errorf("new credential store: %w", err)
	}

	password, err := con.password()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	created, err := credentials.Signup(ctx, args[0], password)
	if err != nil {
		return fmt.Errorf("signup: %w", err)
	}

	fmt.Fprintf(con.out, "user %s created\n", created.Username)

	return nil
}

func listUsers(ctx context.Context, cfg Config, db *database.DB, con console) error {
	credentials, err := authsvc.NewCredentialStore(user.SQLUserRepositoryFactory(db), cfg.Auth, clock.NewMonotonic())
	if err != nil {
		return fmt.Errorf("new credential store: %w", err)
	}

	usernames, err := credentials.ListUsernames(ctx)
	if err != nil {
		return fmt.Errorf("list usernames: %w", err)
	}

	for _, username := range usernames {
		fmt.Fprintln(con.out, username)
	}

	return nil
}

func purgeSessions(ctx context.Context, cfg Config, db *database.DB, con console) error {
	sessions, err := authsvc.NewSessionManager(session.SQLSessionRepositoryFactory(db), cfg.Auth, time.Now, nil)
	if err != nil {
		return fmt.Errorf("new session manager: %w", err)
	}

	n, err := sessions.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired: %w", err)
	}

	fmt.Fprintf(con.out, "%d expired sessions removed\n", n)

	return nil
}

func migrate(ctx context.Context, db *database.DB, con console) error {
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	version, err := db.Version(ctx)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}

	fmt.Fprintf(con.out, "schema version %d\n", version)

	return nil
}

// readPassword prompts on the terminal without echo, or reads one line when stdin is not a terminal.
func (con console) readPassword() (string, error) {
	if file, ok := con.in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		fmt.Fprint(con.out, "Password: ")

		password, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(con.out)

		if err != nil {
			return "", fmt.Errorf("read terminal: %w", err)
		}

		return string(password), nil
	}

	line, err := bufio.NewReader(con.in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// Command booking-admin runs one-off operator tasks against the booking
// database: migrations, seeding weekly hours, creating accounts and issuing
// tokens for them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/migrations"
)

const usage = `usage: booking-admin <command> [flags]

commands:
  migrate          apply database migrations
  init-hours       insert default weekly hours for unset weekdays
  create-account   create an account (-email -password -role ...)
  issue-token      sign an HS256 token for an account (-account -role -ttl)
`

func main() {
	_ = godotenv.Load()
	logger := runtime.NewLogger("booking-admin")

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "migrate":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return err
		}
		return db.Migrate(dbURL, migrations.FS, ".", logger)
	case "init-hours":
		return withPool(ctx, func(pool *db.Pool) error {
			n, err := storage.NewScheduleRepository(pool).EnsureDefaultWeeklyHours(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "inserted %d weekday rows\n", n)
			return nil
		})
	case "create-account":
		return createAccount(ctx, args[1:], out)
	case "issue-token":
		return issueToken(args[1:], out, time.Now())
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func withPool(ctx context.Context, fn func(*db.Pool) error) error {
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

type accountInput struct {
	account  model.Account
	password string
}

func parseAccountFlags(args []string) (accountInput, error) {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		in   accountInput
		role string
	)
	fs.StringVar(&in.account.Email, "email", "", "login email (required)")
	fs.StringVar(&in.password, "password", "", "password (required, min 8 characters)")
	fs.StringVar(&role, "role", string(model.RoleUser), "user, business or admin")
	fs.StringVar(&in.account.FirstName, "first-name", "", "first name")
	fs.StringVar(&in.account.LastName, "last-name", "", "last name")
	fs.StringVar(&in.account.Phone, "phone", "", "phone number")
	inactive := fs.Bool("inactive", false, "create the account disabled")
	if err := fs.Parse(args); err != nil {
		return accountInput{}, err
	}

	in.account.Email = strings.TrimSpace(in.account.Email)
	if in.account.Email == "" || !strings.Contains(in.account.Email, "@") {
		return accountInput{}, errors.New("-email must be a valid address")
	}
	if len(in.password) < 8 {
		return accountInput{}, errors.New("-password must be at least 8 characters")
	}
	r, err := model.ParseRole(role)
	if err != nil {
		return accountInput{}, err
	}
	in.account.Role = r
	in.account.IsActive = !*inactive
	return in, nil
}

func createAccount(ctx context.Context, args []string, out io.Writer) error {
	in, err := parseAccountFlags(args)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(in.password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	in.account.PasswordHash = hash

	return withPool(ctx, func(pool *db.Pool) error {
		acct, err := storage.NewAccountRepository(pool).Create(ctx, in.account)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", acct.ID, acct.Email, acct.Role)
		return nil
	})
}

func issueToken(args []string, out io.Writer, now time.Time) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	accountID := fs.String("account", "", "account id (required)")
	role := fs.String("role", string(model.RoleUser), "role claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*accountID) == "" {
		return errors.New("-account is required")
	}
	if *ttl <= 0 {
		return errors.New("-ttl must be positive")
	}
	r, err := model.ParseRole(*role)
	if err != nil {
		return err
	}
	secret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		return err
	}

	token, err := auth.SignHS256(auth.Claims{
		Sub:  strings.TrimSpace(*accountID),
		Role: string(r),
		Iat:  now.Unix(),
		Exp:  now.Add(*ttl).Unix(),
	}, secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

// queuectl performs the operator actions the HTTP API does not expose:
// applying migrations, registering queues and promoting administrators.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/release-queue/internal/auth"
	"github.com/spec-kit/release-queue/internal/config"
	"github.com/spec-kit/release-queue/internal/observability"
	"github.com/spec-kit/release-queue/internal/persistence"
	"github.com/spec-kit/release-queue/internal/repository"
	"github.com/spec-kit/release-queue/internal/service"
)

const usage = `usage: queuectl [flags] <command> [argument]

commands:
  migrate               apply SQL migrations
  create-queue NAME     register a queue
  list-queues           print registered queues
  promote-admin EMAIL   flag an existing account as administrator
`

// backend is what the commands operate on.
type backend struct {
	queues  *service.QueueService
	auth    *service.AuthService
	migrate func(ctx context.Context) error
	close   func()
}

type openFunc func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, openPostgres); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, open openFunc) error {
	var dsn, migrationsDir string

	flagSet := pflag.NewFlagSet("queuectl", pflag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.StringVar(&dsn, "dsn", "", "postgres DSN (default: POSTGRES_DSN)")
	flagSet.StringVar(&migrationsDir, "migrations-dir", "", "migrations directory (default: POSTGRES_MIGRATIONS_DIR)")
	flagSet.Usage = func() {
		fmt.Fprint(out, usage)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("command required")
	}
	command, operands := rest[0], rest[1:]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if migrationsDir != "" {
		cfg.Postgres.MigrationsDir = migrationsDir
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	b, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close()

	switch command {
	case "migrate":
		return b.migrate(ctx)
	case "create-queue":
		name, err := singleOperand(command, operands)
		if err != nil {
			return err
		}
		if err := b.queues.CreateQueue(ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(out, "queue %s created\n", name)
	case "list-queues":
		names, err := b.queues.ListQueueNames(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
	case "promote-admin":
		email, err := singleOperand(command, operands)
		if err != nil {
			return err
		}
		if err := b.auth.PromoteAdmin(ctx, email); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is now an administrator\n", email)
	default:
		flagSet.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func singleOperand(command string, operands []string) (string, error) {
	if len(operands) != 1 {
		return "", fmt.Errorf("%s takes exactly one argument", command)
	}
	return operands[0], nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	if cfg.Postgres.DSN == "" {
		return nil, errors.New("a postgres DSN is required (--dsn or POSTGRES_DSN)")
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	pool := pg.PoolHandle()

	hasher, err := auth.NewCredentialHasher(cfg.Policy.Salts)
	if err != nil {
		pg.Close()
		return nil, err
	}
	ids := auth.NewIDGenerator(repository.NewIdentifierRepository(pool), cfg.Auth.MaxIDAttempts)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:       repository.NewUserRepository(pool),
		Hasher:         hasher,
		IDs:            ids,
		AllowedDomains: cfg.Policy.AllowedEmailDomains,
		Logger:         logger,
	})
	return &backend{
		queues: service.NewQueueService(service.QueueDependencies{
			QueueRepo: repository.NewQueueRepository(pool),
			Auth:      authService,
			IDs:       ids,
			Logger:    logger,
		}),
		auth: authService,
		migrate: func(ctx context.Context) error {
			return persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger)
		},
		close: pg.Close,
	}, nil
}

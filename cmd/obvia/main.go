package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kovacsdavid/obvia/internal/app"
	"github.com/kovacsdavid/obvia/internal/config"
	"github.com/kovacsdavid/obvia/internal/domain/repository"
	"github.com/kovacsdavid/obvia/internal/infra/tenantsql"
	"github.com/kovacsdavid/obvia/internal/metrics"
	"github.com/kovacsdavid/obvia/internal/observability/logger"
	"github.com/kovacsdavid/obvia/internal/security/password"
	"github.com/kovacsdavid/obvia/internal/store/pg"
	"github.com/kovacsdavid/obvia/migrations"
)

func main() {
	var (
		configPath = os.Getenv("CONFIG_PATH")
		envFile    = ".env"
		cfg        *config.Config
	)

	root := &cobra.Command{
		Use:           "obvia",
		Short:         "CLI de operación para obvia (migraciones, usuarios)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "hash-password" {
				return nil
			}
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "warning: could not load %s: %v\n", envFile, err)
			}
			c, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = c
			logger.Init(logger.Config{
				Env:         c.App.Env,
				Level:       c.Log.Level,
				ServiceName: c.App.Name + "-cli",
				Version:     c.App.Version,
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "Path a config YAML (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&envFile, "env-file", envFile, "Path a archivo .env")

	// ─── migrate ───
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones del manager database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := app.ConnectManagerDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			res, err := tenantsql.NewMigrator(migrations.ManagerFS, migrations.ManagerDir).RunPool(ctx, pool, "manager")
			if err != nil {
				return fmt.Errorf("migrate manager database: %w", err)
			}
			printMigration("manager", res)
			return nil
		},
	})

	// ─── tenants ───
	tenants := &cobra.Command{Use: "tenants", Short: "Operaciones sobre bases de tenants"}
	tenants.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Migra todas las bases de tenants no borrados",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := app.ConnectManagerDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			return migrateTenants(ctx, pg.New(pool, cfg.ManagerDB.AdminRole).Tenants(),
				tenantsql.NewMigrator(migrations.TenantFS, migrations.TenantDir))
		},
	})
	root.AddCommand(tenants)

	// ─── users ───
	var (
		email, plain, firstName, lastName string
	)
	users := &cobra.Command{Use: "users", Short: "Gestión de usuarios"}
	usersCreate := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario activo con password Argon2id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := app.ConnectManagerDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			u, err := createUser(ctx, pg.New(pool, cfg.ManagerDB.AdminRole).Users(), repository.CreateUserInput{
				Email:     email,
				FirstName: firstName,
				LastName:  lastName,
			}, plain)
			if err != nil {
				return err
			}
			fmt.Printf("created user %s (%s)\n", u.ID, u.Email)
			return nil
		},
	}
	usersCreate.Flags().StringVar(&email, "email", "", "Email (requerido)")
	usersCreate.Flags().StringVar(&plain, "password", "", "Password (requerido)")
	usersCreate.Flags().StringVar(&firstName, "first-name", "", "Nombre")
	usersCreate.Flags().StringVar(&lastName, "last-name", "", "Apellido")
	_ = usersCreate.MarkFlagRequired("email")
	_ = usersCreate.MarkFlagRequired("password")
	users.AddCommand(usersCreate)
	root.AddCommand(users)

	// ─── hash-password ───
	root.AddCommand(&cobra.Command{
		Use:   "hash-password [password]",
		Short: "Imprime el hash Argon2id (lee stdin si no hay argumento)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p string
			if len(args) == 1 {
				p = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				p = strings.TrimRight(line, "\r\n")
			}
			h, err := password.Hash(password.Default, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func printMigration(target string, res *tenantsql.MigrationResult) {
	if len(res.Applied) == 0 {
		fmt.Printf("%s: up to date\n", target)
		return
	}
	fmt.Printf("%s: applied %v\n", target, res.Applied)
}

type tenantMigrator interface {
	MigrateDescriptor(ctx context.Context, tenantID string, desc repository.DatabaseConnection) (*tenantsql.MigrationResult, error)
}

type tenantLister interface {
	ListActive(ctx context.Context) ([]repository.Tenant, error)
}

// migrateTenants sigue con el resto si un tenant falla y devuelve error al final.
func migrateTenants(ctx context.Context, tenants tenantLister, m tenantMigrator) error {
	log := logger.From(ctx).With(logger.Component("cli.tenants"), logger.Op("migrate"))
	list, err := tenants.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	failed := 0
	for _, t := range list {
		start := time.Now()
		res, err := m.MigrateDescriptor(ctx, t.ID, t.DB)
		if err != nil {
			failed++
			metrics.RecordTenantMigration("failure", time.Since(start))
			log.Error("tenant migration failed", logger.TenantID(t.ID), logger.Err(err))
			fmt.Printf("%s: FAILED: %v\n", t.ID, err)
			continue
		}
		metrics.RecordTenantMigration("success", time.Since(start))
		printMigration(t.ID, res)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tenant migrations failed", failed, len(list))
	}
	return nil
}

type userCreator interface {
	Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error)
}

func createUser(ctx context.Context, users userCreator, in repository.CreateUserInput, plain string) (*repository.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" {
		return nil, errors.New("email required")
	}
	if err := password.DefaultPolicy.Check(plain); err != nil {
		return nil, err
	}
	hash, err := password.Hash(password.Default, plain)
	if err != nil {
		return nil, err
	}
	in.PasswordHash = hash
	in.Status = repository.UserStatusActive

	u, err := users.Create(ctx, in)
	if err != nil {
		if repository.IsConflict(err) {
			return nil, fmt.Errorf("user exists: %s", in.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

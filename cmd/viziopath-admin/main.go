package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/redmonkez12/viziopath-api/cmd/viziopath-admin/ui"
	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/admin"
	"github.com/redmonkez12/viziopath-api/internal/config"
	"github.com/redmonkez12/viziopath-api/internal/database"
	"github.com/redmonkez12/viziopath-api/internal/password"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "viziopath-admin",
		Short:         "Operate the Viziopath database",
		Long:          "Apply migrations, load sample data and create accounts. Connection settings come from the same environment as the API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply Postgres migrations or create MongoDB indexes",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample accounts and profiles",
		RunE:  runSeed,
	}

	createUserCmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a verified account",
		Long:  "Create a verified account. Missing flags are asked for interactively.",
		RunE:  runCreateUser,
	}
	createUserCmd.Flags().String("name", "", "Display name")
	createUserCmd.Flags().String("email", "", "Email address")
	createUserCmd.Flags().String("password", "", "Password (prompted when omitted)")
	createUserCmd.Flags().String("role", "", "Role (user, moderator, admin)")

	rootCmd.AddCommand(migrateCmd, seedCmd, createUserCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

func openStores(ctx context.Context) (*config.Config, *database.Stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	stores, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, stores, nil
}

func newProvisioner(cfg *config.Config, stores *database.Stores) (*admin.Provisioner, error) {
	hasher, err := password.NewHasher(cfg.Security.PasswordAlgorithm, cfg.Security.BcryptCost)
	if err != nil {
		return nil, err
	}
	return admin.NewProvisioner(stores.Accounts, stores.Profiles, hasher), nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, stores, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer stores.Close()

	if err := stores.Migrate(cmd.Context()); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("%s schema is up to date", cfg.Database.Driver))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, stores, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer stores.Close()

	provisioner, err := newProvisioner(cfg, stores)
	if err != nil {
		return err
	}

	report, err := provisioner.Seed(cmd.Context())
	if report != nil {
		ui.PrintSeedReport(report)
	}
	return err
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	addr, _ := cmd.Flags().GetString("email")
	pass, _ := cmd.Flags().GetString("password")
	role, _ := cmd.Flags().GetString("role")

	u := admin.NewUser{Name: name, Email: addr, Password: pass, Role: account.Role(role)}
	if err := ui.RunUserForm(&u); err != nil {
		return fmt.Errorf("form cancelled: %w", err)
	}

	cfg, stores, err := openStores(cmd.Context())
	if err != nil {
		return err
	}
	defer stores.Close()

	provisioner, err := newProvisioner(cfg, stores)
	if err != nil {
		return err
	}

	acc, err := provisioner.CreateUser(cmd.Context(), u)
	if err != nil {
		return err
	}

	ui.PrintUser(acc)
	return nil
}

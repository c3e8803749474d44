package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/repairdesk/internal/bootstrap"
	"github.com/dmitrijs2005/repairdesk/internal/buildinfo"
	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/config"
	"github.com/dmitrijs2005/repairdesk/internal/remote"
	"github.com/spf13/cobra"
)

// RootOptions carries the configuration resolved before any command runs.
type RootOptions struct {
	Config *config.Config
}

// NewRootCommand builds the repairdesk command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "repairdesk",
		Short: "Offline-first repair shop desk",
		Long: `RepairDesk keeps a repair shop's clients, repairs and staff in a local
database and syncs them to a shared cloud database when online.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				return a.Shell(ctx)
			})
		},
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newShellCommand(opts))
	cmd.AddCommand(newSetupCommand(opts))
	cmd.AddCommand(newRestoreCommand(opts))
	cmd.AddCommand(newPushCommand(opts))
	cmd.AddCommand(newPullCommand(opts))
	cmd.AddCommand(newBackupCommand(opts))
	cmd.AddCommand(newRemoteCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// withApp builds the App for one command invocation and closes it after.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := NewApp(ctx, opts.Config, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive desk (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				return a.Shell(ctx)
			})
		},
	}
}

func newSetupCommand(opts *RootOptions) *cobra.Command {
	var shop bootstrap.ShopInput
	var owner bootstrap.OwnerInput

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Set up a new shop on this device",
		Long: `Create the shop and its owner account locally. Both are sent to the
cloud with the first push.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				return a.setup(ctx, shop, owner)
			})
		},
	}
	cmd.Flags().StringVar(&shop.Name, "shop", "", "shop name")
	cmd.Flags().StringVar(&shop.Phone, "phone", "", "shop phone")
	cmd.Flags().StringVar(&shop.Email, "email", "", "shop email")
	cmd.Flags().StringVar(&shop.Address, "address", "", "shop address")
	cmd.Flags().StringVarP(&owner.Username, "username", "u", "", "owner username")
	cmd.Flags().StringVar(&owner.FullName, "full-name", "", "owner full name")
	return cmd
}

func (a *App) setup(ctx context.Context, shop bootstrap.ShopInput, owner bootstrap.OwnerInput) error {
	st, err := a.boot.State(ctx)
	if err != nil {
		return err
	}
	if st != bootstrap.Fresh {
		return common.ErrAlreadyConfigured
	}

	prompts := []struct {
		prompt string
		dst    *string
	}{
		{"Shop name", &shop.Name},
		{"Owner username", &owner.Username},
		{"Owner full name", &owner.FullName},
	}
	for _, p := range prompts {
		if strings.TrimSpace(*p.dst) != "" {
			continue
		}
		if *p.dst, err = a.ask(p.prompt); err != nil {
			return err
		}
	}

	pw, err := GetPassword(a.out, "Owner password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	again, err := GetPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)
	if string(pw) != string(again) {
		return fmt.Errorf("%w: passwords do not match", common.ErrInvalidInput)
	}
	owner.Password = pw

	org, u, err := a.boot.Setup(ctx, shop, owner)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Shop %q is ready, owner %s\n", org.Name, u.Username)
	if a.pusher == nil {
		fmt.Fprintln(a.out, "No remote store configured; data stays on this device")
	}
	return nil
}

func newRestoreCommand(opts *RootOptions) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore an existing shop from the cloud onto this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				return a.restore(ctx, username)
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "owner username")
	return cmd
}

func (a *App) restore(ctx context.Context, username string) error {
	var err error
	if username == "" {
		if username, err = a.ask("Owner username"); err != nil {
			return err
		}
	}
	pw, err := GetPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	if a.watcher != nil {
		a.watcher.Check(ctx)
	}
	org, err := a.boot.Restore(ctx, username, pw)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	fmt.Fprintf(a.out, "Restored %q onto this device\n", org.Name)
	return nil
}

func newPushCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Send local changes to the cloud once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				if a.watcher != nil {
					a.watcher.Check(ctx)
				}
				return a.pushNow(ctx, nil)
			})
		},
	}
}

func newPullCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Refresh this device from the cloud once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				if a.watcher != nil {
					a.watcher.Check(ctx)
				}
				return a.pullNow(ctx, nil)
			})
		},
	}
}

func newBackupCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a local backup now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				return a.backupNow(ctx, nil)
			})
		},
	}
}

func newRemoteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage the cloud database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the cloud schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *App) error {
				if a.store == nil {
					return remote.ErrNoRemote
				}
				applied, err := remote.Migrate(ctx, a.store.DB(), a.store.Dialect())
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(a.out, "Remote schema is up to date")
					return nil
				}
				fmt.Fprintf(a.out, "Applied remote migrations %v (%s)\n", applied, a.store.Dialect().Name())
				return nil
			})
		},
	})
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// Package cli is the ordertrack command line: servers, schema management and
// the operator commands that otherwise arrive over HTTP.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/ordertrack/internal/app"
	"github.com/Additional-Code/ordertrack/internal/dto"
	"github.com/Additional-Code/ordertrack/internal/migration"
	"github.com/Additional-Code/ordertrack/internal/scheduler"
	"github.com/Additional-Code/ordertrack/internal/seeder"
	ordersvc "github.com/Additional-Code/ordertrack/internal/service/order"
	"github.com/Additional-Code/ordertrack/pkg/errorbank"
)

// NewRootCommand builds the root ordertrack CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ordertrack",
		Short:         "Order lifecycle tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newTickCmd())
	root.AddCommand(newOrderCmd())
	root.AddCommand(newLedgerCmd())

	return root
}

// Execute runs the ordertrack CLI until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", describe(err))
		return err
	}
	return nil
}

func describe(err error) string {
	appErr := errorbank.From(err)
	if appErr.Kind() == errorbank.KindInternal {
		return err.Error()
	}
	return fmt.Sprintf("%s (%s)", appErr.Message(), appErr.Kind())
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), fx.New(app.Module))
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume inbound orders and run the reminder ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), fx.New(app.Worker))
		},
	})
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample pending orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				n, err := seed.Orders(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d orders\n", n)
				return nil
			})
		},
	}
}

func newTickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run one reminder pass over pending orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s *scheduler.Scheduler
			opts := fx.Options(app.Core, fx.Populate(&s))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				res, err := s.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

// withService runs fn against an order service backed by the core modules.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *ordersvc.Service) (any, error)) error {
	var svc *ordersvc.Service
	opts := fx.Options(app.Core, fx.Populate(&svc))
	return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
		out, err := fn(ctx, svc)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	})
}

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Operator commands for a single order",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [order-id]",
			Short: "Show an order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
					o, err := svc.Get(ctx, args[0])
					if err != nil {
						return nil, err
					}
					return dto.FromOrder(o), nil
				})
			},
		},
		&cobra.Command{
			Use:   "paid [order-id]",
			Short: "Mark an order paid and record it in the ledger",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
					return svc.MarkPaid(ctx, args[0])
				})
			},
		},
		newCancelCmd(),
		&cobra.Command{
			Use:   "restore [order-id]",
			Short: "Undo the last full cancel",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
					return svc.Restore(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "unhide [order-id]",
			Short: "Show a hidden order in today's list again",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
					o, err := svc.Unhide(ctx, args[0])
					if err != nil {
						return nil, err
					}
					return dto.FromOrder(o), nil
				})
			},
		},
		&cobra.Command{
			Use:   "complete [order-id]",
			Short: "Mark a paid order completed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
					o, err := svc.Complete(ctx, args[0])
					if err != nil {
						return nil, err
					}
					return dto.FromOrder(o), nil
				})
			},
		},
		&cobra.Command{
			Use:   "today",
			Short: "List today's visible orders",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
					orders, err := svc.ListToday(ctx)
					if err != nil {
						return nil, err
					}
					return dto.FromOrders(orders), nil
				})
			},
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Physically remove orders marked deleted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
					n, err := svc.PurgeDeleted(ctx)
					return map[string]int{"purged": n}, err
				})
			},
		},
	)
	return cmd
}

func newCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel [order-id]",
		Short: "Cancel an order (hide from today's list, or fully with a restorable snapshot)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, _ := cmd.Flags().GetString("mode")
			return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
				o, err := svc.Cancel(ctx, args[0], ordersvc.CancelMode(mode))
				if err != nil {
					return nil, err
				}
				return dto.FromOrder(o), nil
			})
		},
	}
	cmd.Flags().String("mode", string(ordersvc.CancelFull), "Cancel mode: hide or full")
	return cmd
}

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and clean up the paid-items ledger",
	}

	showCmd := &cobra.Command{
		Use:   "show [day]",
		Short: "Show the ledger for a day (YYYY-MM-DD, default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
				day := svc.Today()
				if len(args) == 1 {
					day = args[0]
				}
				ld, err := svc.LedgerByDay(ctx, day)
				if err != nil {
					return nil, err
				}
				return dto.FromLedger(ld.Day, ld.Total, ld.Entries), nil
			})
		},
	}

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what today's cleanup would remove",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
				ld, err := svc.CleanupPreview(ctx)
				if err != nil {
					return nil, err
				}
				return dto.FromLedger(ld.Day, ld.Total, ld.Entries), nil
			})
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete today's ledger entries and mark their orders deleted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errorbank.BadRequest("cleanup is destructive; pass --yes to confirm")
			}
			return withService(cmd, func(ctx context.Context, svc *ordersvc.Service) (any, error) {
				return svc.CleanupConfirm(ctx)
			})
		},
	}
	cleanupCmd.Flags().Bool("yes", false, "Confirm the cleanup")

	cmd.AddCommand(showCmd, previewCmd, cleanupCmd)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runUntilDone(ctx context.Context, application *fx.App) error {
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return application.Stop(stopCtx)
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}

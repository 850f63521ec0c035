package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/bquezada-bit/Silvacentinel/internal/analysis"
	"github.com/bquezada-bit/Silvacentinel/internal/complaint"
	"github.com/bquezada-bit/Silvacentinel/internal/storage"

	"github.com/spf13/cobra"
)

func newSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <complaint-id> <pendiente|en_proceso|resuelta|rechazada>",
		Short: "Change the status of a complaint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid complaint id %q", args[0])
			}
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				actor, err := e.actor(ctx)
				if err != nil {
					return err
				}
				svc := complaint.NewService(e.store, nil, nil, e.log)
				c, err := svc.ChangeStatus(ctx, actor, uint(id), args[1])
				if err != nil {
					return err
				}
				fmt.Printf("Complaint #%d is now %s.\n", c.ID, c.Status.Label())
				return nil
			})
		},
	}
}

type logsFlags struct {
	username string
	date     string
	limit    int
}

func newLogsCmd() *cobra.Command {
	var flags logsFlags

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the activity log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				f := storage.ActivityFilter{Limit: flags.limit}
				if flags.username != "" {
					a, err := e.account(ctx, flags.username)
					if err != nil {
						return err
					}
					f.ActorID = &a.ID
				}
				if flags.date != "" {
					d, err := time.Parse("2006-01-02", flags.date)
					if err != nil {
						return fmt.Errorf("invalid --fecha %q, expected YYYY-MM-DD", flags.date)
					}
					f.Date = &d
				}

				entries, err := e.store.ListActivity(ctx, f)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FECHA\tUSUARIO\tIP\tACCIÓN")
				for _, entry := range entries {
					who := "-"
					if entry.Actor != nil {
						who = entry.Actor.Username
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"), who, entry.IP, entry.Action)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&flags.username, "usuario", "", "only entries by this username")
	cmd.Flags().StringVar(&flags.date, "fecha", "", "only entries of this day (YYYY-MM-DD, UTC)")
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "maximum number of entries")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				d, err := analysis.BuildDashboard(ctx, e.store)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "Denuncias\t%d\n", d.TotalComplaints)
				fmt.Fprintf(w, "Usuarios\t%d\n", d.TotalAccounts)
				fmt.Fprintf(w, "Categorías\t%d\n\n", d.TotalCategories)
				for _, s := range d.ByStatus {
					fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", s.Label, s.Total, s.Percent)
				}
				fmt.Fprintln(w)
				for _, p := range d.ByPriority {
					fmt.Fprintf(w, "Prioridad %s\t%d\n", p.Label, p.Total)
				}
				fmt.Fprintln(w)
				for _, c := range d.TopCategories {
					fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Total)
				}
				return w.Flush()
			})
		},
	}
}

func newSeedCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-categories",
		Short: "Insert the default complaint categories that are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withStorage(ctx, func(e *env) error {
				if err := e.store.SeedCategories(ctx); err != nil {
					return err
				}
				n, err := e.store.CountCategories(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%d categories available.\n", n)
				return nil
			})
		},
	}
}

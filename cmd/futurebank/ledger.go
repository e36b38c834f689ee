package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"futurebank/internal/core"
	"futurebank/internal/log"
	"futurebank/internal/services"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func balanceCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show point balances",
		Long:  `Show the balance of every household member, or of one with --user.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd, log.ComponentCLI)
			if err != nil {
				return err
			}
			defer app.Close()

			sum, err := app.Service.Summary(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", headerStyle.Render("User"), headerStyle.Render("Balance"))
			fmt.Fprintf(w, "%s\t%s\n", strings.Repeat("-", 10), strings.Repeat("-", 10))
			for _, b := range sum.Balances {
				if user != "" && b.User != user {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\n", b.User, signedPoints(b.Balance))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if user == "" {
				fmt.Fprintf(out, "\n%s %s  %s %s  %s %d\n",
					mutedStyle.Render("total"), core.FormatPoints(sum.TotalPoints),
					mutedStyle.Render("saved"), core.FormatYen(sum.SavedYen),
					mutedStyle.Render("diet"), sum.DietCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "only show this user")
	return cmd
}

func earnCmd() *cobra.Command {
	var user, action string

	cmd := &cobra.Command{
		Use:   "earn",
		Short: "Record a catalog action",
		Long:  `Append the earn record of one catalog action, as if its dashboard button were pressed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd, log.ComponentCLI)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Service.EarnAction(cmd.Context(), user, action)
			if err != nil {
				return err
			}
			printReceipt(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "household member (required)")
	cmd.Flags().StringVarP(&action, "action", "a", "", "catalog action name (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func saveCmd() *cobra.Command {
	var user, yen, note string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Record a free-form saving",
		Long:  `Append a saving of any yen amount; points follow POINTS_PER_YEN.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := core.ParseAmount(yen)
			if err != nil {
				return err
			}

			app, err := openApp(cmd, log.ComponentCLI)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Service.SaveCustom(cmd.Context(), user, amount, note)
			if err != nil {
				return err
			}
			printReceipt(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "household member (required)")
	cmd.Flags().StringVar(&yen, "yen", "", "amount saved, e.g. 1,200 (required)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "what was saved (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("yen")
	_ = cmd.MarkFlagRequired("note")
	return cmd
}

func redeemCmd() *cobra.Command {
	var user, ticket string

	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Spend points on a ticket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd, log.ComponentCLI)
			if err != nil {
				return err
			}
			defer app.Close()

			rec, err := app.Service.Redeem(cmd.Context(), user, ticket)
			if errors.Is(err, core.ErrInsufficientBalance) {
				return fmt.Errorf("%w (policy %s)", err, app.Service.Policy())
			}
			if err != nil {
				return err
			}
			printReceipt(cmd.OutOrStdout(), rec)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "household member (required)")
	cmd.Flags().StringVarP(&ticket, "ticket", "t", "", "ticket name (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("ticket")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		user  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List passbook records, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd, log.ComponentCLI)
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.Service.History(cmd.Context(), user, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("The passbook is empty."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("When"),
				headerStyle.Render("User"),
				headerStyle.Render("Category"),
				headerStyle.Render("Item"),
				headerStyle.Render("Points"))
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.Timestamp.In(app.Location).Format("2006/01/02 15:04"),
					r.User, r.Category, r.Item, recordPoints(r))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "only this user's records")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum records to show, 0 for all")
	return cmd
}

func ticketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tickets",
		Short: "List reward tickets and who can afford them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := openApp(cmd, log.ComponentCLI)
			if err != nil {
				return err
			}
			defer app.Close()

			sum, err := app.Service.Summary(cmd.Context())
			if err != nil {
				return err
			}
			users := app.Service.Users()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			header := []string{headerStyle.Render("Ticket"), headerStyle.Render("Cost")}
			for _, u := range users {
				header = append(header, headerStyle.Render(u))
			}
			fmt.Fprintln(w, strings.Join(header, "\t"))

			for _, offer := range sum.Offers {
				row := []string{offer.Ticket.Name, core.FormatPoints(offer.Ticket.Cost)}
				for _, u := range users {
					if offer.Affordable[u] {
						row = append(row, successStyle.Render("ok"))
					} else {
						row = append(row, mutedStyle.Render("-"))
					}
				}
				fmt.Fprintln(w, strings.Join(row, "\t"))
			}
			return nil
		},
	}
}

func printReceipt(out io.Writer, rec services.Receipt) {
	r := rec.Record
	fmt.Fprintf(out, "%s %s %s %s\n",
		successStyle.Render("recorded"), r.User, r.Item, recordPoints(r))

	switch {
	case !rec.BalanceKnown:
		fmt.Fprintln(out, warnStyle.Render("balance could not be read back; run 'futurebank balance' to check"))
	case rec.Overdraft:
		fmt.Fprintf(out, "%s %s\n", warnStyle.Render("balance is now negative:"), signedPoints(rec.Balance))
	default:
		fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("balance"), signedPoints(rec.Balance))
	}
}

// recordPoints renders the stored signed points; spends are already negative.
func recordPoints(r core.Record) string {
	return signedPoints(r.Points)
}

func signedPoints(p int64) string {
	if p > 0 {
		return "+" + core.FormatPoints(p)
	}
	return core.FormatPoints(p)
}

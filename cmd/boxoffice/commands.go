package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/movie-ticket-storefront/internal/client"
)

type options struct {
	api      string
	token    string
	email    string
	password string
	timeout  time.Duration
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// connect builds an API client, logging in with email/password when no
// token was given.
func (o *options) connect(ctx context.Context, needAuth bool) (*client.Client, error) {
	c := client.New(o.api, nil)
	switch {
	case o.token != "":
		c.SetToken(o.token)
	case needAuth && o.email != "":
		if _, err := c.Login(ctx, o.email, o.password); err != nil {
			return nil, fmt.Errorf("login: %w", err)
		}
	case needAuth:
		return nil, errors.New("this command needs --token or --email/--password")
	}
	return c, nil
}

func parseID(s, what string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "boxoffice",
		Short:         "Movie ticket storefront",
		Long:          `Browse shows, pick seats and manage bookings from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.api, "api", envOr("BOXOFFICE_API", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&o.token, "token", os.Getenv("BOXOFFICE_TOKEN"), "bearer access token")
	root.PersistentFlags().StringVar(&o.email, "email", os.Getenv("BOXOFFICE_EMAIL"), "login email")
	root.PersistentFlags().StringVar(&o.password, "password", os.Getenv("BOXOFFICE_PASSWORD"), "login password")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 15*time.Second, "overall request timeout")

	root.AddCommand(
		showsCmd(o),
		seatsCmd(o),
		bookCmd(o),
		cancelCmd(o),
		myBookingsCmd(o),
		statsCmd(o),
	)
	return root
}

func showsCmd(o *options) *cobra.Command {
	var q client.ShowQuery
	cmd := &cobra.Command{
		Use:   "shows",
		Short: "List upcoming shows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			c, err := o.connect(ctx, false)
			if err != nil {
				return err
			}
			page, err := c.Shows(ctx, q)
			if err != nil {
				return err
			}
			renderShows(cmd.OutOrStdout(), page)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Movie, "movie", "", "movie title contains")
	cmd.Flags().StringVar(&q.Date, "date", "", "show date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.Theatre, "theatre", "", "theatre name contains")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 12, "shows per page")
	return cmd
}

func seatsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seats SHOW_ID",
		Short: "Print the seat map of a show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showID, err := parseID(args[0], "show id")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			c, err := o.connect(ctx, false)
			if err != nil {
				return err
			}
			show, err := c.Show(ctx, showID)
			if err != nil {
				return err
			}
			snap, err := c.BookedSeats(ctx, showID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s | %s %s | %s, %s\n",
				show.MovieTitle, show.ShowDate, show.ShowTime, show.TheatreName, show.ScreenName)
			renderSeatMap(cmd.OutOrStdout(), snap, show.BasePrice)
			return nil
		},
	}
}

func bookCmd(o *options) *cobra.Command {
	var payment string
	cmd := &cobra.Command{
		Use:   "book SHOW_ID SEAT [SEAT...]",
		Short: "Book seats, e.g. book 12 A1 D2",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			showID, err := parseID(args[0], "show id")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			c, err := o.connect(ctx, true)
			if err != nil {
				return err
			}

			co := client.NewCoordinator(c, showID)
			b, err := co.Submit(ctx, args[1:], payment)
			if err != nil {
				var sel *client.SelectionError
				switch {
				case errors.As(err, &sel):
				case client.IsConflict(err):
					fmt.Fprintln(cmd.ErrOrStderr(), "Some seats were taken in the meantime. Current availability:")
					renderSeatMap(cmd.ErrOrStderr(), co.Snapshot(), 0)
				case !co.Snapshot().IsZero():
					fmt.Fprintln(cmd.ErrOrStderr(), "No confirmation received, the booking may still have gone through. Check my-bookings before retrying. Current availability:")
					renderSeatMap(cmd.ErrOrStderr(), co.Snapshot(), 0)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booking confirmed: #%d %s (total %d, ref %s)\n",
				b.ID, strings.Join(b.Seats, ", "), b.TotalAmount, b.Reference)
			return nil
		},
	}
	cmd.Flags().StringVar(&payment, "payment", "", "payment method label (default upi)")
	return cmd
}

func cancelCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel BOOKING_ID",
		Short: "Cancel a booking and release its seats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "booking id")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			c, err := o.connect(ctx, true)
			if err != nil {
				return err
			}
			res, err := c.Cancel(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: #%d %s\n", res.Message, res.Booking.ID, strings.Join(res.Booking.Seats, ", "))
			return nil
		},
	}
}

func myBookingsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "my-bookings",
		Short: "List your bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			c, err := o.connect(ctx, true)
			if err != nil {
				return err
			}
			list, err := c.MyBookings(ctx)
			if err != nil {
				return err
			}
			renderBookings(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func statsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Admin dashboard: revenue, top movies and recent bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			c, err := o.connect(ctx, true)
			if err != nil {
				return err
			}
			st, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

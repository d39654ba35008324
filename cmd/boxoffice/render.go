package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/iliyamo/movie-ticket-storefront/internal/client"
	"github.com/iliyamo/movie-ticket-storefront/internal/model"
	"github.com/iliyamo/movie-ticket-storefront/internal/seating"
)

// bookedMark replaces the seat number of a taken seat in the seat map.
const bookedMark = "XX"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderShows(w io.Writer, page client.ShowPage) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Movie", "Date", "Time", "Theatre", "Screen", "From", "Free"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 28},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	for _, s := range page.Shows {
		t.AppendRow(table.Row{
			s.ID, s.MovieTitle, s.ShowDate, s.ShowTime,
			s.TheatreName, s.ScreenName, s.BasePrice,
			fmt.Sprintf("%d/%d", s.AvailableSeats, s.BookableSeats),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("page %d of %d", page.Page, page.Pages), "", "", "", "", "", page.Total})
	t.Render()
}

// renderSeatMap prints one line per row, front row first.  Booked seats
// show as XX.  Prices are omitted when base is 0.
func renderSeatMap(w io.Writer, snap client.Snapshot, base int64) {
	t := newTable(w)
	header := table.Row{"Row", "Tier", "Seats"}
	if base > 0 {
		header = table.Row{"Row", "Tier", "Price", "Seats"}
	}
	t.AppendHeader(header)

	for _, r := range snap.Layout.Rows() {
		cells := make([]string, len(r.Seats))
		for i, s := range r.Seats {
			if snap.IsBooked(s.Label()) {
				cells[i] = bookedMark
			} else {
				cells[i] = fmt.Sprintf("%2d", s.Number)
			}
		}
		row := table.Row{string(r.Label), r.Tier.String()}
		if base > 0 {
			row = append(row, seating.Price(base, r.Tier))
		}
		t.AppendRow(append(row, strings.Join(cells, " ")))
	}
	t.AppendFooter(table.Row{"", "free", fmt.Sprintf("%d of %d", len(snap.Available()), snap.Layout.Size())})
	t.Render()
	if !snap.AsOf.IsZero() {
		fmt.Fprintf(w, "as of %s\n", snap.AsOf.Format("2006-01-02 15:04:05 MST"))
	}
}

func renderBookings(w io.Writer, list []model.BookingDetail) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Movie", "When", "Where", "Seats", "Total", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 6, Align: text.AlignRight}})
	for _, b := range list {
		t.AppendRow(table.Row{
			b.ID, b.MovieTitle, b.ShowDate + " " + b.ShowTime,
			b.TheatreName + " / " + b.ScreenName,
			strings.Join(b.Seats, ", "), b.TotalAmount, string(b.Status),
		})
	}
	t.Render()
}

func renderStats(w io.Writer, st client.Stats) {
	t := newTable(w)
	t.SetTitle("Revenue")
	t.AppendHeader(table.Row{"Window", "Bookings", "Revenue"})
	t.AppendRow(table.Row{"today", st.Today.Bookings, st.Today.Revenue})
	t.AppendRow(table.Row{"this month", st.Month.Bookings, st.Month.Revenue})
	t.Render()

	top := newTable(w)
	top.SetTitle("Top movies")
	top.AppendHeader(table.Row{"#", "By bookings", "Count", "By revenue", "Revenue"})
	n := len(st.TopMovies)
	if len(st.TopMoviesByRevenue) > n {
		n = len(st.TopMoviesByRevenue)
	}
	for i := 0; i < n; i++ {
		row := table.Row{strconv.Itoa(i + 1), "", "", "", ""}
		if i < len(st.TopMovies) {
			row[1], row[2] = st.TopMovies[i].Title, st.TopMovies[i].Bookings
		}
		if i < len(st.TopMoviesByRevenue) {
			row[3], row[4] = st.TopMoviesByRevenue[i].Title, st.TopMoviesByRevenue[i].Revenue
		}
		top.AppendRow(row)
	}
	top.Render()

	if len(st.RecentBookings) > 0 {
		fmt.Fprintln(w, "Recent bookings")
		renderBookings(w, st.RecentBookings)
	}
}

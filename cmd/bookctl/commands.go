package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medbook/internal/booking"
	"medbook/internal/domain"
	"medbook/pkg/timeofday"
)

func dateFlag(v *viper.Viper) string {
	if d := v.GetString("date"); d != "" {
		return d
	}
	return time.Now().Format(timeofday.DateLayout)
}

func newSlotsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List candidate slots for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSettings(v)
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), s, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.wizard.SelectDate(cmd.Context(), dateFlag(v)); err != nil {
				return err
			}
			renderState(cmd.OutOrStdout(), sess.wizard.State())
			return nil
		},
	}
	cmd.Flags().String("date", "", "date (YYYY-MM-DD), defaults to today")
	return cmd
}

func newBookCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSettings(v)
			if err != nil {
				return err
			}
			at := v.GetString("time")
			if at == "" {
				return errors.New("--time is required")
			}

			sess, err := openSession(cmd.Context(), s, nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			w := sess.wizard
			if err := w.SelectDate(cmd.Context(), dateFlag(v)); err != nil {
				return err
			}
			if err := w.SelectTime(at); err != nil {
				renderState(out, w.State())
				return fmt.Errorf("%s: %w", at, err)
			}

			res, err := w.ConfirmBooking(cmd.Context())
			if err != nil {
				renderState(out, w.State())
				return err
			}

			fmt.Fprintf(out, "booked %s on %s at %s\n", res.BookingID, res.AppointmentDate, res.AppointmentTime)
			fmt.Fprintf(out, "%s, total %.2f, payment %s\n", res.ConsultationType.DisplayName(), res.TotalAmount, res.PaymentStatus)
			if res.InvoiceURL != "" {
				fmt.Fprintf(out, "invoice: %s\n", res.InvoiceURL)
			}
			return nil
		},
	}
	cmd.Flags().String("date", "", "date (YYYY-MM-DD), defaults to today")
	cmd.Flags().String("time", "", "start time (HH:mm)")
	return cmd
}

func renderState(out io.Writer, st booking.State) {
	sel := st.Selection
	fmt.Fprintf(out, "doctor %d  %s  %s", sel.DoctorID, sel.Date, sel.Service.DisplayName())
	if sel.ServiceDetails != nil {
		fmt.Fprintf(out, " (%d min, %.2f)", sel.ServiceDetails.Duration, sel.ServiceDetails.Price)
	}
	fmt.Fprintln(out)

	if st.Message != "" {
		fmt.Fprintf(out, "! %s\n", st.Message)
	}
	if st.DayClosed || len(st.Candidates) == 0 {
		fmt.Fprintln(out, "no slots: the doctor is not available on this date")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS")
	for _, c := range st.Candidates {
		fmt.Fprintf(tw, "%s\t%s\n", c.Time, slotStatus(c))
	}
	tw.Flush()
}

func slotStatus(c domain.CandidateSlot) string {
	switch {
	case c.IsBooked:
		return "booked"
	case c.IsPast:
		return "past"
	case c.IsAvailable:
		return "available"
	default:
		return "unavailable"
	}
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/scheduling-api/internal/app"
	"github.com/jwalitptl/scheduling-api/internal/service/availability"
	"github.com/jwalitptl/scheduling-api/internal/service/event"
)

// slotsCmd prints the generated slots for one doctor and day, bypassing the
// HTTP layer. Useful when checking a rule change against real data.
func slotsCmd() *cobra.Command {
	var (
		doctor        string
		date          string
		excludeBooked bool
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the bookable slots for a doctor on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, err := uuid.Parse(doctor)
			if err != nil {
				return fmt.Errorf("invalid --doctor: %w", err)
			}

			a, err := app.New(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := availability.NewService(a.DB, a.DB.Doctors(), nil, event.NewEventService(), a.Metrics, a.Logger.Zerolog())
			list, err := svc.GenerateSlots(cmd.Context(), doctorID, date, excludeBooked)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "START\tEND\n")
			for _, s := range list.Slots {
				fmt.Fprintf(w, "%s\t%s\n", s.Start, s.End)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&doctor, "doctor", "", "doctor id")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD")
	cmd.Flags().BoolVar(&excludeBooked, "exclude-booked", false, "drop slots held by appointments")
	_ = cmd.MarkFlagRequired("doctor")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

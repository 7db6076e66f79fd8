package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-streak-engine/internal/core/streak"
)

// fileEntry is one check-in. Exactly one of LocalDate and At is expected;
// LocalDate wins when both are set.
type fileEntry struct {
	LocalDate string    `json:"local_date"`
	At        time.Time `json:"at"`
	Count     int       `json:"count"`
}

type clockFlags struct {
	timezone  string
	graceHour int
	now       string
}

func (f *clockFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.timezone, "tz", "UTC", "IANA timezone of the user")
	cmd.Flags().IntVar(&f.graceHour, "grace", streak.DefaultGraceHour, "hour before which instants count for the previous day")
	cmd.Flags().StringVar(&f.now, "now", "", "evaluation instant (RFC3339), defaults to the wall clock")
}

func (f *clockFlags) instant() (time.Time, error) {
	if f.now == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, f.now)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return t, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "streakctl",
		Short:         "Compute habit streaks from JSON entry files",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	root.AddCommand(newComputeCmd(), newAccountCmd(), newPeriodKeyCmd(), newLocalDateCmd())
	return root
}

func newComputeCmd() *cobra.Command {
	var (
		clock   clockFlags
		cadence string
		target  int
	)

	cmd := &cobra.Command{
		Use:   "compute FILE",
		Short: "Current and longest streak of one habit",
		Long:  "Reads a JSON array of entries from FILE, or stdin when FILE is -.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := clock.instant()
			if err != nil {
				return err
			}
			c := streak.Cadence(cadence)
			if !c.Tracked() && c != streak.CadenceCustom {
				return fmt.Errorf("--cadence: unknown cadence %q", cadence)
			}

			entries, err := readEntries(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			p := streak.Params{
				Cadence:   c,
				Timezone:  clock.timezone,
				GraceHour: clock.graceHour,
				Target:    target,
				Now:       now,
			}
			res := streak.Compute(entries, p)

			return writeJSON(cmd.OutOrStdout(), struct {
				streak.Result
				PeriodCount int `json:"period_count"`
			}{res, streak.CurrentPeriodCount(entries, p)})
		},
	}

	clock.register(cmd)
	cmd.Flags().StringVar(&cadence, "cadence", string(streak.CadenceDaily), "daily, weekly or custom")
	cmd.Flags().IntVar(&target, "target", 1, "habit target; zero or less disables the streak")
	return cmd
}

func newAccountCmd() *cobra.Command {
	var clock clockFlags

	cmd := &cobra.Command{
		Use:   "account FILE...",
		Short: "Daily streak across several habits, one file per habit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := clock.instant()
			if err != nil {
				return err
			}

			all := make([][]streak.Entry, 0, len(args))
			for _, path := range args {
				entries, err := readEntries(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}
				all = append(all, entries)
			}

			return writeJSON(cmd.OutOrStdout(), streak.ComputeAccount(all, streak.AccountParams{
				Timezone:  clock.timezone,
				GraceHour: clock.graceHour,
				Now:       now,
			}))
		},
	}

	clock.register(cmd)
	return cmd
}

func newPeriodKeyCmd() *cobra.Command {
	var cadence string

	cmd := &cobra.Command{
		Use:   "period-key DATE",
		Short: "Period key of a YYYY-MM-DD date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := streak.PeriodKey(streak.Cadence(cadence), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}

	cmd.Flags().StringVar(&cadence, "cadence", string(streak.CadenceDaily), "daily or weekly")
	return cmd
}

func newLocalDateCmd() *cobra.Command {
	var clock clockFlags

	cmd := &cobra.Command{
		Use:   "local-date",
		Short: "Local date of --now for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now, err := clock.instant()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), streak.ResolveLocalDate(clock.timezone, clock.graceHour, now))
			return err
		},
	}

	clock.register(cmd)
	return cmd
}

func readEntries(stdin io.Reader, path string) ([]streak.Entry, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var rows []fileEntry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	entries := make([]streak.Entry, 0, len(rows))
	for i, row := range rows {
		switch {
		case row.LocalDate != "":
			if _, err := streak.ParseLocalDate(row.LocalDate); err != nil {
				return nil, fmt.Errorf("%s: entry %d: %w", path, i, err)
			}
			entries = append(entries, streak.LocalDateEntry{Date: row.LocalDate, N: row.Count})
		case !row.At.IsZero():
			entries = append(entries, streak.InstantEntry{At: row.At, N: row.Count})
		default:
			return nil, fmt.Errorf("%s: entry %d: %w", path, i, errNoDate)
		}
	}
	return entries, nil
}

var errNoDate = errors.New("entry needs local_date or at")

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/five82/nimbus/internal/app"
	"github.com/five82/nimbus/internal/dashboard"
	"github.com/five82/nimbus/internal/owm"
	"github.com/five82/nimbus/internal/prefs"
	"github.com/five82/nimbus/internal/weather"
)

// forecastPoints covers the next 24 hours of 3-hourly points.
const forecastPoints = 8

func currentCommand(opts *app.Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "current <city>",
		Short: "Print current conditions and the next 24 hours for one city",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(*opts)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			unit := cfg.Units
			if strings.TrimSpace(opts.Units) != "" {
				if unit, err = weather.ParseUnit(opts.Units); err != nil {
					return fmt.Errorf("--units: %w", err)
				}
			}

			client, err := owm.NewClient(owm.Options{
				APIKey:            cfg.APIKey,
				BaseURL:           cfg.BaseURL,
				Timeout:           cfg.RequestTimeout,
				RequestsPerMinute: cfg.RequestsPerMinute,
			})
			if err != nil {
				return err
			}

			rec, err := client.Fetch(cmd.Context(), weather.ByName(strings.Join(args, " ")), unit)
			if err != nil {
				return err
			}
			if len(rec.Forecast) > forecastPoints {
				rec.Forecast = rec.Forecast[:forecastPoints]
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the record as JSON")
	return cmd
}

func printRecord(w io.Writer, rec weather.Record) {
	v := dashboard.Detail(rec)

	fmt.Fprintf(w, "%s  %s %s\n", v.Title, v.Glyph, v.Description)
	fmt.Fprintf(w, "Temperature %s (feels like %s)\n", v.Temperature, v.FeelsLike)
	fmt.Fprintf(w, "Humidity %s  Pressure %s  Wind %s  Visibility %s\n", v.Humidity, v.Pressure, v.Wind, v.Visibility)

	if len(rec.Forecast) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next 24 h")
	for _, p := range rec.Forecast {
		fmt.Fprintf(w, "  %s  %-6s %5.1f mm  %-12s %s\n",
			p.Time.Format("Mon 15:04"),
			dashboard.FormatTemperature(p.Temperature, rec.Unit),
			p.Precipitation,
			dashboard.FormatSpeed(p.WindSpeed, rec.Unit),
			weather.IconGlyph(p.Icon),
		)
	}
}

func favoritesCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List the persisted favorite city ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(*opts)
			if err != nil {
				return err
			}
			p, err := prefs.Load(cfg.PrefsPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ids := p.FavoriteIDs()
			if len(ids) == 0 {
				fmt.Fprintln(out, "no favorites")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"strconv"

	"github.com/ashureev/soil-advisor/internal/domain"
	"github.com/spf13/cobra"
)

func analyzeCmd(get func() *app) *cobra.Command {
	var (
		reading  domain.SoilReading
		location string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Submit a soil reading for a fertility prediction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.requireLogin(); err != nil {
				return err
			}
			if cmd.Flags().Changed("location") {
				reading.Location = &location
			}
			if err := reading.Validate(); err != nil {
				return err
			}
			pred, err := a.analysis.Analyze(cmd.Context(), reading)
			if err != nil {
				return err
			}
			renderPrediction(cmd.OutOrStdout(), pred)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64VarP(&reading.Nitrogen, "nitrogen", "n", 0, "Nitrogen (0-100)")
	f.Float64VarP(&reading.Phosphorus, "phosphorus", "p", 0, "Phosphorus (0-100)")
	f.Float64VarP(&reading.Potassium, "potassium", "k", 0, "Potassium (0-500)")
	f.Float64Var(&reading.PH, "ph", 0, "pH (0-14)")
	f.Float64Var(&reading.OrganicMatter, "organic-matter", 0, "Organic matter % (0-10)")
	f.Float64Var(&reading.Moisture, "moisture", 0, "Moisture % (0-100)")
	f.Float64Var(&reading.Temperature, "temperature", 0, "Temperature in C (-10-50)")
	f.StringVar(&location, "location", "", "Optional location label")
	for _, name := range []string{"nitrogen", "phosphorus", "potassium", "ph", "organic-matter", "moisture", "temperature"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func historyCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List past analyses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.requireLogin(); err != nil {
				return err
			}
			records, err := a.analysis.History(cmd.Context())
			if err != nil {
				return err
			}
			renderHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func showCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.requireLogin(); err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid analysis id %q", args[0])
			}
			rec, err := a.analysis.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func statsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show summary statistics of past analyses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.requireLogin(); err != nil {
				return err
			}
			stats, err := a.analysis.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			renderStatistics(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

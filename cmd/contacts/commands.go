package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/recruit-dashboard/backend/internal/config"
	"github.com/recruit-dashboard/backend/internal/contacts"
	"github.com/recruit-dashboard/backend/internal/logging"
	"github.com/recruit-dashboard/backend/internal/models"
	"github.com/recruit-dashboard/backend/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDedupeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dedupe <file.csv>",
		Short: "Keep the first row of every phone number and write the result as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(cmd, args[0])
			if err != nil {
				return err
			}

			if output == "-" {
				return ds.deduped.WriteCSV(cmd.OutOrStdout())
			}
			if err := writeFile(output, ds.deduped.WriteCSV); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows kept, written to %s\n",
				ds.deduped.Len(), ds.original.Len(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", contacts.DedupedFileName, `output file, "-" for stdout`)
	return cmd
}

// writeFile writes through a temp file so a failed export never leaves a
// truncated CSV behind.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".contacts-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func newSummaryCmd() *cobra.Command {
	var (
		topN      int
		recruiter string
	)

	cmd := &cobra.Command{
		Use:   "summary <file.csv>",
		Short: "Print contact counts by recruiter and by WhatsApp group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if topN < 1 {
				return fmt.Errorf("--top must be at least 1")
			}
			ds, err := loadDataset(cmd, args[0])
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), ds, topN, recruiter, cmd.Flags().Changed("recruiter"))
		},
	}
	cmd.Flags().IntVar(&topN, "top", 5, "number of recruiters in the top list")
	cmd.Flags().StringVar(&recruiter, "recruiter", "", "also print the rows of this recruiter")
	return cmd
}

func printSummary(out io.Writer, ds *dataset, topN int, recruiter string, filter bool) error {
	summary, err := contacts.Summarize(ds.original, ds.deduped, ds.schema)
	if err != nil {
		return err
	}
	byRecruiter, err := contacts.CountBy(ds.deduped, ds.schema.Recruiter)
	if err != nil {
		return err
	}
	byGroup, err := contacts.CountBy(ds.original, ds.schema.GroupName)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Total Contacts in Original Dataset: %d\n", summary.TotalContacts)
	fmt.Fprintf(out, "Total Unique Contacts after Deduplication: %d\n", summary.UniqueContacts)
	fmt.Fprintf(out, "Total Unique Recruiters: %d\n", summary.UniqueRecruiters)
	if summary.TopGroup != "" {
		fmt.Fprintf(out, "Most Contacts are from the WhatsApp Group: '%s' with %d contacts.\n",
			summary.TopGroup, summary.TopGroupCount)
	}

	printCounts(out, models.RecruiterChartTitle, byRecruiter)
	printCounts(out, models.GroupChartTitle, byGroup)
	printCounts(out, models.TopRecruiterChartTitle(topN), contacts.TopN(byRecruiter, topN))

	if filter {
		rows, err := contacts.FilterBy(ds.original, ds.schema.Recruiter, recruiter)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nData for Recruiter: %s (%d unique contacts)\n", recruiter, byRecruiter.Get(recruiter))
		if err := rows.WriteCSV(out); err != nil {
			return err
		}
	}
	return nil
}

func printCounts(out io.Writer, title string, gc contacts.GroupCount) {
	fmt.Fprintf(out, "\n%s\n", title)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range gc {
		key := e.Key
		if key == "" {
			key = "(blank)"
		}
		fmt.Fprintf(tw, "  %s\t%d\n", key, e.Count)
	}
	tw.Flush()
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if schema, _ := cmd.Flags().GetString("schema"); schema != "" {
				cfg.Dashboard.SchemaFile = schema
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.Advanced.LogLevel,
				Development: cfg.Advanced.DevelopmentLogging,
			})
			if err != nil {
				return err
			}
			defer logger.Sync()

			srv, err := server.New(cfg, logger, Version)
			if err != nil {
				return err
			}
			logger.Info("dashboard ready", zap.String("url", "http://"+cfg.GetServerAddr()))
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "RecruitDashboard.config", "XML config file, created with defaults when missing")
	return cmd
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/bootstrap"
)

const resetPhrase = "RESET"

func NewResetCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored chat turn",
		Long: `Deletes every chat turn from the operator console. Individual delete
failures are reported and do not stop the rest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "reset cancelled")
					return nil
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := bootstrap.New(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Admin.BulkReset(context.Background())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if report.Failed > 0 {
				log.WithField("failed", report.Failed).Warn("some turns could not be deleted")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the typed confirmation")
	return cmd
}

func confirm(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprintf(out, "This deletes every chat turn. Type %s to continue: ", resetPhrase)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.TrimSpace(line) == resetPhrase, nil
}

func printReport(out io.Writer, report *app.ResetReport) {
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(out, "FAILED  %s: %s\n", o.ID, o.Error)
		}
	}
	fmt.Fprintf(out, "deleted %d, failed %d\n", report.Deleted, report.Failed)
}


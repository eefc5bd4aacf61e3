package cmd

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/priyxstudio/examination/config"
	"github.com/priyxstudio/examination/internal/diagnostics"
)

const (
	DefaultLogLines = 200
)

var diagnosticsArgs struct {
	IncludePaths bool
	IncludeLogs  bool
	Yes          bool
	LogLines     int
}

func newDiagnosticsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "diagnostics",
		Short: "Collect and print information about this installation to assist in debugging.",
		PreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			log.SetHandler(cli.Default)
		},
		Run: diagnosticsCmdRun,
	}

	command.Flags().IntVar(&diagnosticsArgs.LogLines, "log-lines", DefaultLogLines, "the number of log lines to include in the report")
	command.Flags().BoolVarP(&diagnosticsArgs.Yes, "yes", "y", false, "skip the questions and include paths and logs")

	return command
}

// diagnosticsCmdRun collects diagnostics about the daemon, its configuration
// and the stored documents. We collect:
// - examination, go and kernel versions
// - relevant parts of daemon configuration
// - document counts per collection
// - logs
func diagnosticsCmdRun(cmd *cobra.Command, _ []string) {
	if diagnosticsArgs.Yes {
		diagnosticsArgs.IncludePaths = true
		diagnosticsArgs.IncludeLogs = true
	} else {
		// To set default to true
		defaultTrueConfirmAccessor := func() huh.Accessor[bool] {
			accessor := huh.EmbeddedAccessor[bool]{}
			accessor.Set(true)
			return &accessor
		}
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Do you want to include file system paths?").
					Description("Paths may reveal user names or the layout of this machine.").
					Value(&diagnosticsArgs.IncludePaths),
				huh.NewConfirm().
					Title("Do you want to include the latest logs?").
					Accessor(defaultTrueConfirmAccessor()).
					Value(&diagnosticsArgs.IncludeLogs),
			),
		)
		if err := form.Run(); err != nil {
			if err == huh.ErrUserAborted {
				return
			}
			panic(err)
		}
	}

	c := config.Get()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// A bolt database is locked while the daemon runs, opening it times out.
	st, err := openStore(c)
	if err != nil {
		fmt.Println("Error opening document store:", err)
		return
	}
	defer st.Close()

	opts := diagnostics.Options{IncludePaths: diagnosticsArgs.IncludePaths}
	if diagnosticsArgs.IncludeLogs {
		opts.LogLines = diagnosticsArgs.LogLines
	}
	report, err := diagnostics.GenerateReport(ctx, c, st, opts)
	if err != nil {
		fmt.Println("Error generating report:", err)
		return
	}

	fmt.Println("\n---------------  generated report  ---------------")
	fmt.Println(report)
	fmt.Print("---------------   end of report    ---------------\n\n")
}

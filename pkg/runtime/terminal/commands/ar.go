package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
	"github.com/rcm-tools/rcm-atlas/pkg/models/store"
	"github.com/rcm-tools/rcm-atlas/pkg/services/aranalysis"
	"github.com/spf13/cobra"
)

const intelligenceModule = "RCM Intelligence"

// NewArCmd groups the Insurance AR Analysis workflow: session creation, the
// guided wizard, status watching and report rendering.
func NewArCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ar",
		Short: "Insurance AR analysis sessions",
	}

	cmd.AddCommand(
		newArCreateCmd(env),
		newArWizardCmd(env),
		newArUploadPmCmd(env),
		newArStartCmd(env),
		newArStatusCmd(env),
		newArWatchCmd(env),
		newArReportCmd(env),
		newArTemplateCmd(env),
		newArConflictsCmd(env),
		newArSessionsCmd(env),
	)
	return cmd
}

func requireIntelligence(cmd *cobra.Command, env *Env) (*Deps, error) {
	deps, err := env.Resolve(cmd)
	if err != nil {
		return nil, err
	}
	if err := requireAuth(cmd, deps); err != nil {
		return nil, err
	}
	err = requirePermission(cmd.Context(), deps, intelligenceModule,
		func(p domain.ModulePermission) bool { return p.CanView })
	if err != nil {
		return nil, err
	}
	return deps, nil
}

func newArCreateCmd(env *Env) *cobra.Command {
	var practiceName, intake string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session by uploading an intake file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}

			created, err := deps.Analysis.CreateSession(cmd.Context(), practiceName, intake)
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Output, "Session: %s\n", created.SessionID)
			printValidation(env, &created.ValidationResult)
			return nil
		},
	}

	cmd.Flags().StringVar(&practiceName, "practice-name", "", "Practice the intake belongs to")
	cmd.Flags().StringVar(&intake, "intake", "", "Intake spreadsheet file")
	_ = cmd.MarkFlagRequired("practice-name")
	_ = cmd.MarkFlagRequired("intake")
	return cmd
}

// newArWizardCmd runs the whole three-step flow in one invocation, with the
// same gates the interactive flow enforces between steps.
func newArWizardCmd(env *Env) *cobra.Command {
	var practiceName, intake string
	var pmReports []string
	var watch bool

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Run intake upload, PM report upload and start in sequence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}

			wizard := aranalysis.NewWizard(deps.Analysis)

			validation, err := wizard.CreateSession(cmd.Context(), practiceName, intake)
			if err != nil {
				return err
			}
			printValidation(env, validation)
			if err := wizard.Next(); err != nil {
				return err
			}
			fmt.Fprintf(env.Output, "Session %s: intake accepted\n", wizard.SessionID())

			if err := wizard.UploadPmReports(cmd.Context(), pmReports...); err != nil {
				return err
			}
			if err := wizard.Next(); err != nil {
				return err
			}
			fmt.Fprintf(env.Output, "Uploaded %d PM report file(s)\n", len(pmReports))

			sessionID, err := wizard.StartAnalysis(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Output, "Analysis started for session %s\n", sessionID)

			if !watch {
				return nil
			}
			return watchSession(cmd.Context(), env, deps, sessionID, practiceName, aranalysis.DefaultWatcherConfig())
		},
	}

	cmd.Flags().StringVar(&practiceName, "practice-name", "", "Practice the intake belongs to")
	cmd.Flags().StringVar(&intake, "intake", "", "Intake spreadsheet file")
	cmd.Flags().StringSliceVar(&pmReports, "pm-report", nil, "PM source report file (repeatable)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch processing after starting")
	_ = cmd.MarkFlagRequired("practice-name")
	_ = cmd.MarkFlagRequired("intake")
	_ = cmd.MarkFlagRequired("pm-report")
	return cmd
}

func newArUploadPmCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "upload-pm <session-id> <file>...",
		Short: "Attach PM source reports to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}
			if err := deps.Analysis.UploadPmReports(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(env.Output, "Uploaded %d file(s)\n", len(args)-1)
			return nil
		},
	}
}

func newArStartCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "start <session-id>",
		Short: "Start the server-side analysis pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}
			if err := deps.Analysis.Start(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(env.Output, "Analysis started for session %s\n", args[0])
			return nil
		},
	}
}

func newArStatusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the current processing status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}
			status, err := deps.Analysis.GetStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStatus(env, status)
			return nil
		},
	}
}

func newArWatchCmd(env *Env) *cobra.Command {
	var practiceName string
	cfg := aranalysis.DefaultWatcherConfig()

	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Poll processing status until the session completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}
			return watchSession(cmd.Context(), env, deps, args[0], practiceName, cfg)
		},
	}

	cmd.Flags().StringVar(&practiceName, "practice-name", "", "Practice name recorded in the watch history")
	cmd.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "Delay between polls")
	cmd.Flags().IntVar(&cfg.ErrorBudget, "error-budget", cfg.ErrorBudget, "Consecutive poll failures tolerated before giving up")
	return cmd
}

// watchSession records the watch locally, streams status events to the
// terminal and caches the report when the session completes.
func watchSession(
	ctx context.Context,
	env *Env,
	deps *Deps,
	sessionID, practiceName string,
	cfg aranalysis.WatcherConfig,
) error {
	history, err := deps.History()
	if err != nil {
		return err
	}
	err = history.RecordWatch(ctx, store.WatchedSession{
		SessionID:    sessionID,
		PracticeName: practiceName,
		FinalStatus:  string(api.StatusProcessing),
	})
	if err != nil {
		return err
	}

	watcher := aranalysis.NewWatcher(deps.Analysis, sessionID, cfg)
	go watcher.Run(ctx)

	conflictHinted := false
	for event := range watcher.Events() {
		line := string(event.Status)
		if event.CurrentStage != "" {
			line += " / " + event.CurrentStage
		}
		if event.Message != "" {
			line += ": " + event.Message
		}
		fmt.Fprintln(env.Output, line)

		if event.Conflict && !conflictHinted {
			conflictHinted = true
			fmt.Fprintf(env.Output,
				"Conflicts need review. Run `rcmctl ar conflicts download %s --out <file>`, fix the rows, then `rcmctl ar conflicts upload %s --file <file>`.\n",
				sessionID, sessionID)
		}
	}
	<-watcher.Done()

	final := watcher.FinalStatus()
	if err := watcher.Err(); err != nil {
		status := string(final)
		if status == "" {
			status = store.WatchAborted
		}
		_ = history.FinishWatch(ctx, sessionID, status, time.Now().UTC())
		return err
	}

	report, err := deps.Analysis.GetReport(ctx, sessionID)
	if err != nil {
		_ = history.FinishWatch(ctx, sessionID, string(final), time.Now().UTC())
		return fmt.Errorf("analysis completed but the report fetch failed: %w", err)
	}
	if payload, err := json.Marshal(report); err == nil {
		_ = history.FinishWithReport(ctx, sessionID, string(final), time.Now().UTC(),
			store.ReportSnapshot{SessionID: sessionID, Payload: payload})
	}
	return env.Reporter.Handle(report)
}

func newArReportCmd(env *Env) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Render the analysis report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}

			if cached {
				history, err := deps.History()
				if err != nil {
					return err
				}
				snap, err := history.GetReport(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("no cached report for session %s: %w", args[0], err)
				}
				var report api.ArAnalysisReport
				if err := json.Unmarshal(snap.Payload, &report); err != nil {
					return fmt.Errorf("decode cached report: %w", err)
				}
				return env.Reporter.Handle(&report)
			}

			report, err := deps.Analysis.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if history, herr := deps.History(); herr == nil {
				if payload, merr := json.Marshal(report); merr == nil {
					_ = history.SaveReport(cmd.Context(), store.ReportSnapshot{SessionID: args[0], Payload: payload})
				}
			}
			return env.Reporter.Handle(report)
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "Render the locally cached report instead of fetching")
	return cmd
}

func newArTemplateCmd(env *Env) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Download the intake template spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}
			return downloadTo(env, out, func(f *os.File) (string, error) {
				return deps.Analysis.DownloadTemplate(cmd.Context(), f)
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Destination file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newArConflictsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Download and resubmit the conflict resolution file",
	}

	var out string
	download := &cobra.Command{
		Use:   "download <session-id>",
		Short: "Download the conflict file for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}
			return downloadTo(env, out, func(f *os.File) (string, error) {
				return deps.Analysis.DownloadConflictFile(cmd.Context(), args[0], f)
			})
		},
	}
	download.Flags().StringVar(&out, "out", "", "Destination file")
	_ = download.MarkFlagRequired("out")

	var file string
	upload := &cobra.Command{
		Use:   "upload <session-id>",
		Short: "Upload the corrected conflict file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := requireIntelligence(cmd, env)
			if err != nil {
				return err
			}
			if err := deps.Analysis.UploadConflictFile(cmd.Context(), args[0], file); err != nil {
				return err
			}
			fmt.Fprintln(env.Output, "Conflict file uploaded. Processing resumes server-side.")
			return nil
		},
	}
	upload.Flags().StringVarP(&file, "file", "f", "", "Corrected conflict file")
	_ = upload.MarkFlagRequired("file")

	cmd.AddCommand(download, upload)
	return cmd
}

func newArSessionsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List locally watched sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := env.Resolve(cmd)
			if err != nil {
				return err
			}
			history, err := deps.History()
			if err != nil {
				return err
			}
			watches, err := history.ListWatches(cmd.Context())
			if err != nil {
				return err
			}
			if len(watches) == 0 {
				fmt.Fprintln(env.Output, "No watched sessions.")
				return nil
			}
			for _, w := range watches {
				finished := "-"
				if w.FinishedAt != nil {
					finished = w.FinishedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(env.Output, "%-38s %-24s %-20s started=%s finished=%s\n",
					w.SessionID, w.PracticeName, w.FinalStatus,
					w.StartedAt.Format(time.RFC3339), finished)
			}
			return nil
		},
	}
}

func downloadTo(env *Env, out string, fetch func(f *os.File) (string, error)) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %q: %w", out, err)
	}
	defer f.Close()

	name, err := fetch(f)
	if err != nil {
		_ = os.Remove(out)
		return err
	}
	if name != "" {
		fmt.Fprintf(env.Output, "Saved %s to %s\n", name, out)
	} else {
		fmt.Fprintf(env.Output, "Saved to %s\n", out)
	}
	return nil
}

func printValidation(env *Env, v *api.ArIntakeValidationResult) {
	if v == nil {
		return
	}
	if v.Success {
		fmt.Fprintf(env.Output, "Validation passed: %d columns, %d rows checked\n",
			v.ColumnValidatedCount, v.RowValidatedCount)
		return
	}
	fmt.Fprintln(env.Output, "Validation failed:")
	for _, ce := range v.ColumnErrors {
		fmt.Fprintf(env.Output, "  column %s: %s\n", ce.ColumnName, ce.Message)
	}
	for _, re := range v.RowErrors {
		fmt.Fprintf(env.Output, "  row %d, column %s: %s (value %q)\n",
			re.RowIndex, re.ColumnName, re.Message, re.InvalidValue)
	}
}

func printStatus(env *Env, status *api.ArAnalysisProcessingStatus) {
	fmt.Fprintf(env.Output, "Status: %s\n", status.SessionStatus)
	if status.CurrentStage != "" {
		fmt.Fprintf(env.Output, "Stage: %s\n", status.CurrentStage)
	}
	if status.Message != "" {
		fmt.Fprintf(env.Output, "Message: %s\n", status.Message)
	}
	for _, step := range status.Steps {
		line := fmt.Sprintf("  [%s] %s", step.Status, step.Name)
		if step.Count != nil {
			line += fmt.Sprintf(" (%d)", *step.Count)
		}
		fmt.Fprintln(env.Output, line)
	}
	if aranalysis.IsConflictStage(status) {
		fmt.Fprintln(env.Output, "Conflicts need review; see `rcmctl ar conflicts`.")
	}
}

// -- cmd/run.go --
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/cadence/api/schemas"
	"github.com/xkilldash9x/cadence/internal/agent"
	"github.com/xkilldash9x/cadence/internal/browser"
	"github.com/xkilldash9x/cadence/internal/config"
	"github.com/xkilldash9x/cadence/internal/observability"
	"github.com/xkilldash9x/cadence/internal/pacing"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [task-file]",
		Short: "Executes a paced browser-automation run from a task plan",
		Long: `Executes a YAML task plan through the paced run controller.

Delays between steps, actions and tasks come from the pacing configuration
(or the STEP_/ACTION_/TASK_ environment variables). Interrupt once to pause,
press Enter to resume, interrupt again to stop.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so CLI flags override the
			// config file and environment with the right precedence.
			bindings := map[string]string{
				"agent.max_steps":          "max-steps",
				"agent.max_failures":       "max-failures",
				"agent.validate_output":    "validate-output",
				"agent.generate_gif":       "gif",
				"agent.gif_path":           "gif-path",
				"agent.save_script_path":   "save-script",
				"agent.save_history_path":  "save-history",
				"pacing.steps_per_minute":  "steps-per-minute",
				"browser.headless":         "headless",
			}
			for key, flag := range bindings {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return err
			}

			taskFile := cfg.Agent.TaskFile
			if len(args) > 0 {
				taskFile = args[0]
			}
			if taskFile == "" {
				return fmt.Errorf("a task file is required (argument or agent.task_file)")
			}

			if config.SkipAPIKeyVerification() {
				logger.Info("LLM API key verification is disabled by environment gate")
			}

			plan, err := browser.LoadPlan(taskFile)
			if err != nil {
				return err
			}
			sensitive := collectSecrets(plan, logger)

			logger.Info("Loaded task plan",
				zap.String("task", plan.Task),
				zap.Int("steps", len(plan.Steps)),
				zap.Int("secrets", len(sensitive)),
			)

			settings := pacing.NewSettings(pacing.FromConfig(cfg.Pacing), logger)
			pacer := pacing.New(settings, cfg.Pacing.StepsPerMinute, logger)

			manager := browser.NewManager(ctx, cfg.Browser, logger)
			defer manager.Close()
			session, err := manager.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("failed to open browser session: %w", err)
			}

			base := browser.NewScriptedAgent(session, plan, sensitive, logger)
			controller := agent.NewController(base, pacer, cfg.Agent, logger,
				agent.WithTask(plan.Task),
				agent.WithSensitiveData(sensitive),
			)
			// Route the collaborator's step batches through the paced
			// dispatcher so delays land between individual actions.
			base.SetActor(controller.MultiAct)

			history, err := controller.Run(ctx)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			logger.Info("Run finished",
				zap.Bool("success", history.IsSuccessful()),
				zap.Int("steps", history.Len()),
				zap.String("final_result", history.FinalResult()),
			)
			return nil
		},
	}

	runCmd.Flags().Int("max-steps", 100, "maximum number of run-loop steps")
	runCmd.Flags().Int("max-failures", 3, "consecutive step failures tolerated before stopping")
	runCmd.Flags().Bool("validate-output", false, "validate the output before accepting completion")
	runCmd.Flags().Bool("gif", false, "render an animated GIF of the run history")
	runCmd.Flags().String("gif-path", "agent_history.gif", "output path for the run GIF")
	runCmd.Flags().String("save-script", "", "export a replay script to this path after the run")
	runCmd.Flags().String("save-history", "", "export the run history as JSON to this path")
	runCmd.Flags().Float64("steps-per-minute", 0, "ceiling on run-loop steps per minute (0 disables)")
	runCmd.Flags().Bool("headless", true, "run the browser headless")

	return runCmd
}

// collectSecrets resolves every secret key referenced by the plan from the
// environment. Missing keys are reported up front instead of mid-run.
func collectSecrets(plan *browser.Plan, logger *zap.Logger) map[string]string {
	secrets := make(map[string]string)
	for _, step := range plan.Steps {
		for _, action := range step.Actions {
			if action.Type != schemas.ActionFill || action.SecretKey == "" {
				continue
			}
			if _, seen := secrets[action.SecretKey]; seen {
				continue
			}
			value, ok := os.LookupEnv(action.SecretKey)
			if !ok {
				logger.Warn("Secret referenced by plan is not set in the environment",
					zap.String("key", action.SecretKey))
				continue
			}
			secrets[action.SecretKey] = value
		}
	}
	return secrets
}

package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CSmithy89/hyyve/internal/agents"
	"github.com/CSmithy89/hyyve/internal/app"
	"github.com/CSmithy89/hyyve/internal/config"
	"github.com/CSmithy89/hyyve/pkg/client/claude"
	"github.com/CSmithy89/hyyve/pkg/logger"
)

type rootFlags struct {
	settingsPath string
	model        string
	agent        string
	system       string
	maxTokens    int
	temperature  float64
	verbose      bool
	noColor      bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "hyyve",
		Short:         "Talk to Claude through the Hyyve agent personas",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.settingsPath, "settings", "", "path to settings file (default: .hyyve/settings.yaml, then ~/.hyyve/settings.yaml)")
	pf.StringVarP(&f.model, "model", "m", "", "model ID (see 'hyyve models')")
	pf.StringVarP(&f.agent, "agent", "a", "", "persona to talk to: bond, wendy, morgan, artie, or auto to route each prompt")
	pf.StringVar(&f.system, "system", "", "system prompt; overrides the persona")
	pf.IntVar(&f.maxTokens, "max-tokens", 0, "maximum output tokens")
	pf.Float64Var(&f.temperature, "temperature", 0, "sampling temperature in [0, 1]; unset uses the provider default")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newAskCmd(f),
		newChatCmd(f),
		newModelsCmd(),
		newConfigCmd(),
	)
	return root
}

func newAskCmd(f *rootFlags) *cobra.Command {
	var stream bool
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a single prompt and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			session, err := f.session(cmd, stream)
			if err != nil {
				return err
			}
			return session.Ask(ctx, strings.Join(args, " "))
		},
	}
	cmd.Flags().BoolVarP(&stream, "stream", "s", false, "print the response as it is generated")
	return cmd
}

func newChatCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := f.session(cmd, true)
			if err != nil {
				return err
			}
			return app.StartInteractiveMode(cmd.Context(), session)
		},
	}
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List supported models and their prices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			app.FormatModels(cmd.OutOrStdout(), claude.Models())
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a settings file with the default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(".hyyve", "settings.yaml")
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.SaveSettings(path, config.GetDefaultSettings()); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

// settings loads the settings file and applies command-line overrides.
func (f *rootFlags) settings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings(f.settingsPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load settings")
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		settings.LLM.Model = f.model
	}
	if flags.Changed("max-tokens") {
		settings.LLM.MaxTokens = f.maxTokens
	}
	if flags.Changed("temperature") {
		settings.LLM.Temperature = claude.Float(f.temperature)
	}
	if flags.Changed("agent") {
		settings.App.Agent = f.agent
	}
	if f.verbose {
		settings.Log.Level = string(logger.LogLevelDebug)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, err
	}

	logger.SetGlobalLogLevel(logger.ParseLevel(settings.Log.Level))
	return settings, nil
}

func (f *rootFlags) session(cmd *cobra.Command, stream bool) (*app.Session, error) {
	settings, err := f.settings(cmd)
	if err != nil {
		return nil, err
	}

	catalog, err := agents.LoadBuiltin()
	if err != nil {
		return nil, err
	}

	opts := append(settings.LLM.ClientOptions(), claude.WithLogger(logger.NewComponentLogger("claude")))
	client, err := claude.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	base := claude.Params{
		Model:       settings.LLM.Model,
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: settings.LLM.Temperature,
	}
	if f.system != "" {
		base.System = claude.String(f.system)
	}
	conv := app.NewConversation(client, base)
	route := f.system == "" && settings.App.Agent == app.AutoAgent
	if f.system == "" {
		agentID := settings.App.Agent
		if route {
			agentID = config.GetDefaultSettings().App.Agent
		}
		persona, err := catalog.Get(agentID)
		if err != nil {
			return nil, err
		}
		conv.SetPersona(persona)
	}

	useColor := !f.noColor && !color.NoColor
	session := app.NewSession(conv, catalog, cmd.OutOrStdout(), stream, useColor)
	if route {
		session.EnableRouting(conv.Persona())
	}
	return session, nil
}

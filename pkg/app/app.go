// Copyright 2025 The Fleetwatch Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package app builds the cobra command shared by fleetwatch binaries: flags
// grouped in named sets, values layered from a config file, a .env file,
// environment variables and the command line.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"

	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

// RunFunc is the entry point of the application once options are loaded.
type RunFunc func() error

// Option customizes an App.
type Option func(*App)

// App is a command line application.
type App struct {
	name             string
	shortDescription string
	description      string
	envPrefix        string
	options          NamedFlagSetOptions
	runFunc          RunFunc
	noConfig         bool
	watchConfig      bool
	args             cobra.PositionalArgs

	v       *viper.Viper
	cfgFile string
	cmd     *cobra.Command
}

// WithOptions sets the option set populated from flags, environment and config file.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the function run after the options are validated.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDescription sets the long description of the command.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithEnvPrefix sets the prefix of environment variables, e.g. FLEETWATCH
// maps FLEETWATCH_HTTP_ADDR to http.addr. It defaults to the upper-cased name.
func WithEnvPrefix(prefix string) Option {
	return func(a *App) { a.envPrefix = prefix }
}

// WithNoConfig removes the --config flag.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// WithWatchConfig logs changes of the config file while running.
// Changes are reported only; options are not reloaded.
func WithWatchConfig() Option {
	return func(a *App) { a.watchConfig = true }
}

// WithValidArgs sets the positional argument validator.
func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *App) { a.args = args }
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// NewApp creates an App named name.
func NewApp(name string, shortDescription string, opts ...Option) *App {
	a := &App{
		name:             name,
		shortDescription: shortDescription,
		envPrefix:        envPrefixFor(name),
		v:                viper.New(),
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:          a.name,
		Short:        a.shortDescription,
		Long:         a.description,
		SilenceUsage: true,
		Args:         a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true
	cmd.Flags().SetNormalizeFunc(cliflag.WordSepNormalizeFunc)

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}

	if !a.noConfig {
		a.addConfigFlag(namedFlagSets.FlagSet("global"))
	}
	globalflag.AddGlobalFlags(namedFlagSets.FlagSet("global"), cmd.Name())

	fs := cmd.Flags()
	for _, f := range namedFlagSets.FlagSets {
		fs.AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if a.options != nil {
		if err := a.loadOptions(cmd); err != nil {
			return err
		}
	}

	if lo, ok := a.options.(LoggerOptions); ok {
		log.Init(lo.LogOptions())
	}
	defer func() { _ = log.Sync() }()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Info(fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn("Failed to set GOMAXPROCS", "error", err)
	}

	log.Info("Starting "+a.name, "workingDir", workingDir())
	if used := a.v.ConfigFileUsed(); used != "" {
		log.Info("Using config file", "file", used)
	}
	log.Debug("Effective configuration\n" + configTable(a.v))

	if a.watchConfig && a.v.ConfigFileUsed() != "" {
		a.watch()
	}

	return a.runFunc()
}

// loadOptions layers config file, environment and flags into the options,
// then completes and validates them.
func (a *App) loadOptions(cmd *cobra.Command) error {
	if err := a.readConfig(); err != nil {
		return err
	}

	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if err := a.v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to decode options: %w", err)
	}

	if err := a.options.Complete(); err != nil {
		return err
	}

	return a.options.Validate()
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return wd
}

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

package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gosuri/uitable"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

const configFlagName = "config"

func (a *App) addConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&a.cfgFile, configFlagName, "c", a.cfgFile,
		fmt.Sprintf("Read configuration from FILE (JSON, TOML, YAML). Falls back to $%s_CONFIG, then %s.yaml in ., $HOME/.%s and /etc/%s.",
			a.envPrefix, a.name, a.name, a.name))
}

// readConfig loads .env into the process environment, sets up environment
// lookups and reads the config file if there is one. A missing default config
// file is not an error; a missing explicit one is.
func (a *App) readConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	a.v.SetEnvPrefix(a.envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.noConfig {
		return nil
	}

	cfgFile := a.cfgFile
	if cfgFile == "" {
		cfgFile = os.Getenv(a.envPrefix + "_CONFIG")
	}

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		return nil
	}

	a.v.SetConfigName(a.name)
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, "."+a.name))
	}
	a.v.AddConfigPath(filepath.Join("/etc", a.name))

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func (a *App) watch() {
	a.v.OnConfigChange(func(e fsnotify.Event) {
		log.Warn("Config file changed; restart to apply", "file", e.Name, "op", e.Op.String())
	})
	a.v.WatchConfig()
}

// configTable renders every known key with secrets masked.
func configTable(v *viper.Viper) string {
	keys := v.AllKeys()
	sort.Strings(keys)

	table := uitable.New()
	table.Separator = " "
	table.MaxColWidth = 80
	table.RightAlign(0)

	for _, k := range keys {
		var value any = v.Get(k)
		if isSecret(k) && fmt.Sprint(value) != "" {
			value = "******"
		}
		table.AddRow(k+":", value)
	}
	return table.String()
}

// isSecret covers credentials and URIs, which may embed them.
func isSecret(key string) bool {
	for _, s := range []string{"password", "secret", "uri"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func envPrefixFor(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

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
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

// NamedFlagSetOptions is implemented by the option set of a command.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section, used for help output.
	Flags() cliflag.NamedFlagSets

	// Complete fills in fields derived from other fields.
	Complete() error

	// Validate checks the options after flags, environment and config file are applied.
	Validate() error
}

// LoggerOptions is implemented by option sets that carry logger configuration.
// The App initializes the global logger from it before running.
type LoggerOptions interface {
	LogOptions() *log.Options
}

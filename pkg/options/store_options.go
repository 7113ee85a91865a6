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

package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

var _ IOptions = (*StoreOptions)(nil)

// StoreOptions selects the persistence backend.
type StoreOptions struct {
	Driver string `json:"driver" mapstructure:"driver"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{Driver: StoreDriverMongo}
}

func (o *StoreOptions) Validate() []error {
	if o == nil {
		return nil
	}

	switch o.Driver {
	case StoreDriverMongo, StoreDriverMemory:
		return nil
	default:
		return []error{fmt.Errorf("store.driver must be %q or %q, got %q", StoreDriverMongo, StoreDriverMemory, o.Driver)}
	}
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := join(prefixes...)
	fs.StringVar(&o.Driver, p+"store.driver", o.Driver, "Persistence backend: 'mongo' or 'memory'.")
}

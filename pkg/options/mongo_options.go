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
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MongoOptions)(nil)

// MongoOptions configures the MongoDB connection backing the registries.
type MongoOptions struct {
	URI      string        `json:"uri" mapstructure:"uri"`
	Database string        `json:"database" mapstructure:"database"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxPoolSize caps the driver's connection pool.
	MaxPoolSize uint64 `json:"max-pool-size" mapstructure:"max-pool-size"`
}

func NewMongoOptions() *MongoOptions {
	return &MongoOptions{
		URI:         "mongodb://localhost:27017",
		Database:    "fleetwatch",
		Timeout:     10 * time.Second,
		MaxPoolSize: 50,
	}
}

func (o *MongoOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if !strings.HasPrefix(o.URI, "mongodb://") && !strings.HasPrefix(o.URI, "mongodb+srv://") {
		errs = append(errs, errors.New("mongo.uri must start with mongodb:// or mongodb+srv://"))
	}
	if o.Database == "" {
		errs = append(errs, errors.New("mongo.database must not be empty"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("mongo.timeout must be positive"))
	}

	return errs
}

func (o *MongoOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := join(prefixes...)
	fs.StringVar(&o.URI, p+"mongo.uri", o.URI, "MongoDB connection string.")
	fs.StringVar(&o.Database, p+"mongo.database", o.Database, "MongoDB database name.")
	fs.DurationVar(&o.Timeout, p+"mongo.timeout", o.Timeout, "Timeout for connecting to and pinging MongoDB.")
	fs.Uint64Var(&o.MaxPoolSize, p+"mongo.max-pool-size", o.MaxPoolSize, "Maximum number of pooled MongoDB connections.")
}

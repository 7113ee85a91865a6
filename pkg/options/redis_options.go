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
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*RedisOptions)(nil)

// RedisOptions configures the optional Redis live-state mirror and alarm channel.
type RedisOptions struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	PoolSize int    `json:"pool-size" mapstructure:"pool-size"`

	// StateTTL is how long a mirrored vehicle state survives without a new reading.
	StateTTL time.Duration `json:"state-ttl" mapstructure:"state-ttl"`
}

func NewRedisOptions() *RedisOptions {
	return &RedisOptions{
		Enabled:  false,
		Addr:     "localhost:6379",
		PoolSize: 20,
		StateTTL: 5 * time.Minute,
	}
}

func (o *RedisOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, err)
	}
	if o.DB < 0 {
		errs = append(errs, errors.New("redis.db must not be negative"))
	}
	if o.StateTTL <= 0 {
		errs = append(errs, errors.New("redis.state-ttl must be positive"))
	}

	return errs
}

func (o *RedisOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"redis.enabled", o.Enabled, "Mirror live vehicle state and alarms into Redis.")
	fs.StringVar(&o.Addr, p+"redis.addr", o.Addr, "Redis server address.")
	fs.StringVar(&o.Password, p+"redis.password", o.Password, "Redis password.")
	fs.IntVar(&o.DB, p+"redis.db", o.DB, "Redis database number.")
	fs.IntVar(&o.PoolSize, p+"redis.pool-size", o.PoolSize, "Redis connection pool size.")
	fs.DurationVar(&o.StateTTL, p+"redis.state-ttl", o.StateTTL, "Expiry of mirrored vehicle state keys.")
}

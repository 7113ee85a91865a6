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

var _ IOptions = (*HttpOptions)(nil)

// HttpOptions contains configuration items related to HTTP server startup.
type HttpOptions struct {
	// Addr is the bind address of the REST and push endpoints.
	Addr string `json:"addr" mapstructure:"addr"`

	// ReadTimeout bounds how long the server waits for a request.
	ReadTimeout time.Duration `json:"read-timeout" mapstructure:"read-timeout"`

	// WriteTimeout bounds how long the server spends writing a response.
	WriteTimeout time.Duration `json:"write-timeout" mapstructure:"write-timeout"`

	// ShutdownTimeout is the grace period given to in-flight requests on exit.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	// AllowedOrigins lists the CORS origins accepted by the API. "*" allows all.
	AllowedOrigins []string `json:"allowed-origins" mapstructure:"allowed-origins"`
}

// NewHttpOptions creates a HttpOptions object with default parameters.
func NewHttpOptions() *HttpOptions {
	return &HttpOptions{
		Addr:            "0.0.0.0:5000",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		AllowedOrigins:  []string{"*"},
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HttpOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if err := ValidateAddress(o.Addr); err != nil {
		errs = append(errs, err)
	}

	if o.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown-timeout must be positive"))
	}

	return errs
}

// AddFlags adds flags related to the HTTP server to the specified FlagSet.
func (o *HttpOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := join(prefixes...)
	fs.StringVar(&o.Addr, p+"http.addr", o.Addr, "Specify the HTTP server bind address and port.")
	fs.DurationVar(&o.ReadTimeout, p+"http.read-timeout", o.ReadTimeout, "Maximum duration for reading an entire request.")
	fs.DurationVar(&o.WriteTimeout, p+"http.write-timeout", o.WriteTimeout, "Maximum duration before timing out writes of a response.")
	fs.DurationVar(&o.ShutdownTimeout, p+"http.shutdown-timeout", o.ShutdownTimeout, "Grace period for in-flight requests on shutdown.")
	fs.StringSliceVar(&o.AllowedOrigins, p+"http.allowed-origins", o.AllowedOrigins, "CORS origins allowed to call the API.")
}

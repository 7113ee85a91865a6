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

var _ IOptions = (*JWTOptions)(nil)

// JWTOptions configures bearer token issuance and verification.
type JWTOptions struct {
	// Secret is the HMAC key used to sign tokens.
	Secret string `json:"secret" mapstructure:"secret"`

	// Issuer is written to and checked against the "iss" claim.
	Issuer string `json:"issuer" mapstructure:"issuer"`

	// Expiry is the lifetime of an issued token.
	Expiry time.Duration `json:"expiry" mapstructure:"expiry"`
}

func NewJWTOptions() *JWTOptions {
	return &JWTOptions{
		Issuer: "fleetwatch",
		Expiry: 12 * time.Hour,
	}
}

func (o *JWTOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if len(o.Secret) < 16 {
		errs = append(errs, errors.New("jwt.secret must be at least 16 characters"))
	}
	if o.Expiry <= 0 {
		errs = append(errs, errors.New("jwt.expiry must be positive"))
	}

	return errs
}

func (o *JWTOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := join(prefixes...)
	fs.StringVar(&o.Secret, p+"jwt.secret", o.Secret, "HMAC secret used to sign bearer tokens.")
	fs.StringVar(&o.Issuer, p+"jwt.issuer", o.Issuer, "Issuer claim of bearer tokens.")
	fs.DurationVar(&o.Expiry, p+"jwt.expiry", o.Expiry, "Lifetime of issued bearer tokens.")
}

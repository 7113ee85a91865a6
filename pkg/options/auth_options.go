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

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

var _ IOptions = (*AuthOptions)(nil)

// AuthOptions configures password hashing and the bootstrap operator account.
type AuthOptions struct {
	// AdminEmail and AdminPassword describe an operator created at startup when absent.
	AdminEmail    string `json:"admin-email" mapstructure:"admin-email"`
	AdminPassword string `json:"admin-password" mapstructure:"admin-password"`
	AdminRole     string `json:"admin-role" mapstructure:"admin-role"`

	// BcryptCost is the work factor for stored password hashes.
	BcryptCost int `json:"bcrypt-cost" mapstructure:"bcrypt-cost"`
}

func NewAuthOptions() *AuthOptions {
	return &AuthOptions{
		AdminRole:  "Admin",
		BcryptCost: bcrypt.DefaultCost,
	}
}

func (o *AuthOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if (o.AdminEmail == "") != (o.AdminPassword == "") {
		errs = append(errs, errors.New("auth.admin-email and auth.admin-password must be set together"))
	}
	if o.BcryptCost < bcrypt.MinCost || o.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, errors.New("auth.bcrypt-cost is out of range"))
	}

	return errs
}

func (o *AuthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := join(prefixes...)
	fs.StringVar(&o.AdminEmail, p+"auth.admin-email", o.AdminEmail, "Email of the bootstrap operator created at startup.")
	fs.StringVar(&o.AdminPassword, p+"auth.admin-password", o.AdminPassword, "Password of the bootstrap operator.")
	fs.StringVar(&o.AdminRole, p+"auth.admin-role", o.AdminRole, "Role of the bootstrap operator.")
	fs.IntVar(&o.BcryptCost, p+"auth.bcrypt-cost", o.BcryptCost, "bcrypt work factor for password hashes.")
}

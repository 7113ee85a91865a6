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
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt"
)

var _ IOptions = (*MqttOptions)(nil)

// MqttOptions contains configuration for the MQTT client and topics.
type MqttOptions struct {
	// Enabled turns on MQTT telemetry ingress and alarm egress.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	Broker   string `json:"broker" mapstructure:"broker"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	ClientID string `json:"client-id" mapstructure:"client-id"`

	// Client behavior
	KeepAlive      time.Duration `json:"keep-alive" mapstructure:"keep-alive"`
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	SessionExpiry  uint32        `json:"session-expiry" mapstructure:"session-expiry"`
	CleanStart     bool          `json:"clean-start" mapstructure:"clean-start"`

	// InsecureSkipVerify controls whether a client verifies the server's certificate chain and host name.
	// This should be used only for testing.
	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`

	// TopicRoot prefixes every topic: {TopicRoot}/telemetry/{plate}, {TopicRoot}/alarm/{plate}.
	TopicRoot string `json:"topic-root" mapstructure:"topic-root"`

	// QoS used for telemetry subscriptions and alarm publications.
	QoS int `json:"qos" mapstructure:"qos"`
}

// NewMqttOptions creates a new MqttOptions with default values.
func NewMqttOptions() *MqttOptions {
	return &MqttOptions{
		Enabled:        false,
		Broker:         "tcp://localhost:1883",
		ClientID:       "fleetwatch",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 5 * time.Second,
		SessionExpiry:  60,
		CleanStart:     true,
		TopicRoot:      "fleetwatch/v1",
		QoS:            1,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MqttOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}

	if o.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	} else if _, err := url.Parse(o.Broker); err != nil {
		errs = append(errs, err)
	}

	if o.TopicRoot == "" {
		errs = append(errs, errors.New("mqtt.topic-root must not be empty"))
	}

	if o.QoS < 0 || o.QoS > 2 {
		errs = append(errs, errors.New("mqtt.qos must be 0, 1 or 2"))
	}

	return errs
}

// AddFlags adds flags for MqttOptions to the specified FlagSet.
func (o *MqttOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"mqtt.enabled", o.Enabled, "Enable MQTT telemetry ingress and alarm publishing.")
	fs.StringVar(&o.Broker, p+"mqtt.broker", o.Broker, "The URL of the MQTT broker.")
	fs.StringVar(&o.Username, p+"mqtt.username", o.Username, "The username for MQTT authentication.")
	fs.StringVar(&o.Password, p+"mqtt.password", o.Password, "The password for MQTT authentication.")
	fs.StringVar(&o.ClientID, p+"mqtt.client-id", o.ClientID, "Client ID prefix; the hostname is appended at startup.")

	fs.DurationVar(&o.KeepAlive, p+"mqtt.keep-alive", o.KeepAlive, "MQTT Keep Alive interval.")
	fs.DurationVar(&o.ConnectTimeout, p+"mqtt.connect-timeout", o.ConnectTimeout, "Timeout for establishing MQTT connection.")
	fs.Uint32Var(&o.SessionExpiry, p+"mqtt.session-expiry", o.SessionExpiry, "MQTT Session Expiry Interval in seconds.")
	fs.BoolVar(&o.CleanStart, p+"mqtt.clean-start", o.CleanStart, "Start with a clean MQTT session.")
	fs.BoolVar(&o.InsecureSkipVerify, p+"mqtt.insecure-skip-verify", o.InsecureSkipVerify, "If true, skips the TLS certificate verification.")

	fs.StringVar(&o.TopicRoot, p+"mqtt.topic-root", o.TopicRoot, "Topic prefix for telemetry and alarm topics.")
	fs.IntVar(&o.QoS, p+"mqtt.qos", o.QoS, "QoS level for subscriptions and publications.")
}

// ToClientConfig builds a client configuration using clientID as the MQTT client id.
func (o *MqttOptions) ToClientConfig(clientID string) *mqtt.ClientConfig {
	return &mqtt.ClientConfig{
		BrokerURL:          o.Broker,
		Username:           o.Username,
		Password:           o.Password,
		ClientID:           clientID,
		KeepAlive:          uint16(o.KeepAlive.Seconds()),
		SessionExpiry:      o.SessionExpiry,
		ConnectTimeout:     o.ConnectTimeout,
		CleanStart:         o.CleanStart,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
}

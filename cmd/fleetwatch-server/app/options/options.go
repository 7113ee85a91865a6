package options

import (
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch"
	"github.com/fleetwatch-io/fleetwatch/pkg/app"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

type ServerOptions struct {
	HttpOptions  *options.HttpOptions  `json:"http" mapstructure:"http"`
	MqttOptions  *options.MqttOptions  `json:"mqtt" mapstructure:"mqtt"`
	MongoOptions *options.MongoOptions `json:"mongo" mapstructure:"mongo"`
	RedisOptions *options.RedisOptions `json:"redis" mapstructure:"redis"`
	JWTOptions   *options.JWTOptions   `json:"jwt" mapstructure:"jwt"`
	StoreOptions *options.StoreOptions `json:"store" mapstructure:"store"`
	AuthOptions  *options.AuthOptions  `json:"auth" mapstructure:"auth"`
	Log          *log.Options          `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*ServerOptions)(nil)
	_ app.LoggerOptions       = (*ServerOptions)(nil)
)

func NewServerOptions() *ServerOptions {
	o := &ServerOptions{
		HttpOptions:  options.NewHttpOptions(),
		MqttOptions:  options.NewMqttOptions(),
		MongoOptions: options.NewMongoOptions(),
		RedisOptions: options.NewRedisOptions(),
		JWTOptions:   options.NewJWTOptions(),
		StoreOptions: options.NewStoreOptions(),
		AuthOptions:  options.NewAuthOptions(),
		Log:          log.NewOptions(),
	}

	return o
}

func (o *ServerOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.MqttOptions.AddFlags(fss.FlagSet("mqtt"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.MongoOptions.AddFlags(fss.FlagSet("mongo"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.JWTOptions.AddFlags(fss.FlagSet("jwt"))
	o.AuthOptions.AddFlags(fss.FlagSet("auth"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *ServerOptions) Complete() error {
	o.AuthOptions.AdminEmail = strings.ToLower(strings.TrimSpace(o.AuthOptions.AdminEmail))
	return nil
}

func (o *ServerOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.MqttOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	if o.StoreOptions.Driver == options.StoreDriverMongo {
		errs = append(errs, o.MongoOptions.Validate()...)
	}
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.JWTOptions.Validate()...)
	errs = append(errs, o.AuthOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *ServerOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *ServerOptions) Config() (*fleetwatch.Config, error) {
	return &fleetwatch.Config{
		HttpOptions:  o.HttpOptions,
		MqttOptions:  o.MqttOptions,
		MongoOptions: o.MongoOptions,
		RedisOptions: o.RedisOptions,
		JWTOptions:   o.JWTOptions,
		StoreOptions: o.StoreOptions,
		AuthOptions:  o.AuthOptions,
	}, nil
}

package fleetwatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

func memoryConfig() *Config {
	cfg := &Config{
		HttpOptions:  options.NewHttpOptions(),
		MqttOptions:  options.NewMqttOptions(),
		MongoOptions: options.NewMongoOptions(),
		RedisOptions: options.NewRedisOptions(),
		JWTOptions:   options.NewJWTOptions(),
		StoreOptions: options.NewStoreOptions(),
		AuthOptions:  options.NewAuthOptions(),
	}
	cfg.HttpOptions.Addr = "127.0.0.1:0"
	cfg.StoreOptions.Driver = options.StoreDriverMemory
	cfg.JWTOptions.Secret = "0123456789abcdef"
	cfg.AuthOptions.AdminEmail = "ops@example.com"
	cfg.AuthOptions.AdminPassword = "secret"
	cfg.AuthOptions.BcryptCost = bcrypt.MinCost
	return cfg
}

func TestInitializeStoreUnknownDriver(t *testing.T) {
	_, err := InitializeStore(context.Background(), &options.StoreOptions{Driver: "etcd"}, options.NewMongoOptions())
	assert.Error(t, err)
}

func TestFleetServerRunsUntilCancelled(t *testing.T) {
	s, err := memoryConfig().NewFleetServer(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, s.closers)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Empty(t, s.closers)
}

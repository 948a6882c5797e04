package config

import "time"

// DataPlaneConfig contains settings for the gRPC evaluation server.
type DataPlaneConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"50051"`

	MaxRecvMsgSize int `envconfig:"MAX_RECV_MSG_SIZE" default:"4194304" validate:"min=1024"`

	KeepaliveTime    time.Duration `envconfig:"KEEPALIVE_TIME" default:"2h"`
	KeepaliveTimeout time.Duration `envconfig:"KEEPALIVE_TIMEOUT" default:"20s"`

	EvaluationTimeout time.Duration `envconfig:"EVALUATION_TIMEOUT" default:"2s"`
}

// Address returns the host:port pair the gRPC server listens on.
func (c *DataPlaneConfig) Address() string {
	return c.Host + ":" + c.Port
}

// Validate checks the data plane configuration.
func (c *DataPlaneConfig) Validate() error {
	if err := validateHost(c.Host, "data plane"); err != nil {
		return err
	}
	return validatePort(c.Port, "data plane")
}

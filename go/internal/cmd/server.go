package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/rapidpoker/go/internal/config"
	"github.com/mcdev12/rapidpoker/go/internal/game"
	"github.com/mcdev12/rapidpoker/go/internal/gateway"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func gatewayConfig(cfg config.Config) gateway.Config {
	connConfig := gateway.DefaultConnectionConfig()
	connConfig.ReadTimeout = cfg.WebSocket.ReadTimeout
	connConfig.WriteTimeout = cfg.WebSocket.WriteTimeout
	connConfig.PingInterval = cfg.WebSocket.PingInterval
	connConfig.MaxMessageSize = cfg.WebSocket.MaxMessageSize
	connConfig.SendBufferSize = cfg.WebSocket.SendBufferSize

	gwConfig := gateway.Config{
		ConnectionConfig: connConfig,
		SweeperConfig: game.SweeperConfig{
			Interval: cfg.SweepInterval,
			IdleTTL:  cfg.SessionIdleTTL,
		},
		AllowedOrigins: cfg.AllowedOrigins,
	}

	if cfg.NATSEnabled() {
		natsConfig := gateway.DefaultNATSPublisherConfig()
		natsConfig.URL = cfg.NATS.URL
		natsConfig.SubjectPrefix = cfg.NATS.SubjectPrefix
		natsConfig.StreamName = cfg.NATS.StreamName
		natsConfig.StreamMaxAge = cfg.NATS.StreamMaxAge
		natsConfig.ReconnectWait = cfg.NATS.ReconnectWait
		gwConfig.PublisherConfig = &natsConfig
	}

	return gwConfig
}

func setupServer(cfg config.Config, service *gateway.Service) *http.Server {
	handler := service.Handler()

	// Websocket connections outlive any write timeout, so only headers are bounded
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Package config содержит логику чтения конфигурации кабинета заказов.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации кабинета заказов.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	OrdersAPIAddress string        `env:"ORDERS_API_ADDRESS"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения; значения из окружения имеют приоритет.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envOrdersAPIAddress := cfg.OrdersAPIAddress
	envRequestTimeout := cfg.RequestTimeout

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.OrdersAPIAddress, "r", "", "orders backend address")
	flag.DurationVar(&cfg.RequestTimeout, "t", 5*time.Second, "backend request timeout")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envOrdersAPIAddress != "" {
		cfg.OrdersAPIAddress = envOrdersAPIAddress
	}
	if envRequestTimeout != 0 {
		cfg.RequestTimeout = envRequestTimeout
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}

	return cfg, nil
}

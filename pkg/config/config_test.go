package config

import (
	"strings"
	"testing"
)

func productionConfig() *Config {
	return &Config{
		Environment:          EnvProduction,
		SessionAuthKey:       strings.Repeat("a", 32),
		SessionEncryptionKey: strings.Repeat("b", 32),
		LogLevel:             "info",
		BrokerDriver:         BrokerKafka,
		KafkaBrokers:         "kafka-1:9092",
	}
}

func TestValidateForProduction_NonProductionNoop(t *testing.T) {
	cfg := &Config{Environment: EnvDevelopment, BrokerDriver: BrokerMemory}
	if err := ValidateForProduction(cfg); err != nil {
		t.Fatalf("expected nil outside production, got %v", err)
	}
}

func TestValidateForProduction_Valid(t *testing.T) {
	if err := ValidateForProduction(productionConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateForProduction_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short auth key", func(c *Config) { c.SessionAuthKey = "short" }, "SESSION_AUTH_KEY"},
		{"short encryption key", func(c *Config) { c.SessionEncryptionKey = "short" }, "SESSION_ENCRYPTION_KEY"},
		{"debug logging", func(c *Config) { c.LogLevel = "debug" }, "LOG_LEVEL"},
		{"memory broker", func(c *Config) { c.BrokerDriver = BrokerMemory }, "BROKER_DRIVER"},
		{"no kafka brokers", func(c *Config) { c.KafkaBrokers = " , " }, "KAFKA_BROKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := productionConfig()
			tt.mutate(cfg)
			err := ValidateForProduction(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestBrokers_SplitsAndTrims(t *testing.T) {
	cfg := &Config{KafkaBrokers: "a:9092, b:9092,,"}
	got := cfg.Brokers()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
}

func TestServiceEnabled(t *testing.T) {
	cfg := &Config{EnabledServices: "auth, order"}
	if !cfg.ServiceEnabled(ServiceAuth) || !cfg.ServiceEnabled(ServiceOrder) {
		t.Error("expected auth and order enabled")
	}
	if cfg.ServiceEnabled(ServiceProduct) {
		t.Error("expected product disabled")
	}
}

package config

import (
	"os"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	Tickets     Tickets
}

// Tickets configures the external ticketing bridge. An empty APIURL leaves
// the bridge disabled.
type Tickets struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("METROLAB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	timeout := 10 * time.Second
	if raw := os.Getenv("TICKET_API_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			timeout = d
		}
	}

	return Server{
		Addr:        addr,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Tickets: Tickets{
			APIURL:  os.Getenv("TICKET_API_URL"),
			APIKey:  os.Getenv("TICKET_API_KEY"),
			Timeout: timeout,
		},
	}
}

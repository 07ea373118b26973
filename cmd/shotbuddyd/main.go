// Command shotbuddyd runs the shotbuddy daemon in the foreground, for
// service managers that supervise the process themselves.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"shotbuddy/internal/config"
	"shotbuddy/internal/daemonrun"
)

const configEnv = "SHOTBUDDY_CONFIG"

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	opts := daemonrun.Options{
		LogLevel:   strings.TrimSpace(os.Getenv("SHOTBUDDY_LOG_LEVEL")),
		SocketPath: strings.TrimSpace(os.Getenv("SHOTBUDDY_SOCKET")),
	}
	if err := daemonrun.Run(context.Background(), cfg, opts); err != nil {
		log.Fatalf("shotbuddyd: %v", err)
	}
}

func loadConfig(getenv func(string) string) (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(getenv(configEnv)))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

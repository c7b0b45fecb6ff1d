package config

import (
	"flag"
	"os"
	"time"

	"github.com/ezcar24/dealersync/internal/flagx"
)

var configFlags = []string{
	"-d", "-database",
	"-r", "-remote",
	"-t", "-timeout",
	"-i", "-interval",
	"-l", "-log-level",
}

// applyFlags overlays command-line flags. Only the flags this package
// owns are parsed; anything else on the command line is left alone.
func (c *Config) applyFlags() error {
	args := flagx.FilterArgs(os.Args[1:], configFlags)

	var timeout, interval time.Duration

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "SQLite database path")
	fs.StringVar(&c.DatabaseDSN, "database", c.DatabaseDSN, "SQLite database path")
	fs.StringVar(&c.RemoteBaseURL, "r", c.RemoteBaseURL, "Remote store base URL")
	fs.StringVar(&c.RemoteBaseURL, "remote", c.RemoteBaseURL, "Remote store base URL")
	fs.DurationVar(&timeout, "t", c.RequestTimeout.Duration, "Remote request timeout")
	fs.DurationVar(&timeout, "timeout", c.RequestTimeout.Duration, "Remote request timeout")
	fs.DurationVar(&interval, "i", c.SyncInterval.Duration, "Background sync interval")
	fs.DurationVar(&interval, "interval", c.SyncInterval.Duration, "Background sync interval")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "Log level")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c.RequestTimeout.Duration = timeout
	c.SyncInterval.Duration = interval
	return nil
}

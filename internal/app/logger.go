package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/dbpanel/pkg/logger"
)

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// ConfigureLogging initialises the global logger from the server section. Level defaults
// to info and format to JSON; unknown formats are rejected.
func ConfigureLogging(server ServerConfig) error {
	level := strings.TrimSpace(server.LogLevel)
	if level == "" {
		level = "info"
	}

	format := strings.ToLower(strings.TrimSpace(server.LogFormat))
	switch format {
	case "":
		format = LogFormatJSON
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("unsupported log format %q", server.LogFormat)
	}
	return logger.Init(level, format)
}

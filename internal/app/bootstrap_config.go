package app

import (
	"github.com/charlesng35/dbpanel/internal/monitoring"
	"github.com/charlesng35/dbpanel/internal/services"
)

// Templates converts the configured test connections into bootstrap templates.
func (c BootstrapConfig) Templates() []services.TestConnection {
	if len(c.TestConnections) == 0 {
		return nil
	}
	templates := make([]services.TestConnection, 0, len(c.TestConnections))
	for _, tc := range c.TestConnections {
		templates = append(templates, services.TestConnection{
			Title:    tc.Title,
			Type:     tc.Type,
			Host:     tc.Host,
			Port:     tc.Port,
			Database: tc.Database,
			Username: tc.Username,
			Password: tc.Password,
			Schema:   tc.Schema,
		})
	}
	return templates
}

// TracingOptions converts the tracing section for monitoring.SetupTracing.
func (c MonitoringConfig) TracingOptions() monitoring.TracingOptions {
	return monitoring.TracingOptions{
		Enabled:     c.Tracing.Enabled,
		Endpoint:    c.Tracing.Endpoint,
		Insecure:    c.Tracing.Insecure,
		ServiceName: c.Tracing.ServiceName,
	}
}

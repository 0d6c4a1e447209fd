package config

import (
	"log/slog"

	"github.com/yourorg/comps-api/acumidata"
	"github.com/yourorg/comps-api/internal/comps"
	"github.com/yourorg/comps-api/internal/logx"
)

func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		AppName:       c.AppName,
		Level:         c.Log.Level,
		JSON:          c.Log.JSON,
		FluentEnabled: c.Fluent.Enabled,
		FluentHost:    c.Fluent.Host,
		FluentPort:    c.Fluent.Port,
	}
}

func (c *Config) ClientConfig(log *slog.Logger) acumidata.Config {
	a := c.Acumidata
	return acumidata.Config{
		Env:      a.Env,
		BaseURL:  a.BaseURL,
		APIKey:   a.APIKey,
		Username: a.Username,
		Password: a.Password,
		Timeout:  a.Timeout,
		RetryMax: a.RetryMax,
		Logger:   log,
	}
}

func (c *Config) Limits() comps.Limits {
	return comps.Limits{Sold: c.Comps.SoldLimit, Pending: c.Comps.PendingLimit, Active: c.Comps.ActiveLimit}
}

package config

type metricsConf struct {
	Enabled bool `yaml:"enabled"`
}

var defaultMetricsConf = metricsConf{
	Enabled: true,
}

package tracing

import "time"

const (
	reconnectionPeriod = 30 * time.Second
	clientTimeout      = 30 * time.Second
	maxQueueSize       = 10000
	batchTimeout       = 5 * time.Second
	maxExportBatchSize = 1024
	shutdownTimeout    = 5 * time.Second
)

// Config configures the OTLP exporter behind the tracing middleware.
type Config struct {
	// Disable switches to a no-op provider; command spans are neither recorded nor exported.
	Disable bool `yaml:"disable" default:"false"`

	// SampleRate is the fraction of root command spans that are sampled, 0 to 1.
	// Child spans follow their parent's decision.
	SampleRate float64 `yaml:"sample_rate" default:"1" validate:"gte=0,lte=1"`

	ExporterHost string `yaml:"exporter_host"`
	ExporterPort int    `yaml:"exporter_port" default:"4317" validate:"gte=0,lte=65535"`

	// Tags are added as resource attributes to every span.
	Tags map[string]string `yaml:"tags"`
}

package alert

import (
	"context"
	"net"
	"time"

	"github.com/code19m/errx"
	sentinelpb "github.com/code19m/sentinel/pb"
	"github.com/spf13/cast"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rise-and-shine/cmdbus/meta"
)

const defaultSendTimeout = 3 * time.Second

// SentinelConfig locates the Sentinel service.
type SentinelConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	SendTimeout time.Duration `yaml:"send_timeout" default:"3s"`
}

// SentinelProvider forwards alerts to Sentinel. The service name and version registered
// with meta.SetServiceInfo identify the sender.
type SentinelProvider struct {
	cfg    SentinelConfig
	client sentinelpb.SentinelServiceClient
	conn   *grpc.ClientConn
}

// NewSentinelProvider prepares a client for the service in cfg. The connection is
// established lazily on the first alert.
func NewSentinelProvider(cfg SentinelConfig) (*SentinelProvider, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errx.New(
			"[alert]: sentinel host and port are required",
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"host": cfg.Host, "port": cfg.Port}),
		)
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	conn, err := grpc.NewClient(
		net.JoinHostPort(cfg.Host, cast.ToString(cfg.Port)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return &SentinelProvider{
		cfg:    cfg,
		client: sentinelpb.NewSentinelServiceClient(conn),
		conn:   conn,
	}, nil
}

func (p *SentinelProvider) SendError(
	ctx context.Context,
	errCode, msg, operation string,
	details map[string]string,
) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.SendTimeout)
	defer cancel()

	info := meta.ServiceInfo()

	payload := make(map[string]string, len(details)+1)
	for k, v := range details {
		payload[k] = v
	}
	if version := info[meta.ServiceVersion]; version != "" {
		payload["service_version"] = version
	}

	_, err := p.client.SendError(ctx, &sentinelpb.ErrorInfo{
		Code:      errCode,
		Message:   msg,
		Service:   info[meta.ServiceName],
		Operation: operation,
		Details:   payload,
	})
	return errx.Wrap(err)
}

// Close releases the gRPC connection.
func (p *SentinelProvider) Close() error {
	return errx.Wrap(p.conn.Close())
}

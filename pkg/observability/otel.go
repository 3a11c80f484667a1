package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Resource attribute keys describing a conduit host.
const (
	AttrHostUI      = attribute.Key("conduit.host.ui")
	AttrSearchPaths = attribute.Key("conduit.plugin.search_paths")
	AttrPluginABI   = attribute.Key("conduit.plugin.abi")
)

const otelDialTimeout = 10 * time.Second

// OTelConfig configures OTLP export of the manager's spans and the plugin
// metrics.
type OTelConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool

	// SampleRatio is the share of root spans kept. Zero or anything from
	// one up keeps them all.
	SampleRatio float64
	// InstanceID names this host process; a random one is used when empty.
	InstanceID string

	HostUI      string
	SearchPaths []string
	// PluginABI is the "major.minor" module ABI the host accepts.
	PluginABI string
}

// OTelProviders holds the installed providers so they can be flushed on
// shutdown.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Resource       *resource.Resource
}

// InitOTel installs OTLP trace and metric providers as the globals. It
// returns nil providers when disabled; the module manager's spans then go to
// the no-op tracer.
func InitOTel(ctx context.Context, cfg OTelConfig, log logrus.FieldLogger) (*OTelProviders, error) {
	if !cfg.Enabled {
		log.Debug("OpenTelemetry is disabled")
		return nil, nil
	}

	res, err := HostResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	dial := dialOptions(cfg)
	tp, err := newTracerProvider(ctx, cfg, res, dial)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer provider: %w", err)
	}
	mp, err := newMeterProvider(ctx, cfg, res, dial)
	if err != nil {
		if serr := tp.Shutdown(ctx); serr != nil {
			log.WithError(serr).Error("Failed to shutdown tracer provider after meter provider error")
		}
		return nil, fmt.Errorf("failed to initialize meter provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	instance, _ := res.Set().Value("service.instance.id")
	log.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"instance": instance.AsString(),
	}).Info("OpenTelemetry initialized")
	return &OTelProviders{TracerProvider: tp, MeterProvider: mp, Resource: res}, nil
}

// HostResource describes the conduit host to the collector: service
// identity plus the UI and plugin search paths modules are checked against.
// Process and host detectors fill in the rest; OTEL_RESOURCE_ATTRIBUTES
// entries are merged last.
func HostResource(ctx context.Context, cfg OTelConfig) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "conduit"
	}
	instance := cfg.InstanceID
	if instance == "" {
		instance = uuid.NewString()
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", name),
		attribute.String("service.instance.id", instance),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	if cfg.HostUI != "" {
		attrs = append(attrs, AttrHostUI.String(cfg.HostUI))
	}
	if len(cfg.SearchPaths) > 0 {
		attrs = append(attrs, AttrSearchPaths.StringSlice(cfg.SearchPaths))
	}
	if cfg.PluginABI != "" {
		attrs = append(attrs, AttrPluginABI.String(cfg.PluginABI))
	}

	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithFromEnv(),
	)
}

// Sampler keeps every span of a sampled parent and SampleRatio of new
// roots.
func (c OTelConfig) Sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

func dialOptions(cfg OTelConfig) []grpc.DialOption {
	if !cfg.Insecure {
		return nil
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}

func newTracerProvider(ctx context.Context, cfg OTelConfig, res *resource.Resource, dial []grpc.DialOption) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, otelDialTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(dial...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(2*time.Second),
			sdktrace.WithMaxExportBatchSize(256),
		),
		sdktrace.WithSampler(cfg.Sampler()),
	), nil
}

func newMeterProvider(ctx context.Context, cfg OTelConfig, res *resource.Resource, dial []grpc.DialOption) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, otelDialTimeout)
	defer cancel()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithDialOption(dial...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter,
			metric.WithInterval(15*time.Second),
		)),
	), nil
}

// Shutdown flushes and stops both providers. A nil receiver is a no-op.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

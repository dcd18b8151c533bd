// Package trace owns the process tracer. Spans are exported as JSON to a
// writer chosen at setup, stderr unless configured otherwise, so they never
// mix with report output on stdout.
package trace

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "openclaw-agent"
	ServiceVersion = "1.0.0"
)

var (
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
	sink           io.Closer
)

type Options struct {
	Enabled bool
	// Output receives exported spans. Nil means stderr.
	Output io.Writer
	// SampleRatio of root spans kept, in (0, 1]. Zero keeps all.
	SampleRatio float64
}

// OptionsFromEnv reads LOG_TRACING_ENABLED, TRACE_OUTPUT (stderr, stdout
// or a file path) and TRACE_SAMPLE_RATIO.
func OptionsFromEnv() (Options, error) {
	o := Options{Enabled: getEnv("LOG_TRACING_ENABLED", "true") == "true"}
	if v := os.Getenv("TRACE_SAMPLE_RATIO"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r < 0 || r > 1 {
			return o, fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0, 1], got %q", v)
		}
		o.SampleRatio = r
	}
	switch out := getEnv("TRACE_OUTPUT", "stderr"); out {
	case "stderr":
		o.Output = os.Stderr
	case "stdout":
		o.Output = os.Stdout
	default:
		if !o.Enabled {
			break
		}
		f, err := os.OpenFile(out, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return o, fmt.Errorf("open trace output: %w", err)
		}
		o.Output = f
	}
	return o, nil
}

// Init sets tracing up from the environment.
func Init() error {
	o, err := OptionsFromEnv()
	if err != nil {
		return err
	}
	return Setup(o)
}

// Setup installs the exporter when o.Enabled. Calling it again shuts the
// previous provider down first.
func Setup(o Options) error {
	_ = Shutdown(context.Background())
	enabled = o.Enabled
	if !enabled {
		return nil
	}

	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		enabled = false
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		enabled = false
		return err
	}

	sampler := sdktrace.AlwaysSample()
	if o.SampleRatio > 0 && o.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.SampleRatio))
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tracerProvider)
	tracer = otel.Tracer(ServiceName)
	if c, ok := out.(io.Closer); ok && out != os.Stderr && out != os.Stdout {
		sink = c
	}
	return nil
}

// Shutdown flushes pending spans and closes a file output.
func Shutdown(ctx context.Context) error {
	var err error
	if tracerProvider != nil {
		err = tracerProvider.Shutdown(ctx)
		tracerProvider = nil
		tracer = nil
	}
	if sink != nil {
		_ = sink.Close()
		sink = nil
	}
	return err
}

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if !enabled || tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName, opts...)
}

func Enabled() bool {
	return enabled
}

// GetTraceFields returns the ids of the span in ctx, if tracing is on and
// the span is recording a valid context.
func GetTraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	if !enabled {
		return "", "", false
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

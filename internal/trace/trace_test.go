package trace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type failingExporter struct{ calls int }

func (f *failingExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error {
	f.calls++
	return errors.New("collector down")
}

func (f *failingExporter) Shutdown(context.Context) error { return nil }

func TestLoggingExporter_PassesThroughError(t *testing.T) {
	inner := &failingExporter{}
	exp := &loggingExporter{inner: inner}

	err := exp.ExportSpans(context.Background(), nil)
	require.EqualError(t, err, "collector down")
	require.Equal(t, 1, inner.calls)
}

func TestLoggingExporter_Export(t *testing.T) {
	mem := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(&loggingExporter{inner: mem}))
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "agent.run")
	span.End()

	spans := mem.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "agent.run", spans[0].Name)
}

func TestHandlerAndClient(t *testing.T) {
	srv := httptest.NewServer(Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	defer srv.Close()

	resp, err := HTTPClient().Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
}

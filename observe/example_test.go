package observe_test

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jonwraymond/tieredcache/observe"
)

func ExampleNewObserver() {
	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "tieredcache",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created")
	// Output:
	// Observer created
}

func ExampleConfig_Validate() {
	cfg := observe.Config{ServiceName: "tieredcache", Logging: observe.LoggingConfig{Enabled: true, Level: "loud"}}
	err := cfg.Validate()
	fmt.Println(errors.Is(err, observe.ErrInvalidLogLevel))
	// Output:
	// true
}

func ExampleMonitored() {
	logger := observe.NewLoggerWithWriter("error", os.Stdout)
	m := observe.NewMonitor(nil, nil, logger)

	build := observe.Monitored(m, observe.Operation{Namespace: "report", Name: "build"},
		func(ctx context.Context) (string, error) {
			return "report ready", nil
		})

	out, err := build(context.Background())
	fmt.Println(out, err)
	// Output:
	// report ready <nil>
}

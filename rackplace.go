package main

import (
	"fmt"
	"os"
	"time"

	"github.com/LeeDigitalWorks/rackplace/cmd"
	"github.com/LeeDigitalWorks/rackplace/pkg/env"

	"github.com/getsentry/sentry-go"
)

func main() {
	// An empty DSN (SENTRY_DSN unset) leaves the client disabled.
	err := sentry.Init(sentry.ClientOptions{
		SampleRate:       0.1,
		EnableTracing:    true,
		TracesSampleRate: 0.1,
		Release:          "rackplace@" + cmd.Version,
		Environment:      env.Current(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentry.Init: %v", err)
	}
	// Flush buffered events before the program terminates.
	defer sentry.Flush(2 * time.Second)

	cmd.Execute()
}

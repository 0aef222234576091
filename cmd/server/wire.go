// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"otp_reader/internal/apiclient"
	"otp_reader/internal/app"
	"otp_reader/internal/config"
	"otp_reader/internal/jobs"
	"otp_reader/internal/otp"
	"otp_reader/internal/platform/logger"
	"otp_reader/internal/reader"
	"otp_reader/internal/relay"
	"otp_reader/internal/session"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,

		// OTP reader
		otp.NewEmailGateFromConfig,
		otp.NewHTTPSource,
		wire.Bind(new(otp.Source), new(*otp.HTTPSource)),

		// Sessions
		session.NewStateFactory,
		session.NewStore,
		wire.Bind(new(jobs.Sweeper), new(*session.Store)),
		jobs.NewSessionSweepJob,

		// Backend helper
		apiclient.NewHeaderProvider,
		apiclient.NewClient,

		// Handlers
		reader.NewHandler,
		relay.NewHandler,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}

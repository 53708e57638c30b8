//go:build wireinject
// +build wireinject

// This file is the Wire injector specification, grounded on the
// teacher's cmd/api/wire.go. It is never compiled into the binary
// (the wireinject build tag excludes it); wire_gen.go is the
// generated output a `wire` run would produce from this file.
package main

import (
	"github.com/google/wire"

	"github.com/xiebiao/saga-coordinator/internal/config"
	"github.com/xiebiao/saga-coordinator/internal/httpapi"
	"github.com/xiebiao/saga-coordinator/internal/httpapi/handler"
	"github.com/xiebiao/saga-coordinator/internal/registry"
)

var providerSet = wire.NewSet(
	config.Load,
	provideLogger,
	provideMetrics,
	provideJournal,
	provideCommunicator,
	provideEngine,
	registry.New,
	provideProber,
	handler.New,
	httpapi.NewRouter,
	wire.Struct(new(App), "*"),
)

// InitializeApp wires every component described above into a ready
// App, the same shape the teacher's InitializeApp/InitializeServer
// wire.Build call produces for the bookstore monolith.
func InitializeApp(configPath string) (*App, error) {
	wire.Build(providerSet)
	return nil, nil
}

package main

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/xiebiao/saga-coordinator/internal/circuitbreaker"
	"github.com/xiebiao/saga-coordinator/internal/communicator"
	"github.com/xiebiao/saga-coordinator/internal/config"
	"github.com/xiebiao/saga-coordinator/internal/healthcache"
	"github.com/xiebiao/saga-coordinator/internal/httpapi/handler"
	"github.com/xiebiao/saga-coordinator/internal/journal"
	"github.com/xiebiao/saga-coordinator/internal/logging"
	"github.com/xiebiao/saga-coordinator/internal/obsmetrics"
	"github.com/xiebiao/saga-coordinator/internal/saga"
)

// App is everything main needs to start serving (spec.md §6): the
// assembled router plus the pieces main must close or poll directly.
type App struct {
	Router      *gin.Engine
	Config      *config.Config
	Log         *slog.Logger
	HealthCache *healthcache.Cache
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return logging.New(cfg.Log.Level)
}

func provideMetrics() *obsmetrics.Metrics {
	return obsmetrics.New(prometheus.DefaultRegisterer)
}

// provideJournal resolves spec.md §9's durability extension point:
// NoOp unless the operator explicitly turned on a MySQL-backed
// journal.
func provideJournal(cfg *config.Config, log *slog.Logger) saga.Journal {
	if !cfg.Journal.Enabled {
		return journal.NoOp{}
	}
	j, err := journal.OpenGORMJournal(cfg.Journal.DSN)
	if err != nil {
		log.Error("journal configured but unreachable, falling back to no-op", "error", err)
		return journal.NoOp{}
	}
	return j
}

func provideCommunicator(cfg *config.Config, log *slog.Logger, metrics *obsmetrics.Metrics) *communicator.Communicator {
	comm := communicator.New(cfg, log)
	comm.OnAttempt(func(participantName string, attempt int, outcome string) {
		metrics.ObserveCommunicatorAttempt(participantName, outcome)
	})
	for _, name := range config.Order {
		if cb := comm.Breaker(name); cb != nil {
			cb.OnStateChange(func(participant string, from, to circuitbreaker.State) {
				metrics.ObserveCircuitBreakerState(participant, int(to))
			})
		}
	}
	return comm
}

func provideEngine(log *slog.Logger, metrics *obsmetrics.Metrics, j saga.Journal) *saga.Engine {
	return saga.NewEngine(log, metrics, j)
}

// provideProber wires in the Redis-backed health cache when
// configured, otherwise the communicator itself answers ProbeAll
// directly (see internal/healthcache for why this is an enrichment,
// not a requirement).
func provideProber(cfg *config.Config, comm *communicator.Communicator) (handler.Prober, *healthcache.Cache) {
	if !cfg.HealthCache.Enabled {
		return comm, nil
	}
	cache := healthcache.New(cfg.HealthCache.Addr, time.Duration(cfg.HealthCache.Ttl)*time.Second, comm)
	return cache, cache
}

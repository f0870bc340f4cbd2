package prober

import (
	"context"
	"sync"
	"time"

	"linkprobe/internal/model"

	"golang.org/x/sync/semaphore"
)

const DefaultConcurrency = 10

// EndpointProber is the single-probe dependency of the orchestrator.
// *Prober implements it.
type EndpointProber interface {
	Probe(ctx context.Context, server string, port int) (bool, float64)
}

// Orchestrator fans probes out over a batch of configs behind a counting
// admission gate. Every submitted config produces exactly one result; the
// call returns only after the whole batch has resolved.
type Orchestrator struct {
	prober      EndpointProber
	concurrency int64
}

func NewOrchestrator(p EndpointProber, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Orchestrator{prober: p, concurrency: int64(concurrency)}
}

// Run probes every config and returns one result per input, each tagged
// with the config id and its display fields. onResult, if non-nil, is
// invoked as each probe finishes and may run concurrently.
func (o *Orchestrator) Run(ctx context.Context, configs []model.Config, onResult func(model.Result)) []model.Result {
	results := make([]model.Result, len(configs))
	sem := semaphore.NewWeighted(o.concurrency)
	var wg sync.WaitGroup

	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg model.Config) {
			defer wg.Done()

			res := model.Result{
				ConfigID:        cfg.ID,
				Protocol:        cfg.Protocol,
				Server:          cfg.Server,
				Port:            cfg.Port,
				Name:            cfg.Name,
				Country:         cfg.Country,
				TelegramChannel: cfg.TelegramChannel,
				IsTelegram:      cfg.IsTelegram,
				Success:         false,
				LatencyMs:       -1,
			}

			// A cancelled context still yields a (failed) result so the
			// batch stays N-in/N-out.
			if err := sem.Acquire(ctx, 1); err == nil {
				res.Success, res.LatencyMs = o.prober.Probe(ctx, cfg.Server, cfg.Port)
				sem.Release(1)
			}
			res.TestedAt = time.Now().UTC()

			results[i] = res
			if onResult != nil {
				onResult(res)
			}
		}(i, cfg)
	}

	wg.Wait()
	return results
}

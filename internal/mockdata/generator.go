// Package mockdata generates synthetic job exports for demos and tests.
package mockdata

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/job-insights/internal/types"
)

// Backend describes a simulated backend's behavior
type Backend struct {
	Name        string
	Type        string
	MeanQueue   time.Duration
	MeanExec    time.Duration
	FailureRate float64
}

// DefaultBackends is the catalogue used when none is supplied
var DefaultBackends = []Backend{
	{Name: "ibm_brisbane", Type: "Eagle r3", MeanQueue: 40 * time.Minute, MeanExec: 12 * time.Second, FailureRate: 0.06},
	{Name: "ibm_kyoto", Type: "Eagle r3", MeanQueue: 25 * time.Minute, MeanExec: 15 * time.Second, FailureRate: 0.10},
	{Name: "ibm_osaka", Type: "Eagle r3", MeanQueue: 90 * time.Minute, MeanExec: 10 * time.Second, FailureRate: 0.04},
	{Name: "ibm_sherbrooke", Type: "Eagle r3", MeanQueue: 15 * time.Minute, MeanExec: 20 * time.Second, FailureRate: 0.15},
	{Name: "ibm_torino", Type: "Heron r1", MeanQueue: 10 * time.Minute, MeanExec: 6 * time.Second, FailureRate: 0.03},
	{Name: "ibm_fez", Type: "Heron r2", MeanQueue: 5 * time.Minute, MeanExec: 5 * time.Second, FailureRate: 0.02},
}

var shotChoices = []int{100, 512, 1000, 1024, 2048, 4000, 4096, 8192}

// Generator produces reproducible job records for a seed
type Generator struct {
	rng           *rand.Rand
	backends      []Backend
	end           time.Time
	span          time.Duration
	malformedRate float64
}

// Option configures a Generator
type Option func(*Generator)

// WithMalformed corrupts roughly rate of the generated rows
func WithMalformed(rate float64) Option {
	return func(g *Generator) {
		g.malformedRate = rate
	}
}

// WithBackends replaces the backend catalogue
func WithBackends(backends []Backend) Option {
	return func(g *Generator) {
		if len(backends) > 0 {
			g.backends = backends
		}
	}
}

// WithWindow spreads creation times over the span ending at end
func WithWindow(end time.Time, span time.Duration) Option {
	return func(g *Generator) {
		g.end = end
		g.span = span
	}
}

// NewGenerator creates a generator. The same seed and options yield the same jobs.
func NewGenerator(seed int64, opts ...Option) *Generator {
	g := &Generator{
		rng:      rand.New(rand.NewSource(seed)),
		backends: DefaultBackends,
		end:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		span:     14 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns n job records
func (g *Generator) Generate(n int) []types.JobRecord {
	jobs := make([]types.JobRecord, 0, n)
	for i := 0; i < n; i++ {
		job := g.job()
		if g.malformedRate > 0 && g.rng.Float64() < g.malformedRate {
			g.corrupt(&job)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func (g *Generator) newID() string {
	// math/rand never fails to read
	id, _ := uuid.NewRandomFromReader(g.rng)
	return id.String()
}

// jitter returns mean scaled by an exponential factor
func (g *Generator) jitter(mean time.Duration) time.Duration {
	return time.Duration(g.rng.ExpFloat64() * float64(mean))
}

func (g *Generator) job() types.JobRecord {
	backend := g.backends[g.rng.Intn(len(g.backends))]
	created := g.end.Add(-time.Duration(g.rng.Int63n(int64(g.span))))

	job := types.JobRecord{
		JobID:        g.newID(),
		Backend:      backend.Name,
		BackendType:  types.StringPtr(backend.Type),
		CreationTime: created.Format(time.RFC3339),
		Shots:        shotChoices[g.rng.Intn(len(shotChoices))],
	}

	queue := g.jitter(backend.MeanQueue)
	exec := g.jitter(backend.MeanExec) + 500*time.Millisecond
	started := created.Add(queue)

	switch roll := g.rng.Float64(); {
	case roll < 0.08:
		job.Status = types.StatusQueued
		return job
	case roll < 0.14:
		job.Status = types.StatusRunning
		return job
	case roll < 0.14+backend.FailureRate:
		job.Status = types.StatusFailed
		// Failed jobs often stop before reporting usage
		if g.rng.Float64() < 0.5 {
			exec = g.jitter(backend.MeanExec / 4)
		} else {
			job.EndTime = types.StringPtr(started.Add(exec).Format(time.RFC3339))
			return job
		}
	default:
		job.Status = types.StatusCompleted
	}

	job.EndTime = types.StringPtr(started.Add(exec).Format(time.RFC3339))
	job.ExecutionTime = types.StringPtr(strconv.FormatInt(exec.Milliseconds(), 10))
	return job
}

// corrupt damages one field the way real exports go wrong
func (g *Generator) corrupt(job *types.JobRecord) {
	switch g.rng.Intn(5) {
	case 0:
		job.CreationTime = "not-a-date"
	case 1:
		job.CreationTime = ""
	case 2:
		job.ExecutionTime = types.StringPtr("n/a ms")
	case 3:
		job.EndTime = types.StringPtr("31/02/2024")
	case 4:
		job.Backend = ""
	}
}

// Source serves generated jobs as a job source
type Source struct {
	N    int
	Seed int64
	Opts []Option
}

// NewSource creates a source that generates n jobs from seed on every load
func NewSource(n int, seed int64, opts ...Option) *Source {
	return &Source{N: n, Seed: seed, Opts: opts}
}

func (s *Source) Name() string { return fmt.Sprintf("mock:%d", s.N) }

func (s *Source) Load(ctx context.Context) ([]types.JobRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewGenerator(s.Seed, s.Opts...).Generate(s.N), nil
}

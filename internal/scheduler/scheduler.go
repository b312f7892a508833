// Package scheduler runs the background job set: a small, fixed roster of
// cron-triggered discovery sweeps that keep the corpus "warm" between
// interactive requests, grounded on the original system's rotating
// topics queue.
package scheduler

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/AiSchool-Admin/quran-miracles/internal/logging"
	"github.com/AiSchool-Admin/quran-miracles/internal/orchestrator"
	"github.com/AiSchool-Admin/quran-miracles/internal/state"
)

// SeedTopic pairs an Arabic query with the discipline it should route to,
// mirroring the original rotation's topic/discipline pairs.
type SeedTopic struct {
	Query      string `yaml:"query"`
	Discipline string `yaml:"discipline"`
}

// defaultSeeds is the built-in rotation used when no seeds file is
// configured. Transliterated from the original scheduler's topics queue.
var defaultSeeds = []SeedTopic{
	{"نسبية الزمن في القرآن", "physics"},
	{"مراحل تكوين الأجنة في القرآن", "biology"},
	{"الذكر وأثره على الصحة النفسية", "psychology"},
	{"مفهوم العدل الاقتصادي في القرآن", "economics"},
	{"الإشارات الكونية في القرآن", "astrophysics"},
	{"مبادئ الطب الوقائي في القرآن", "medicine"},
	{"القيادة والشورى في القرآن", "management"},
	{"الأنظمة الاجتماعية في القرآن", "sociology"},
}

// LoadSeeds reads a YAML seeds file (a top-level list of {query,
// discipline} entries). An empty path or a missing file yields
// defaultSeeds rather than an error, since the seed rotation is not
// load-bearing for correctness.
func LoadSeeds(path string, logger logging.Logger) []SeedTopic {
	if logger == nil {
		logger = logging.NoOp{}
	}
	if path == "" {
		return defaultSeeds
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("scheduler: seeds file unreadable, using default rotation", map[string]interface{}{
			"path": path, "error": err.Error(),
		})
		return defaultSeeds
	}
	var seeds []SeedTopic
	if err := yaml.Unmarshal(data, &seeds); err != nil || len(seeds) == 0 {
		logger.Warn("scheduler: seeds file invalid, using default rotation", map[string]interface{}{"path": path})
		return defaultSeeds
	}
	return seeds
}

// Scheduler owns the cron runner and the round-robin rotation index for
// the every-six-hours job. It never runs two invocations of the same job
// concurrently — each job guards itself with an atomic.Bool.
type Scheduler struct {
	cron         *cron.Cron
	orchestrator *orchestrator.Orchestrator
	logger       logging.Logger
	seeds        []SeedTopic
	rotation     int64 // atomic index into seeds for the six-hourly job

	hourlyRunning    atomic.Bool
	sixHourlyRunning atomic.Bool
	dailyRunning     atomic.Bool
	weeklyRunning    atomic.Bool
}

// New builds a Scheduler with the four fixed jobs registered but not yet
// started. seeds may be nil, in which case defaultSeeds is used.
func New(o *orchestrator.Orchestrator, logger logging.Logger, seeds []SeedTopic) *Scheduler {
	if logger == nil {
		logger = logging.NoOp{}
	}
	if len(seeds) == 0 {
		seeds = defaultSeeds
	}
	s := &Scheduler{
		cron:         cron.New(cron.WithLocation(time.UTC)),
		orchestrator: o,
		logger:       logger,
		seeds:        seeds,
	}
	s.register()
	return s
}

func (s *Scheduler) register() {
	// Hourly: lightweight health-check style discovery on the first seed.
	_, _ = s.cron.AddFunc("0 * * * *", func() {
		s.runGuarded(&s.hourlyRunning, "hourly", func(ctx context.Context) {
			s.runSeed(ctx, "hourly", s.seeds[0])
		})
	})

	// Every six hours: round-robin through the full seed rotation.
	_, _ = s.cron.AddFunc("0 */6 * * *", func() {
		s.runGuarded(&s.sixHourlyRunning, "six_hourly", func(ctx context.Context) {
			idx := int(atomic.AddInt64(&s.rotation, 1)-1) % len(s.seeds)
			s.runSeed(ctx, "six_hourly", s.seeds[idx])
		})
	})

	// Daily at 02:00 UTC: full sweep across every seed topic.
	_, _ = s.cron.AddFunc("0 2 * * *", func() {
		s.runGuarded(&s.dailyRunning, "daily", func(ctx context.Context) {
			for _, seed := range s.seeds {
				s.runSeed(ctx, "daily", seed)
			}
		})
	})

	// Weekly: a recap pass over every seed, then one log line with the seed count.
	_, _ = s.cron.AddFunc("0 3 * * 0", func() {
		s.runGuarded(&s.weeklyRunning, "weekly", func(ctx context.Context) {
			for _, seed := range s.seeds {
				s.runSeed(ctx, "weekly", seed)
			}
			s.logger.Info("scheduler: weekly sweep complete", map[string]interface{}{"seeds": len(s.seeds)})
		})
	})
}

func (s *Scheduler) runGuarded(running *atomic.Bool, jobName string, fn func(ctx context.Context)) {
	if !running.CompareAndSwap(false, true) {
		s.logger.Warn("scheduler: skipping overlapping run", map[string]interface{}{"job": jobName})
		return
	}
	defer running.Store(false)

	ctx := context.Background()
	fn(ctx)
}

func (s *Scheduler) runSeed(ctx context.Context, jobName string, seed SeedTopic) {
	initial := state.State{
		Query:       seed.Query,
		Disciplines: []string{seed.Discipline},
		Mode:        state.ModeAutonomous,
	}
	sessionID := "scheduler-" + jobName + "-" + seed.Discipline
	if _, err := s.orchestrator.Invoke(ctx, initial, sessionID); err != nil {
		s.logger.WarnWithContext(ctx, "scheduler: seed run failed", map[string]interface{}{
			"job": jobName, "query": seed.Query, "error": err.Error(),
		})
	}
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the cron loop, then blocks until any running job finishes.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }

package scheduler

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fishbro/strategy-report/internal/modules/report"
)

// PreprocessJob reruns the normalization pipeline on schedule so the stored
// snapshot tracks freshly dropped backtest exports.
type PreprocessJob struct {
	log     zerolog.Logger
	report  *report.Service
	running atomic.Bool
}

// NewPreprocessJob creates a preprocess job.
func NewPreprocessJob(svc *report.Service, log zerolog.Logger) *PreprocessJob {
	return &PreprocessJob{
		log:    log.With().Str("job", "preprocess").Logger(),
		report: svc,
	}
}

// Name returns the job name
func (j *PreprocessJob) Name() string {
	return "preprocess"
}

// Run executes one pipeline refresh. Overlapping runs are skipped rather
// than queued; the next scheduled tick picks up the same data anyway.
func (j *PreprocessJob) Run() error {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Preprocess already running, skipping")
		return nil
	}
	defer j.running.Store(false)

	start := time.Now()
	result, err := j.report.Refresh(start)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("strategies", result.Summary.Loaded).
		Int("dates", result.Summary.TotalDates).
		Dur("duration", time.Since(start)).
		Msg("Scheduled preprocess completed")
	return nil
}

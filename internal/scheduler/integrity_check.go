package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fishbro/strategy-report/internal/database"
)

// IntegrityCheckJob verifies report database health.
// Runs periodically so corruption is noticed before the dashboard serves
// stale or broken data.
type IntegrityCheckJob struct {
	log zerolog.Logger
	db  *database.DB
}

// NewIntegrityCheckJob creates a new integrity check job
func NewIntegrityCheckJob(db *database.DB, log zerolog.Logger) *IntegrityCheckJob {
	return &IntegrityCheckJob{
		log: log.With().Str("job", "integrity_check").Logger(),
		db:  db,
	}
}

// Name returns the job name
func (j *IntegrityCheckJob) Name() string {
	return "integrity_check"
}

// Run executes the integrity check
func (j *IntegrityCheckJob) Run() error {
	start := time.Now()

	var result string
	if err := j.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}

	// Passive checkpoint keeps the WAL from growing unbounded between
	// preprocess runs.
	var mode, busy, walFrames, checkpointed int
	err := j.db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&mode, &busy, &walFrames, &checkpointed)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to check WAL checkpoint")
	} else if walFrames > 1000 {
		j.log.Warn().
			Int("wal_frames", walFrames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, checkpoint may be needed")
	}

	j.log.Debug().
		Dur("duration", time.Since(start)).
		Msg("Integrity check completed")
	return nil
}

// File: internal/jobs/session_sweep.go
package jobs

import (
	"fmt"
	"time"

	"otp_reader/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper removes expired sessions and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// SessionSweepJob periodically drops idle browser sessions.
type SessionSweepJob struct {
	store         Sweeper
	logger        *zap.Logger
	schedule      string
	cronScheduler *cron.Cron
}

// NewSessionSweepJob creates a new SessionSweepJob.
func NewSessionSweepJob(store Sweeper, cfg *config.Config, logger *zap.Logger) *SessionSweepJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)

	return &SessionSweepJob{
		store:         store,
		logger:        logger.Named("SessionSweepJob"),
		schedule:      cfg.SessionSweepSchedule,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *SessionSweepJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Warn("Session sweep schedule not defined (SESSION_SWEEP_SCHEDULE). Expired sessions stay in memory until restart.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule session sweep job", zap.String("spec", j.schedule), zap.Error(err))
		return fmt.Errorf("scheduling session sweep %q: %w", j.schedule, err)
	}

	j.logger.Info("Session sweep job scheduled", zap.String("spec", j.schedule), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *SessionSweepJob) runJob() {
	removed := j.store.Sweep()
	if removed > 0 {
		j.logger.Info("Expired sessions removed", zap.Int("sessions_removed", removed))
	} else {
		j.logger.Debug("Session sweep found nothing to remove")
	}
}

// Stop gracefully stops the cron scheduler.
func (j *SessionSweepJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping session sweep scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Session sweep scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Session sweep scheduler stop timed out.")
	}
}

// --- Cron Logger Adapter ---

// cronLogger adapts zap.Logger to cron.Logger interface.
type cronLogger struct {
	zl *zap.Logger
}

// NewCronLogger creates a new cronLogger.
func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info logs routine messages from cron at debug level; cron is chatty.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, cl.parseKeysAndValues(keysAndValues...)...)
}

// Error logs error messages from cron.
func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := cl.parseKeysAndValues(keysAndValues...)
	fields = append(fields, zap.Error(err))
	cl.zl.Error(msg, fields...)
}

func (cl *cronLogger) parseKeysAndValues(keysAndValues ...interface{}) []zap.Field {
	var fields []zap.Field
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		} else {
			fields = append(fields, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return fields
}

package jobs

import (
	"context"
	"time"
)

const (
	JobBackup             = "database_backup"
	JobStaleConsultations = "stale_consultations"
)

var (
	backupRetry   = RetryPolicy{MaxRetries: 3, InitialDelay: 30 * time.Second, MaxDelay: 5 * time.Minute}
	reminderRetry = RetryPolicy{}
)

type Backuper interface {
	Enabled() bool
	Run(ctx context.Context) error
}

type StaleReminder interface {
	RemindStale(ctx context.Context) (int, error)
}

// Register schedules the storefront maintenance jobs.
func Register(s *Scheduler, backup Backuper, backupSpec string, reminder StaleReminder, reminderSpec string) error {
	if backup != nil && backup.Enabled() {
		if err := s.Add(JobBackup, backupSpec, backup.Run, backupRetry); err != nil {
			return err
		}
	}

	if reminder != nil {
		remind := func(ctx context.Context) error {
			_, err := reminder.RemindStale(ctx)
			return err
		}
		if err := s.Add(JobStaleConsultations, reminderSpec, remind, reminderRetry); err != nil {
			return err
		}
	}
	return nil
}

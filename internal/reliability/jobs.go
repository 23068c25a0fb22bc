package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/aetherquant/internal/database"
)

// BackupJob runs the nightly backup and rotation. Implements scheduler.Job.
type BackupJob struct {
	service       *BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates a scheduled backup job.
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       15 * time.Minute,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *BackupJob) Name() string { return "backup" }

// Run implements scheduler.Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// minFreeDiskBytes halts maintenance when free space drops below this.
const minFreeDiskBytes = 500 * 1024 * 1024

// MaintenanceJob performs daily database maintenance: integrity check,
// WAL checkpoint, and a disk space check. Implements scheduler.Job.
type MaintenanceJob struct {
	db      *database.DB
	dataDir string
	log     zerolog.Logger
}

// NewMaintenanceJob creates a maintenance job for the given database.
func NewMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:      db,
		dataDir: dataDir,
		log:     log.With().Str("job", "maintenance").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Run implements scheduler.Job.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")

	var result string
	if err := j.db.Conn().QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed to run: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("CRITICAL: database %s failed integrity check: %s", j.db.Name(), result)
	}

	if _, err := j.db.Conn().Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		// Not critical, the next checkpoint will catch up
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}
	if usage.Free < minFreeDiskBytes {
		return fmt.Errorf("CRITICAL: only %d MB free on data volume", usage.Free/1024/1024)
	}

	j.log.Info().
		Uint64("disk_free_mb", usage.Free/1024/1024).
		Msg("Daily maintenance completed")
	return nil
}

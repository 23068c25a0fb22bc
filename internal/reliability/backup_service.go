package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/aristath/aetherquant/internal/database"
)

// ObjectStore is the object storage surface the backup service needs.
// Satisfied by *S3Client.
type ObjectStore interface {
	Upload(ctx context.Context, name string, body io.Reader) error
	List(ctx context.Context, namePrefix string) ([]s3types.Object, error)
	Delete(ctx context.Context, name string) error
}

const archivePrefix = "aetherquant-backup-"
const archiveTimeLayout = "2006-01-02-150405"

// BackupService creates consistent snapshots of the run-history database and
// ships them to object storage as tar.gz archives.
type BackupService struct {
	db      *database.DB
	client  ObjectStore
	dataDir string
	log     zerolog.Logger
}

// BackupMetadata describes the contents of one archive.
type BackupMetadata struct {
	Timestamp time.Time        `json:"timestamp"`
	Database  DatabaseMetadata `json:"database"`
}

// DatabaseMetadata describes the database snapshot inside an archive.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo describes a backup stored in the bucket.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// NewBackupService creates a backup service.
func NewBackupService(db *database.DB, client ObjectStore, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:      db,
		client:  client,
		dataDir: dataDir,
		log:     log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUploadBackup snapshots the database, archives it with metadata,
// and uploads the archive.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	// VACUUM INTO writes a consistent single-file snapshot even with WAL
	// readers active.
	snapshotPath := filepath.Join(stagingDir, s.db.Name()+".db")
	vacuumStmt := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(snapshotPath, "'", "''"))
	if _, err := s.db.Conn().ExecContext(ctx, vacuumStmt); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := calculateChecksum(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to calculate snapshot checksum: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Database: DatabaseMetadata{
			Name:      s.db.Name(),
			Filename:  filepath.Base(snapshotPath),
			SizeBytes: info.Size(),
			Checksum:  checksum,
		},
	}
	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := archivePrefix + time.Now().Format(archiveTimeLayout) + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)
	if err := createArchive(archivePath, []string{snapshotPath, metadataPath}); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.client.Upload(ctx, archiveName, archiveFile); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	archiveInfo, _ := os.Stat(archivePath)
	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Backup completed")

	return nil
}

// ListBackups lists the archives stored in the bucket, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.client.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := time.Now()

	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		filename := filepath.Base(*obj.Key)
		if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
			continue
		}

		timestampStr := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
		timestamp, err := time.Parse(archiveTimeLayout, timestampStr)
		if err != nil {
			s.log.Warn().Str("filename", filename).Msg("Failed to parse timestamp from filename")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		backups = append(backups, BackupInfo{
			Filename:  filename,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes archives older than the retention period.
// The newest three archives are always kept; retentionDays 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}

	const minBackupsToKeep = 3
	if len(backups) <= minBackupsToKeep || retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i, backup := range backups {
		if i < minBackupsToKeep || !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.client.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", backup.Filename).Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return nil
}

// calculateChecksum calculates the SHA256 checksum of a file.
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive writes a tar.gz archive holding the given files at their
// basenames.
func createArchive(archivePath string, files []string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, filePath := range files {
		if err := addFileToArchive(tarWriter, filePath, filepath.Base(filePath)); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filePath, err)
		}
	}
	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	if _, err := io.Copy(tarWriter, file); err != nil {
		return err
	}
	return nil
}

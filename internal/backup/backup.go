package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Config holds backup manager configuration. Backups are disabled unless
// S3 credentials and a passphrase are both present.
type Config struct {
	S3         S3Config
	DBPath     string
	Passphrase string
	Interval   time.Duration
}

// Manager periodically snapshots the database, encrypts the snapshot and
// uploads it to S3-compatible storage.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	db     *sql.DB
	client s3Client
	logger *slog.Logger

	lastBackup time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It is inert when not configured.
func NewManager(cfg Config, db *sql.DB, logger *slog.Logger) *Manager {
	m := &Manager{cfg: cfg, db: db, logger: logger}

	if cfg.Interval <= 0 {
		m.cfg.Interval = 24 * time.Hour
	}
	if m.Enabled() {
		m.client = newS3Client(cfg.S3)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether backups are fully configured.
func (m *Manager) Enabled() bool {
	return m.cfg.S3.Bucket != "" && m.cfg.S3.AccessKey != "" &&
		m.cfg.S3.SecretKey != "" && m.cfg.Passphrase != ""
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Info("backups disabled: S3 credentials or passphrase missing")
		return
	}

	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunBackup(ctx); err != nil {
					m.logger.Error("scheduled backup", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// LastBackup returns the time of the last successful backup, zero if none.
func (m *Manager) LastBackup() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBackup
}

// RunBackup snapshots, encrypts and uploads the database once.
func (m *Manager) RunBackup(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("backup not configured")
	}

	timestamp := time.Now().UTC().Format("2006-01-02T150405Z")
	s3Key := fmt.Sprintf("backups/listkeep-%s.db.enc", timestamp)

	tmpDir := os.TempDir()
	dbCopy := filepath.Join(tmpDir, fmt.Sprintf("listkeep-snapshot-%s.db", timestamp))
	encFile := dbCopy + ".enc"
	defer os.Remove(dbCopy)
	defer os.Remove(encFile)

	// Checkpoint WAL and copy the database file.
	if _, err := m.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if err := copyFile(m.cfg.DBPath, dbCopy); err != nil {
		return fmt.Errorf("copy database: %w", err)
	}

	// Fresh salt per backup; the encrypted file embeds it.
	salt, err := GenerateSalt()
	if err != nil {
		return err
	}
	if err := EncryptFile(dbCopy, encFile, m.cfg.Passphrase, salt); err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	encData, err := os.Open(encFile)
	if err != nil {
		return fmt.Errorf("open encrypted file: %w", err)
	}
	defer encData.Close()

	stat, err := encData.Stat()
	if err != nil {
		return fmt.Errorf("stat encrypted file: %w", err)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(s3Key),
		Body:          encData,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}

	m.mu.Lock()
	m.lastBackup = time.Now().UTC()
	m.mu.Unlock()

	m.logger.Info("backup uploaded", "key", s3Key, "bytes", stat.Size())
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

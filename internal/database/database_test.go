package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mantonx/streamin/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestOpen_SQLiteCreatesDirectoryWithoutSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "streamin.db")

	db, err := Open(config.DatabaseConfig{Type: "sqlite", Path: path}, false)
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.False(t, db.Migrator().HasTable(&ConversionJob{}))
	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable(&ConversionJob{}))

	job := &ConversionJob{ID: "a", MediaPath: "/in/a.mkv", Status: JobStatusRunning, StartTime: time.Now()}
	require.NoError(t, job.SetPlan([]string{"ffmpeg -i a.mkv", "mp4dash a-f.mp4"}))
	require.NoError(t, db.Create(job).Error)

	var loaded ConversionJob
	require.NoError(t, db.First(&loaded, "id = ?", "a").Error)
	plan, err := loaded.GetPlan()
	require.NoError(t, err)
	assert.Equal(t, []string{"ffmpeg -i a.mkv", "mp4dash a-f.mp4"}, plan)
}

func TestOpen_UnsupportedType(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Type: "mysql"}, false)
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5433, Username: "u", Password: "p", Database: "jobs"}
	assert.Equal(t, "host=db user=u password=p dbname=jobs port=5433 sslmode=disable TimeZone=UTC", PostgresDSN(cfg))

	cfg.URL = "postgres://u:p@db/jobs"
	assert.Equal(t, "postgres://u:p@db/jobs", PostgresDSN(cfg))
}

func TestMigrate_PropagatesDriverError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, PreferSimpleProtocol: true}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(".*").WillReturnError(errors.New("connection reset"))

	assert.Error(t, Migrate(db))
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusInterrupted.IsTerminal())
}

func TestConversionJob_EmptyPlan(t *testing.T) {
	plan, err := (&ConversionJob{}).GetPlan()
	assert.NoError(t, err)
	assert.Nil(t, plan)
}

// Package database owns the gorm connections behind the Postgres and SQLite
// voyage recorders. Postgres is the primary store; when it is unreachable the
// recorder degrades to an in-memory SQLite DB that is periodically vacuumed
// to disk, so a voyage is never lost to a dead database.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/meridianops/voyagesim/internal/model"
)

// recorderPragmas tune SQLite for the recorder's write-heavy workload. The
// journal lives in memory and syncing is off: the periodic disk dump is the
// durability mechanism, not the journal.
var recorderPragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA journal_mode = MEMORY;",
	"PRAGMA synchronous = OFF;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA page_size = 32768;",
	"PRAGMA mmap_size = 30000000000;",
}

// Manager resolves and holds the recorder's database connection.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewManager creates an unconnected manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect establishes the recorder's connection: Postgres from the viper
// config first, the local SQLite fallback if Postgres cannot be reached or
// does not answer a ping.
func (m *Manager) Connect() error {
	var err error

	m.DB, err = m.GetPostgresDB()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Postgres unreachable, falling back to local SQLite")
		return m.fallBackToSqlite()
	}

	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %s", err)
	}
	if err := m.SqlDB.Ping(); err != nil {
		m.Logger.Error().Err(err).Msg("Postgres did not answer ping, falling back to local SQLite")
		return m.fallBackToSqlite()
	}

	m.Logger.Info().Msg("Connected to voyage database")
	m.IsValid = true
	m.SqlDB.SetMaxOpenConns(10)
	return nil
}

func (m *Manager) fallBackToSqlite() error {
	db, err := m.GetSqliteDB("")
	if err != nil || db == nil {
		m.IsValid = false
		return fmt.Errorf("failed to get local SQLite DB: %s", err)
	}
	m.DB = db
	m.ShouldSaveLocal = true
	m.IsValid = true
	return nil
}

// GetPostgresDB opens the Postgres connection described by the db.* config
// keys.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)

	m.Logger.Debug().Msgf("Connecting to Postgres DB at '%s'", dsn)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB opens the SQLite fallback. An empty path means the shared
// in-memory DB with periodic disk dumps.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	db, err := openSqlite(path)
	if err != nil {
		m.IsValid = false
		return nil, err
	}
	if path != "" {
		m.Logger.Info().Str("path", path).Msg("Recording voyages to local SQLite DB")
	} else {
		m.Logger.Info().Msg("Recording voyages to in-memory SQLite DB with periodic disk dump")
	}
	return db, nil
}

// openSqlite opens a tuned SQLite connection. The shared cache matters for
// the in-memory DB: every connection in the process must see the same
// tables, or the dump would vacuum an empty schema.
func openSqlite(path string) (*gorm.DB, error) {
	dsn := "file::memory:?cache=shared"
	if path != "" {
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	for _, pragma := range recorderPragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}
	return db, nil
}

// Setup migrates the voyage schema and seeds the operator row on first run.
func (m *Manager) Setup() error {
	if !m.DB.Migrator().HasTable(&model.OperatorInfo{}) {
		if err := m.DB.AutoMigrate(&model.OperatorInfo{}); err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to create operator_infos table: %s", err)
		}
		err := m.DB.Create(&model.OperatorInfo{
			OperatorName:        "VoyageSim",
			OperatorDescription: "Maritime voyage simulation",
		}).Error
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to create operator_infos entry: %s", err)
		}
	}

	// Track geometry columns need PostGIS on the Postgres side.
	if m.DB.Dialector.Name() == "postgres" {
		if err := m.DB.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to create PostGIS Extension: %s", err)
		}
		m.Logger.Info().Msg("PostGIS Extension created")
	}

	m.Logger.Info().Msg("Migrating voyage schema")
	models := model.DatabaseModels
	if m.ShouldSaveLocal {
		models = model.DatabaseModelsSQLite
	}
	if err := m.DB.AutoMigrate(models...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %s", err)
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// DumpMemoryToDisk vacuums the in-memory database to the configured file.
func (m *Manager) DumpMemoryToDisk() error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, m.SqliteFilePath); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Msg("Dumped memory DB to disk")
	return nil
}

// GetSqliteDBStandalone opens a SQLite connection without a Manager. The
// sqlite storage backend uses this directly; an empty path means the shared
// in-memory DB.
func GetSqliteDBStandalone(path string) (*gorm.DB, error) {
	return openSqlite(path)
}

// DumpMemoryDBToDisk vacuums the in-memory database into a fresh disk file.
// VACUUM INTO refuses to overwrite, so any previous dump is removed first.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if exists, err := os.Stat(sqliteFilePath); err == nil && exists != nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %s", err)
		}
	}

	if err := db.Exec("VACUUM INTO 'file:" + sqliteFilePath + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %s", err)
	}
	return nil
}

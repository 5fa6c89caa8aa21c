package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"blockpad/internal/config"
	"blockpad/internal/domain"
)

// Store is a document store that owns a connection.
type Store interface {
	domain.DocumentStore
	io.Closer
}

type sqlStore struct {
	*DocumentStore
	db *DB
}

func (s sqlStore) Close() error { return s.db.Close() }

// OpenStore opens the store selected by cfg. sqlitePath is used for the
// default driver; password is passed separately so it never lives in the
// config file.
func OpenStore(ctx context.Context, cfg config.StorageConfig, sqlitePath, password string) (Store, error) {
	switch driver := cfg.GetDriver(); driver {
	case "sqlite":
		db, err := New(sqlitePath)
		if err != nil {
			return nil, err
		}
		return sqlStore{NewDocumentStore(db), db}, nil
	case "postgres", "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			if driver == "postgres" {
				dsn = BuildPostgresDSN(cfg, password)
			} else {
				dsn = BuildMySQLDSN(cfg, password)
			}
		}
		db, err := Open(driver, dsn)
		if err != nil {
			return nil, err
		}
		return sqlStore{NewDocumentStore(db), db}, nil
	case "mongo":
		uri := cfg.DSN
		if uri == "" {
			uri = BuildMongoURI(cfg, password)
		}
		database := cfg.Database
		if database == "" {
			database = "blockpad"
		}
		return NewMongoStore(ctx, uri, database)
	default:
		return nil, fmt.Errorf("open store: unsupported driver %q", driver)
	}
}

func BuildPostgresDSN(cfg config.StorageConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.Username, password, cfg.Database, sslMode,
	)
}

func BuildMySQLDSN(cfg config.StorageConfig, password string) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&clientFoundRows=true",
		cfg.Username, password, cfg.Host, port, cfg.Database,
	)
	if cfg.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// BuildMongoURI accepts a full mongodb:// or mongodb+srv:// host, replacing
// a <password> placeholder, or builds one from host and port.
func BuildMongoURI(cfg config.StorageConfig, password string) string {
	if strings.HasPrefix(cfg.Host, "mongodb+srv://") || strings.HasPrefix(cfg.Host, "mongodb://") {
		uri := cfg.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
		return uri
	}
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	if cfg.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, password, cfg.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
}

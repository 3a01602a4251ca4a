// Package sqlstorage 把文章写入 MySQL 的 news 表
package sqlstorage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"news-crawler/collect"
	"news-crawler/storage"
)

const createTableSQL = "CREATE TABLE IF NOT EXISTS %s (" +
	"id BIGINT NOT NULL AUTO_INCREMENT," +
	"title VARCHAR(512) NOT NULL," +
	"content MEDIUMTEXT NOT NULL," +
	"author VARCHAR(255) NULL," +
	"post_date VARCHAR(64) NULL," +
	"category VARCHAR(32) NOT NULL," +
	"source VARCHAR(16) NOT NULL," +
	"source_url VARCHAR(1024) NOT NULL," +
	"created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP," +
	"PRIMARY KEY (id)" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

type SQLStorage struct {
	db     *sql.DB
	table  string
	logger *zap.Logger
}

type Option func(s *SQLStorage)

func WithTable(table string) Option {
	return func(s *SQLStorage) {
		s.table = table
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *SQLStorage) {
		s.logger = logger
	}
}

// New 根据 DSN 建立连接池，DSN 格式同 go-sql-driver/mysql
func New(dsn string, opts ...Option) (*SQLStorage, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	// post_date 原样保存为字符串，这里只影响 created_at
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("new connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewWithDB(db, opts...), nil
}

// NewWithDB 使用已有连接池
func NewWithDB(db *sql.DB, opts ...Option) *SQLStorage {
	s := &SQLStorage{
		db:     db,
		table:  storage.DefaultTable,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLStorage) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(createTableSQL, s.table)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *SQLStorage) Save(ctx context.Context, a *collect.Article) (int64, error) {
	if !a.Valid() {
		return 0, fmt.Errorf("%w: article without title or body", storage.ErrPersist)
	}
	cell := storage.NewArticleCell(a)
	cell.Table = s.table

	res, err := s.db.ExecContext(ctx, insertSQL(cell.GetTableName()), cell.Values()...)
	if err != nil {
		return 0, fmt.Errorf("%w: insert %s: %v", storage.ErrPersist, a.SourceURL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %v", storage.ErrPersist, err)
	}
	s.logger.Debug("article saved", zap.Int64("id", id), zap.String("url", a.SourceURL))
	return id, nil
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func insertSQL(table string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(storage.ArticleColumns)), ",")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(storage.ArticleColumns, ","), placeholders)
}

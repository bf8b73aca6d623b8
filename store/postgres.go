package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ Store = (*Postgres)(nil)

// Document is one row of the shared documents table. Every collection lives
// in this table, told apart by Collection.
type Document struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Collection string         `gorm:"column:collection;not null;index"`
	Body       datatypes.JSON `gorm:"column:body;type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;default:now()"`
}

func (Document) TableName() string { return "documents" }

// Postgres serves reads through gorm and bulk writes through pgx COPY, both on
// one connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	db    *gorm.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: pool init: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("%w: gorm open: %v", ErrUnavailable, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Document{}); err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("migrate documents: %w", err)
	}

	return &Postgres{pool: pool, sqlDB: sqlDB, db: db}, nil
}

func (p *Postgres) InsertOne(ctx context.Context, collection string, doc any) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	row := Document{Collection: collection, Body: datatypes.JSON(raw)}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: insert into %s: %v", ErrUnavailable, collection, err)
	}
	return nil
}

func (p *Postgres) InsertMany(ctx context.Context, collection string, docs []any) error {
	rows, err := copyRows(collection, docs)
	if err != nil {
		return err
	}
	if _, err := p.pool.CopyFrom(ctx, pgx.Identifier{"documents"}, []string{"collection", "body"}, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("%w: copy into %s: %v", ErrUnavailable, collection, err)
	}
	return nil
}

// ReplaceAll deletes and reloads the collection in one transaction, so readers
// see either the previous content or the new one.
func (p *Postgres) ReplaceAll(ctx context.Context, collection string, docs []any) error {
	rows, err := copyRows(collection, docs)
	if err != nil {
		return err
	}

	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"documents"}, []string{"collection", "body"}, pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrUnavailable, collection, err)
	}
	return nil
}

func (p *Postgres) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	var doc Document
	err := p.scope(ctx, collection, filter).Order("id").Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: find in %s: %v", ErrUnavailable, collection, err)
	}
	if err := json.Unmarshal(doc.Body, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) (Cursor, error) {
	q := p.scope(ctx, collection, filter).Select("body")
	if opts.SortBy != "" {
		q = q.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "body -> ? ASC, id ASC",
			Vars:               []interface{}{opts.SortBy},
			WithoutParentheses: true,
		}})
	} else {
		q = q.Order("id")
	}

	rows, err := q.Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: find in %s: %v", ErrUnavailable, collection, err)
	}
	return &sqlCursor{rows: rows}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) Close() error {
	err := p.sqlDB.Close()
	p.pool.Close()
	return err
}

func (p *Postgres) scope(ctx context.Context, collection string, filter Filter) *gorm.DB {
	q := p.db.WithContext(ctx).Model(&Document{}).Where("collection = ?", collection)
	for _, field := range filterKeys(filter) {
		q = q.Where(datatypes.JSONQuery("body").Equals(filter[field], field))
	}
	return q
}

func copyRows(collection string, docs []any) ([][]any, error) {
	encoded, err := encodeAll(docs)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(encoded))
	for i, raw := range encoded {
		rows[i] = []any{collection, raw}
	}
	return rows, nil
}

type sqlCursor struct {
	rows *sql.Rows
	body []byte
	err  error
}

func (c *sqlCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return false
	}
	c.body = c.body[:0]
	if err := c.rows.Scan(&c.body); err != nil {
		c.err = fmt.Errorf("scan document: %w", err)
		return false
	}
	return true
}

func (c *sqlCursor) Decode(out any) error {
	if err := json.Unmarshal(c.body, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func (c *sqlCursor) Err() error { return c.err }

func (c *sqlCursor) Close() error { return c.rows.Close() }

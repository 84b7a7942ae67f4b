package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store implementation, backed by a pgxpool
// connection pool and squirrel-built SQL, following the same
// repository package shape.
type Postgres struct {
	pool *pgxpool.Pool
	sb   squirrel.StatementBuilderType
}

// NewPostgres applies pending migrations, opens a connection pool against
// dsn, and pings it before returning.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctxConnect, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctxConnect, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctxConnect); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{
		pool: pool,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) FindURLByHash(ctx context.Context, hash [32]byte) (*URLRecord, error) {
	query, args, err := p.sb.
		Select("id", "code", "url").
		From("urls").
		Where(squirrel.Eq{"url_hash": hash[:]}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec URLRecord
	err = p.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.Code, &rec.URL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &Error{Kind: KindTransient, Err: fmt.Errorf("find url by hash: %w", err)}
	}
	return &rec, nil
}

func (p *Postgres) InsertURL(ctx context.Context, code, url string, hash [32]byte) (int64, error) {
	query, args, err := p.sb.
		Insert("urls").
		Columns("code", "url", "url_hash").
		Values(code, url, hash[:]).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var id int64
	err = p.pool.QueryRow(ctx, query, args...).Scan(&id)
	if err != nil {
		return 0, translateInsertURLErr(err)
	}
	return id, nil
}

func (p *Postgres) InsertURLWithAlias(ctx context.Context, code, url string, hash [32]byte, alias string) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, &Error{Kind: KindTransient, Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertURLQuery, urlArgs, err := p.sb.
		Insert("urls").
		Columns("code", "url", "url_hash").
		Values(code, url, hash[:]).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build url insert query: %w", err)
	}

	var id int64
	if err := tx.QueryRow(ctx, insertURLQuery, urlArgs...).Scan(&id); err != nil {
		return 0, translateInsertURLErr(err)
	}

	insertAliasQuery, aliasArgs, err := p.sb.
		Insert("aliases").
		Columns("alias", "target_id").
		Values(alias, id).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build alias insert query: %w", err)
	}

	if _, err := tx.Exec(ctx, insertAliasQuery, aliasArgs...); err != nil {
		return 0, translateInsertAliasErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &Error{Kind: KindTransient, Err: fmt.Errorf("commit transaction: %w", err)}
	}

	return id, nil
}

func (p *Postgres) InsertAlias(ctx context.Context, alias string, targetID int64) error {
	query, args, err := p.sb.
		Insert("aliases").
		Columns("alias", "target_id").
		Values(alias, targetID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return translateInsertAliasErr(err)
	}
	return nil
}

func (p *Postgres) Resolve(ctx context.Context, code string) (string, int, error) {
	query, args, err := p.sb.
		Select("url").
		From("all_short_codes").
		Where(squirrel.Eq{"code": code}).
		ToSql()
	if err != nil {
		return "", 0, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return "", 0, &Error{Kind: KindTransient, Err: fmt.Errorf("resolve query: %w", err)}
	}
	defer rows.Close()

	var url string
	count := 0
	for rows.Next() {
		if err := rows.Scan(&url); err != nil {
			return "", 0, &Error{Kind: KindTransient, Err: fmt.Errorf("scan resolve row: %w", err)}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return "", 0, &Error{Kind: KindTransient, Err: fmt.Errorf("resolve rows: %w", err)}
	}

	return url, count, nil
}

func (p *Postgres) ScanCodes(ctx context.Context, fn func(code string) error) error {
	query, args, err := p.sb.
		Select("code").
		From("all_short_codes").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return &Error{Kind: KindTransient, Err: fmt.Errorf("scan codes query: %w", err)}
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return fmt.Errorf("scan code row: %w", err)
		}
		if err := fn(code); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (p *Postgres) MaxPrimaryCode(ctx context.Context) (string, bool, error) {
	query, args, err := p.sb.
		Select("code").
		From("urls").
		OrderBy("id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	var code string
	err = p.pool.QueryRow(ctx, query, args...).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, &Error{Kind: KindTransient, Err: fmt.Errorf("max primary code: %w", err)}
	}
	return code, true, nil
}

func (p *Postgres) SaveSnapshot(ctx context.Context, name string, data []byte) error {
	query, args, err := p.sb.
		Insert("bloom_snapshots").
		Columns("name", "data", "updated_at").
		Values(name, data, squirrel.Expr("now()")).
		Suffix("ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return &Error{Kind: KindTransient, Err: fmt.Errorf("save snapshot: %w", err)}
	}
	return nil
}

func (p *Postgres) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	query, args, err := p.sb.
		Select("data").
		From("bloom_snapshots").
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var data []byte
	err = p.pool.QueryRow(ctx, query, args...).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, &Error{Kind: KindTransient, Err: fmt.Errorf("load snapshot: %w", err)}
	}
	return data, nil
}

// Sum256 computes the SHA-256 content hash used as the deduplication key
// (§3's url_hash column).
func Sum256(url string) [32]byte {
	return sha256.Sum256([]byte(url))
}

func translateInsertURLErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch {
		case strings.Contains(pgErr.Message, "namespace_conflict"):
			return &Error{Kind: KindNamespaceConflict, Err: err}
		case strings.Contains(pgErr.ConstraintName, "url_hash"):
			return &Error{Kind: KindUrlHashExists, Err: err}
		case strings.Contains(pgErr.ConstraintName, "code"):
			return &Error{Kind: KindCodeExists, Err: err}
		default:
			return &Error{Kind: KindCodeExists, Err: err}
		}
	}
	return &Error{Kind: KindTransient, Err: fmt.Errorf("insert url: %w", err)}
}

func translateInsertAliasErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			if strings.Contains(pgErr.Message, "namespace_conflict") {
				return &Error{Kind: KindNamespaceConflict, Err: err}
			}
			return &Error{Kind: KindAliasExists, Err: err}
		case pgerrcode.ForeignKeyViolation:
			return &Error{Kind: KindNotFoundTarget, Err: err}
		}
	}
	return &Error{Kind: KindTransient, Err: fmt.Errorf("insert alias: %w", err)}
}

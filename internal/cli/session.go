package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/chq/internal/builder"
	"github.com/roach88/chq/internal/config"
	"github.com/roach88/chq/internal/querysql"
	"github.com/roach88/chq/internal/softdelete"
	"github.com/roach88/chq/internal/store"
)

// session binds a command to its configuration and, when connected, to an
// open store.
type session struct {
	cfg  *config.Config
	db   *store.DB
	conn builder.Connection
}

// newSession loads the configuration. With connect it also opens the store.
func newSession(ctx context.Context, opts *RootOptions, connect bool) (*session, error) {
	cfg, err := opts.config()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg}
	if !connect {
		return s, nil
	}

	storeOpts, err := cfg.Connection.StoreOptions()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, cfg.Connection.Driver, cfg.Connection.DSN, storeOpts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening store", err)
	}
	slog.Debug("store opened", "driver", db.Driver(), "dialect", db.Dialect())

	s.db = db
	s.conn = db
	return s, nil
}

func (s *session) Close() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

// builderOptions renders literals in the configured dialect when no store
// is open to do it.
func (s *session) builderOptions() []builder.Option {
	if s.conn != nil {
		return nil
	}
	dialect := store.DefaultDialect(s.cfg.Connection.Driver)
	if s.cfg.Connection.Dialect != "" {
		if d, err := store.ParseDialect(s.cfg.Connection.Dialect); err == nil {
			dialect = d
		}
	}
	return []builder.Option{builder.WithGrammar(querysql.NewGrammar(dialect.Escaper()))}
}

// softTable returns the soft-delete table named by q.
func (s *session) softTable(q *QueryFile) (*softdelete.Table, error) {
	cfg := s.cfg.SoftDelete.Table(s.cfg.Connection.TableName(q.Table))
	if q.Final {
		cfg.Final = true
	}
	return softdelete.New(s.conn, cfg, softdelete.WithBuilderOptions(s.builderOptions()...))
}

// query builds q. Soft-delete files start from the table's scoped builder.
func (s *session) query(q *QueryFile) (*builder.Builder, error) {
	var b *builder.Builder
	if q.SoftDelete {
		t, err := s.softTable(q)
		if err != nil {
			return nil, err
		}
		switch q.Trashed {
		case TrashedWith:
			b = t.WithTrashed()
		case TrashedOnly:
			b = t.OnlyTrashed()
		default:
			b = t.Query()
		}
	} else {
		b = builder.Table(s.conn, s.cfg.Connection.TableName(q.Table), s.builderOptions()...)
	}

	if s.cfg.Connection.Cluster != "" {
		b.OnCluster(s.cfg.Connection.Cluster)
	}
	q.Apply(b)
	if err := b.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

// loadQuery reads the query file at path and builds it.
func (s *session) loadQuery(path string) (*QueryFile, *builder.Builder, error) {
	q, err := LoadQueryFile(path)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.query(q)
	if err != nil {
		return nil, nil, err
	}
	return q, b, nil
}

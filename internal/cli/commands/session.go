package commands

import (
	"context"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/cli/config"
	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	"github.com/conduit-lang/graphmap/internal/orm/store/memstore"
	"github.com/conduit-lang/graphmap/internal/orm/store/redisstore"
	"github.com/conduit-lang/graphmap/internal/orm/store/sparqlstore"
	"github.com/conduit-lang/graphmap/internal/orm/store/sqlstore"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalOptions holds the persistent flags of the root command
type globalOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

// session is the state shared by commands that need the schema
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *schema.Registry
	scopes   *query.ScopeRegistry
	noColor  bool
}

// unknownTypeError is returned when --type names no registered type
type unknownTypeError struct {
	name  string
	known []string
}

func (e *unknownTypeError) Error() string {
	return "unknown entity type: " + e.name
}

func openSession(opts *globalOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Logging()
	if opts.logLevel != "" {
		logCfg.Level = opts.logLevel
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	if !cfg.HasSchema() {
		return nil, ormerrors.Configurationf("schema file %s not found", cfg.SchemaPath())
	}
	registry := schema.NewRegistry()
	if err := registry.LoadFile(cfg.SchemaPath()); err != nil {
		return nil, errors.Wrap(err, "failed to load schema")
	}

	scopes := query.NewScopeRegistry()
	for _, sc := range cfg.Scopes {
		scopes.Register(&query.Scope{Name: sc.Name, Type: sc.Type, Template: sc.Template, Limit: sc.Limit})
	}

	logger.Debug("session opened",
		zap.String(logging.FieldStore, cfg.Store.Kind),
		zap.Int(logging.FieldCount, registry.Count()))

	return &session{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		scopes:   scopes,
		noColor:  opts.noColor,
	}, nil
}

func (s *session) lookup(name string) (*schema.EntityType, error) {
	if name == "" {
		return nil, errors.New("--type is required")
	}
	et, ok := s.registry.Lookup(name)
	if !ok {
		return nil, &unknownTypeError{name: name, known: s.registry.List()}
	}
	return et, nil
}

// openStore builds the adapter selected by store.kind. The returned closer
// releases its connection.
func (s *session) openStore(ctx context.Context) (store.Adapter, io.Closer, error) {
	cfg := s.cfg.Store
	logger := s.logger.With(zap.String(logging.FieldStore, cfg.Kind))

	switch cfg.Kind {
	case config.StoreSQL:
		st, err := sqlstore.Open(ctx, cfg.SQL.Driver, cfg.SQL.DSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.StoreSPARQL:
		opts := []sparqlstore.Option{sparqlstore.WithLogger(logger), sparqlstore.WithTimeout(cfg.SPARQL.Timeout)}
		if cfg.SPARQL.UpdateEndpoint != "" {
			opts = append(opts, sparqlstore.WithUpdateEndpoint(cfg.SPARQL.UpdateEndpoint))
		}
		return sparqlstore.New(cfg.SPARQL.Endpoint, opts...), io.NopCloser(nil), nil
	case config.StoreRedis:
		st, err := redisstore.NewWithConfig(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, redisstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return memstore.New(memstore.WithLogger(logger)), io.NopCloser(nil), nil
	}
}

// queryFlags are the query-building flags shared by explain and query
type queryFlags struct {
	typeName string
	where    []string
	args     []string
	scope    string
	include  []string
	limit    int
	offset   int
}

func (f *queryFlags) register(cmd *cobra.Command, global *globalOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&f.typeName, "type", "t", "", "entity type to query")
	flags.StringArrayVarP(&f.where, "where", "w", nil, "structured condition key=value, repeatable")
	flags.StringArrayVarP(&f.args, "arg", "a", nil, "value bound to the next IN (?) placeholder, comma separated")
	flags.StringVar(&f.scope, "scope", "", "named scope from the config file")
	flags.StringSliceVar(&f.include, "include", nil, "belongs_to associations to eager-load")
	flags.IntVar(&f.limit, "limit", 0, "maximum number of results")
	flags.IntVar(&f.offset, "offset", 0, "number of results to skip")
	_ = cmd.RegisterFlagCompletionFunc("type", completeTypes(global))
}

// options translates the flags and an optional template into query options
func (f *queryFlags) options(s *session, et *schema.EntityType, template string) ([]query.Option, error) {
	sources := 0
	for _, set := range []bool{len(f.where) > 0, template != "", f.scope != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, errors.New("use only one of --where, a template or --scope")
	}

	args := make([]any, len(f.args))
	for i, raw := range f.args {
		args[i] = parseArg(raw)
	}

	var opts []query.Option
	switch {
	case len(f.where) > 0:
		conditions, err := parseConditions(f.where)
		if err != nil {
			return nil, err
		}
		opts = append(opts, query.WithConditions(conditions))
	case template != "":
		opts = append(opts, query.WithTemplate(template, args...))
	case f.scope != "":
		scope, err := s.scopes.Get(f.scope)
		if err != nil {
			return nil, err
		}
		scoped, err := scope.Options(et, args)
		if err != nil {
			return nil, err
		}
		opts = append(opts, scoped...)
	}

	if len(f.include) > 0 {
		opts = append(opts, query.WithInclude(f.include...))
	}
	if f.limit > 0 {
		opts = append(opts, query.WithLimit(f.limit))
	}
	if f.offset > 0 {
		opts = append(opts, query.WithOffset(f.offset))
	}
	return opts, nil
}

func parseConditions(pairs []string) (map[string]any, error) {
	conditions := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, errors.Newf("invalid condition %q, expected key=value", pair)
		}
		if prev, dup := conditions[key]; dup {
			// repeated keys must all hold
			items, isSeq := prev.([]any)
			if !isSeq {
				items = []any{prev}
			}
			conditions[key] = append(items, parseValue(raw))
			continue
		}
		conditions[key] = parseValue(raw)
	}
	return conditions, nil
}

// parseArg binds a comma separated value as a list, for IN (?)
func parseArg(raw string) any {
	if !strings.Contains(raw, ",") {
		return parseValue(raw)
	}
	parts := strings.Split(raw, ",")
	values := make([]any, len(parts))
	for i, part := range parts {
		values[i] = parseValue(strings.TrimSpace(part))
	}
	return values
}

// parseValue reads integers and floats as numbers, anything else as text
func parseValue(raw string) any {
	if raw == "" {
		return raw
	}
	// cast truncates "2.5" to 2
	if !strings.ContainsAny(raw, ".eE") {
		if n, err := cast.ToInt64E(raw); err == nil {
			return n
		}
	}
	if f, err := cast.ToFloat64E(raw); err == nil {
		return f
	}
	return raw
}

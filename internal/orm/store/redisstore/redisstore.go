// Package redisstore implements the adapter contract on Redis. Each record
// is a hash at <prefix>entity:<Type>:<id>; a sorted set per type keeps ids
// in creation order. Queries are evaluated client-side over the hashes.
package redisstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Config holds Redis connection settings
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix namespaces every key
	Prefix string
}

// DefaultConfig returns a default Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "graphmap:",
	}
}

// Option configures a Store
type Option func(*Store)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDFunc sets the generator for ids of created records
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// Store implements store.Adapter on Redis hashes
type Store struct {
	client *redis.Client
	prefix string
	newID  func() string
	logger *zap.Logger
}

// New creates a store on an existing client
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultConfig().Prefix,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithConfig connects to Redis and verifies the connection
func NewWithConfig(ctx context.Context, config Config, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", config.Addr)
	}

	return New(client, append([]Option{WithPrefix(config.Prefix)}, opts...)...), nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) recordKey(et *schema.EntityType, id string) string {
	return s.prefix + "entity:" + et.Name + ":" + id
}

func (s *Store) indexKey(et *schema.EntityType) string {
	return s.prefix + "index:" + et.Name
}

func (s *Store) seqKey(et *schema.EntityType) string {
	return s.prefix + "seq:" + et.Name
}

// Load reads every record of the type and keeps those matching q
func (s *Store) Load(ctx context.Context, q *query.Query) ([]store.Attributes, error) {
	et := q.EntityType()

	ids, err := s.client.ZRange(ctx, s.indexKey(et), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s index", et.Name)
	}

	if pinned := q.ID(); pinned != "" {
		ids = []string{pinned}
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.recordKey(et, id))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s records", et.Name)
	}

	records := make([]store.Attributes, 0, len(ids))
	for i, cmd := range cmds {
		hash := cmd.Val()
		if len(hash) == 0 {
			continue
		}
		records = append(records, decode(et, ids[i], hash))
	}

	matched, err := store.Filter(ctx, q, records)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("redisstore load",
		zap.String(logging.FieldType, et.Name),
		zap.Int("scanned", len(records)),
		zap.Int("matched", len(matched)))
	return store.Page(matched, q), nil
}

// Save creates new instances and updates persisted ones
func (s *Store) Save(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	if inst.IsNew() {
		return s.Create(ctx, inst)
	}
	return s.Update(ctx, inst)
}

// Create writes a new hash and indexes it
func (s *Store) Create(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	et := inst.EntityType()
	id := inst.ID()
	if id == "" {
		id = s.newID()
	}
	key := s.recordKey(et, id)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to check record")
	}
	if exists > 0 {
		return nil, ormerrors.Configurationf("%s %s already exists", et.Name, id)
	}

	seq, err := s.client.Incr(ctx, s.seqKey(et)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate sequence")
	}

	values, _ := encode(et, inst.Attributes())
	values[schema.IDAttribute] = id

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		pipe.ZAdd(ctx, s.indexKey(et), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", et.Name)
	}

	return decode(et, id, values), nil
}

// Update writes changed fields, removes cleared ones, then reloads
func (s *Store) Update(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	et := inst.EntityType()
	id := inst.ID()
	if id == "" {
		return nil, ormerrors.ErrMissingID
	}
	key := s.recordKey(et, id)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to check record")
	}
	if exists == 0 {
		return nil, ormerrors.ErrEntityNotFound
	}

	values, cleared := encode(et, inst.Attributes())
	delete(values, schema.IDAttribute)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		if len(cleared) > 0 {
			pipe.HDel(ctx, key, cleared...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update %s %s", et.Name, id)
	}

	return s.Reload(ctx, inst)
}

// Reload reads the instance's hash
func (s *Store) Reload(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	id := inst.ID()
	if id == "" {
		return nil, ormerrors.ErrMissingID
	}

	hash, err := s.client.HGetAll(ctx, s.recordKey(inst.EntityType(), id)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to reload record")
	}
	if len(hash) == 0 {
		return nil, ormerrors.ErrEntityNotFound
	}
	return decode(inst.EntityType(), id, hash), nil
}

// encode flattens attributes to hash fields. References store the target
// id; nil values are returned as cleared field names.
func encode(et *schema.EntityType, attrs store.Attributes) (map[string]any, []string) {
	values := make(map[string]any, len(attrs))
	cleared := make([]string, 0)
	for name, v := range attrs {
		attr, declared := et.Attribute(name)
		switch {
		case declared && attr.IsBelongsTo():
			if id := query.IDOf(v); id != "" {
				values[name] = id
			} else {
				cleared = append(cleared, name)
			}
		case v == nil:
			cleared = append(cleared, name)
		default:
			values[name] = cast.ToString(v)
		}
	}
	return values, cleared
}

// decode restores typed values from hash strings using each property's kind
func decode[V any](et *schema.EntityType, id string, hash map[string]V) store.Attributes {
	attrs := make(store.Attributes, len(hash)+1)
	for name, raw := range hash {
		v := any(raw)
		if attr, ok := et.Attribute(name); ok && attr.IsProperty() {
			switch attr.Kind {
			case schema.KindInteger:
				if n, err := cast.ToInt64E(v); err == nil {
					v = n
				}
			case schema.KindFloat:
				if f, err := cast.ToFloat64E(v); err == nil {
					v = f
				}
			}
		}
		attrs[name] = v
	}
	attrs[schema.IDAttribute] = id
	return attrs
}

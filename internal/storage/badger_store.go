package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/ShadowFalcon24/atomic-cloud/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNotFound = errors.New("not found")
)

// Store interface (kept minimal, allows swapping implementations).
type Store interface {
	SaveNode(ctx context.Context, n *models.Node) error
	GetNode(ctx context.Context, name string) (*models.Node, error)
	ListNodes(ctx context.Context) ([]*models.Node, error)
	DeleteNode(ctx context.Context, name string) error

	SaveGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, name string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	DeleteGroup(ctx context.Context, name string) error

	SaveServer(ctx context.Context, s *models.Server) error
	GetServer(ctx context.Context, id string) (*models.Server, error)
	ListServers(ctx context.Context) ([]*models.Server, error)
	DeleteServer(ctx context.Context, id string) error

	Close() error
}

// BadgerStore implements Store with Badger DB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(path))
	opts.Logger = nil                         // disable badger logs for test clarity
	opts = opts.WithValueLogFileSize(1 << 20) // smaller value log for local dev
	return open(opts)
}

// NewInMemoryBadgerStore keeps everything in memory; used by tests and
// by the simulator when no db path is configured.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

const (
	nodePrefix   = "node:"
	groupPrefix  = "group:"
	serverPrefix = "server:"
)

func (s *BadgerStore) put(key string, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) get(key string, out any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, out)
		})
	})
}

// remove deletes key, reporting ErrNotFound when it was never written.
func (s *BadgerStore) remove(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete([]byte(key))
	})
}

// scan decodes every value under prefix in key order.
func scan[T any](s *BadgerStore, prefix string) ([]*T, error) {
	var out []*T
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			v := new(T)
			if err := it.Item().Value(func(data []byte) error {
				return json.Unmarshal(data, v)
			}); err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) SaveNode(_ context.Context, n *models.Node) error {
	return s.put(nodePrefix+n.Name(), n)
}

func (s *BadgerStore) GetNode(_ context.Context, name string) (*models.Node, error) {
	var out models.Node
	if err := s.get(nodePrefix+name, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) ListNodes(_ context.Context) ([]*models.Node, error) {
	return scan[models.Node](s, nodePrefix)
}

func (s *BadgerStore) DeleteNode(_ context.Context, name string) error {
	return s.remove(nodePrefix + name)
}

func (s *BadgerStore) SaveGroup(_ context.Context, g *models.Group) error {
	return s.put(groupPrefix+g.Name(), g)
}

func (s *BadgerStore) GetGroup(_ context.Context, name string) (*models.Group, error) {
	var out models.Group
	if err := s.get(groupPrefix+name, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) ListGroups(_ context.Context) ([]*models.Group, error) {
	return scan[models.Group](s, groupPrefix)
}

func (s *BadgerStore) DeleteGroup(_ context.Context, name string) error {
	return s.remove(groupPrefix + name)
}

func (s *BadgerStore) SaveServer(_ context.Context, srv *models.Server) error {
	return s.put(serverPrefix+srv.ID(), srv)
}

func (s *BadgerStore) GetServer(_ context.Context, id string) (*models.Server, error) {
	var out models.Server
	if err := s.get(serverPrefix+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListServers returns servers ordered by creation time.
func (s *BadgerStore) ListServers(_ context.Context) ([]*models.Server, error) {
	servers, err := scan[models.Server](s, serverPrefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(servers, func(i, j int) bool {
		return servers[i].CreatedAt.Before(servers[j].CreatedAt)
	})
	return servers, nil
}

func (s *BadgerStore) DeleteServer(_ context.Context, id string) error {
	return s.remove(serverPrefix + id)
}

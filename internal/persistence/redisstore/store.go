// Package redisstore stores execution snapshots in Redis.
package redisstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/flowtest/internal/persistence"
)

// Store is a persistence.SnapshotStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>snap:<key>:<seq>  => gob-encoded snapshotPayload
//	<prefix>idx:<key>         => ZSET of sequence numbers scored by seq
//
// The index is always updated together with the payload in one
// transaction pipeline.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ persistence.SnapshotStore = (*Store)(nil)

// New creates a Store.
// prefix is optional but recommended (e.g. "flowtest:").
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "flowtest:"
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func (s *Store) keySnapshot(executionKey string, seq int) string {
	return s.prefix + "snap:" + executionKey + ":" + strconv.Itoa(seq)
}

func (s *Store) keyIndex(executionKey string) string {
	return s.prefix + "idx:" + executionKey
}

func (s *Store) Save(ctx context.Context, snap *persistence.Snapshot) error {
	data, err := persistence.EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keySnapshot(snap.ExecutionKey, snap.Seq), data, 0)
	pipe.ZAdd(ctx, s.keyIndex(snap.ExecutionKey), redis.Z{Score: float64(snap.Seq), Member: snap.Seq})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, executionKey string, seq int) (*persistence.Snapshot, error) {
	data, err := s.client.Get(ctx, s.keySnapshot(executionKey, seq)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.ErrSnapshotNotFound
		}
		return nil, err
	}
	return persistence.DecodeSnapshot(data)
}

func (s *Store) Latest(ctx context.Context, executionKey string) (*persistence.Snapshot, error) {
	seqs, err := s.client.ZRevRange(ctx, s.keyIndex(executionKey), 0, 0).Result()
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, persistence.ErrSnapshotNotFound
	}
	seq, err := strconv.Atoi(seqs[0])
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, executionKey, seq)
}

func (s *Store) seqs(ctx context.Context, executionKey string) ([]int, error) {
	members, err := s.client.ZRange(ctx, s.keyIndex(executionKey), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	seqs := make([]int, 0, len(members))
	for _, m := range members {
		seq, err := strconv.Atoi(m)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, seq)
	}
	return seqs, nil
}

func (s *Store) List(ctx context.Context, executionKey string) ([]*persistence.Snapshot, error) {
	seqs, err := s.seqs(ctx, executionKey)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return []*persistence.Snapshot{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(seqs))
	for i, seq := range seqs {
		cmds[i] = pipe.Get(ctx, s.keySnapshot(executionKey, seq))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	snapshots := make([]*persistence.Snapshot, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		snap, err := persistence.DecodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (s *Store) Delete(ctx context.Context, executionKey string) error {
	seqs, err := s.seqs(ctx, executionKey)
	if err != nil {
		return err
	}
	keys := []string{s.keyIndex(executionKey)}
	for _, seq := range seqs {
		keys = append(keys, s.keySnapshot(executionKey, seq))
	}
	return s.client.Del(ctx, keys...).Err()
}

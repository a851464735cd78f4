// Package mongostore stores execution snapshots in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/flowtest/internal/persistence"
)

// Store is a persistence.SnapshotStore backed by a MongoDB collection.
type Store struct {
	coll *mongo.Collection
}

var _ persistence.SnapshotStore = (*Store)(nil)

// New creates a Mongo-backed snapshot store.
// dbName defaults to "flowtest" if empty, collName defaults to "snapshots".
func New(ctx context.Context, client *mongo.Client, dbName, collName string) (*Store, error) {
	if dbName == "" {
		dbName = "flowtest"
	}
	if collName == "" {
		collName = "snapshots"
	}
	coll := client.Database(dbName).Collection(collName)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "execution_key", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &Store{coll: coll}, nil
}

type mongoSnapshotDoc struct {
	ExecutionKey string    `bson:"execution_key"`
	Seq          int       `bson:"seq"`
	FlowID       string    `bson:"flow_id"`
	StateID      string    `bson:"state_id"`
	Status       string    `bson:"status"`
	Outcome      string    `bson:"outcome,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	Execution    []byte    `bson:"execution"`
}

func (d *mongoSnapshotDoc) snapshot() (*persistence.Snapshot, error) {
	exec, err := persistence.DecodeExecution(d.Execution)
	if err != nil {
		return nil, err
	}
	return &persistence.Snapshot{
		ExecutionKey: d.ExecutionKey,
		Seq:          d.Seq,
		FlowID:       d.FlowID,
		StateID:      d.StateID,
		Status:       d.Status,
		Outcome:      d.Outcome,
		CreatedAt:    d.CreatedAt.UTC(),
		Execution:    exec,
	}, nil
}

func (s *Store) Save(ctx context.Context, snap *persistence.Snapshot) error {
	exec, err := persistence.EncodeExecution(snap.Execution)
	if err != nil {
		return err
	}
	doc := mongoSnapshotDoc{
		ExecutionKey: snap.ExecutionKey,
		Seq:          snap.Seq,
		FlowID:       snap.FlowID,
		StateID:      snap.StateID,
		Status:       snap.Status,
		Outcome:      snap.Outcome,
		CreatedAt:    snap.CreatedAt,
		Execution:    exec,
	}
	filter := bson.M{"execution_key": snap.ExecutionKey, "seq": snap.Seq}
	_, err = s.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*persistence.Snapshot, error) {
	var doc mongoSnapshotDoc
	if err := s.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, persistence.ErrSnapshotNotFound
		}
		return nil, err
	}
	return doc.snapshot()
}

func (s *Store) Get(ctx context.Context, executionKey string, seq int) (*persistence.Snapshot, error) {
	return s.findOne(ctx, bson.M{"execution_key": executionKey, "seq": seq})
}

func (s *Store) Latest(ctx context.Context, executionKey string) (*persistence.Snapshot, error) {
	return s.findOne(ctx, bson.M{"execution_key": executionKey},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}}))
}

func (s *Store) List(ctx context.Context, executionKey string) ([]*persistence.Snapshot, error) {
	cur, err := s.coll.Find(ctx, bson.M{"execution_key": executionKey},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	snapshots := []*persistence.Snapshot{}
	for cur.Next(ctx) {
		var doc mongoSnapshotDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		snap, err := doc.snapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, cur.Err()
}

func (s *Store) Delete(ctx context.Context, executionKey string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"execution_key": executionKey})
	return err
}

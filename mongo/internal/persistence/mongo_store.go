package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	corep "github.com/denchik37/Copy-of-Effektif/internal/persistence"
	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// MongoInstanceStore is an InstanceStore backed by a MongoDB collection.
// The instance tree travels as an opaque gob blob next to the fields the
// store filters on; the revision check rides on the update filter so
// optimistic concurrency needs no transactions.
type MongoInstanceStore struct {
	coll *mongo.Collection
}

// Ensure it implements the core store contract.
var _ corep.InstanceStore = (*MongoInstanceStore)(nil)

// NewMongoInstanceStore creates a Mongo-backed instance store. dbName
// defaults to "effektif" if empty, collName defaults to "instances".
func NewMongoInstanceStore(client *mongo.Client, dbName, collName string) *MongoInstanceStore {
	if dbName == "" {
		dbName = "effektif"
	}
	if collName == "" {
		collName = "instances"
	}
	return &MongoInstanceStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

type instanceDoc struct {
	ID         string `bson:"_id"`
	WorkflowID string `bson:"workflow_id"`
	Status     string `bson:"status"`
	Rev        int64  `bson:"rev"`
	Tree       []byte `bson:"tree"`
}

func (s *MongoInstanceStore) CreateInstance(ctx context.Context, inst *api.WorkflowInstance) error {
	inst.Rev = 1
	tree, err := corep.EncodeValue(inst)
	if err != nil {
		return err
	}

	_, err = s.coll.InsertOne(ctx, instanceDoc{
		ID:         inst.ID,
		WorkflowID: inst.WorkflowID,
		Status:     string(inst.Status),
		Rev:        inst.Rev,
		Tree:       tree,
	})
	if mongo.IsDuplicateKeyError(err) {
		return corep.ErrInstanceExists
	}
	return err
}

func (s *MongoInstanceStore) UpdateInstance(ctx context.Context, inst *api.WorkflowInstance, expectedRev int64) error {
	inst.Rev = expectedRev + 1
	tree, err := corep.EncodeValue(inst)
	if err != nil {
		inst.Rev = expectedRev
		return err
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": inst.ID, "rev": expectedRev},
		bson.M{"$set": bson.M{
			"workflow_id": inst.WorkflowID,
			"status":      string(inst.Status),
			"rev":         inst.Rev,
			"tree":        tree,
		}},
	)
	if err != nil {
		inst.Rev = expectedRev
		return err
	}
	if res.MatchedCount == 0 {
		inst.Rev = expectedRev
		// Distinguish a missing document from a revision clash.
		probe := s.coll.FindOne(ctx, bson.M{"_id": inst.ID})
		if errors.Is(probe.Err(), mongo.ErrNoDocuments) {
			return corep.ErrInstanceNotFound
		}
		if probe.Err() != nil {
			return probe.Err()
		}
		return corep.ErrRevConflict
	}
	return nil
}

func (s *MongoInstanceStore) GetInstance(ctx context.Context, id string) (*api.WorkflowInstance, error) {
	var doc instanceDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, corep.ErrInstanceNotFound
		}
		return nil, err
	}
	return corep.DecodeValue[*api.WorkflowInstance](doc.Tree)
}

func (s *MongoInstanceStore) ListInstances(ctx context.Context, q api.InstanceQuery) ([]*api.WorkflowInstance, error) {
	cur, err := s.coll.Find(ctx, instanceFilter(q))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var instances []*api.WorkflowInstance
	for cur.Next(ctx) {
		var doc instanceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		inst, err := corep.DecodeValue[*api.WorkflowInstance](doc.Tree)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	return instances, cur.Err()
}

func (s *MongoInstanceStore) DeleteInstances(ctx context.Context, q api.InstanceQuery) (int, error) {
	res, err := s.coll.DeleteMany(ctx, instanceFilter(q))
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func instanceFilter(q api.InstanceQuery) bson.M {
	filter := bson.M{}
	if q.WorkflowID != "" {
		filter["workflow_id"] = q.WorkflowID
	}
	if q.Status != "" {
		filter["status"] = string(q.Status)
	}
	return filter
}

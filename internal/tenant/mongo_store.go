package tenant

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one membership document per (uid, tenant) pair.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoStore, error) {
	c := cli.Database(db).Collection(coll)
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}, {Key: "tenant_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &MongoStore{coll: c}, nil
}

// Grant upserts a membership. Operator tooling only; the guard never writes.
func (s *MongoStore) Grant(ctx context.Context, uid, tenantID, role string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"uid": uid, "tenant_id": tenantID},
		bson.M{"$set": bson.M{"role": role}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Exists(ctx context.Context, uid, tenantID string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"uid": uid, "tenant_id": tenantID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStore) RoleOf(ctx context.Context, uid, tenantID string) (string, bool, error) {
	var doc struct {
		Role string `bson:"role"`
	}
	err := s.coll.FindOne(ctx, bson.M{"uid": uid, "tenant_id": tenantID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return doc.Role, true, nil
}

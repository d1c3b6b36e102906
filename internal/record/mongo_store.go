package record

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per record path, keyed by _id.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(cli *mongo.Client, db, coll string) *MongoStore {
	return &MongoStore{coll: cli.Database(db).Collection(coll)}
}

func (s *MongoStore) Get(ctx context.Context, path string) (map[string]any, error) {
	var doc struct {
		Data bson.M `bson:"data"`
	}
	err := s.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(doc.Data), nil
}

func (s *MongoStore) Set(ctx context.Context, path string, value map[string]any) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": path},
		bson.M{"_id": path, "data": value},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Update(ctx context.Context, path string, partial map[string]any) error {
	set := bson.M{}
	for k, v := range partial {
		set["data."+k] = v
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": path}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Remove(ctx context.Context, path string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": path})
	return err
}

func (s *MongoStore) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": path}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStore) Push(ctx context.Context, pathPrefix string, value map[string]any) (string, error) {
	path := strings.TrimSuffix(pathPrefix, "/") + "/" + uuid.NewString()
	if err := s.Set(ctx, path, value); err != nil {
		return "", err
	}
	return path, nil
}

func (s *MongoStore) List(ctx context.Context, pathPrefix string) ([]string, error) {
	prefix := strings.TrimSuffix(pathPrefix, "/") + "/"
	cur, err := s.coll.Find(ctx,
		bson.M{"_id": bson.M{"$regex": "^" + escapeRegex(prefix) + "[^/]+$"}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// fromBSON normalizes decoded documents to the map[string]any shape the
// transformer operates on.
func fromBSON(v bson.M) map[string]any {
	out := make(map[string]any, len(v))
	for k, e := range v {
		out[k] = fromBSONValue(e)
	}
	return out
}

func fromBSONValue(v any) any {
	switch x := v.(type) {
	case bson.M:
		return fromBSON(x)
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromBSONValue(e)
		}
		return out
	case int32:
		return int64(x)
	default:
		return x
	}
}

func escapeRegex(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

package auth

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoUserStore, error) {
	c := cli.Database(db).Collection(coll)

	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "uid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	_, _ = c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})

	return &MongoUserStore{coll: c}, nil
}

func (s *MongoUserStore) Add(ctx context.Context, u *User) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	doc := bson.M{
		"uid":         u.UID,
		"email":       email,
		"pass_hash":   u.PassHash,
		"totp_secret": strings.TrimSpace(u.TOTPSecret),
	}
	_, err := s.coll.InsertOne(ctx, doc)
	var wex mongo.WriteException
	if errors.As(err, &wex) {
		for _, we := range wex.WriteErrors {
			if we.Code == 11000 { // duplicate key
				return errors.New("auth: uid or email already exists")
			}
		}
	}
	return err
}

func (s *MongoUserStore) FindByUID(ctx context.Context, uid string) (*User, error) {
	return s.findOne(ctx, bson.M{"uid": uid})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter any) (*User, error) {
	var doc struct {
		UID        string `bson:"uid"`
		Email      string `bson:"email"`
		PassHash   string `bson:"pass_hash"`
		TOTPSecret string `bson:"totp_secret"`
	}
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &User{
		UID:        doc.UID,
		Email:      doc.Email,
		PassHash:   doc.PassHash,
		TOTPSecret: doc.TOTPSecret,
	}, nil
}

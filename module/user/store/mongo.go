package store

import (
	"context"
	"regexp"
	"time"

	"CollabNotes/data/database/mgo/mongoutil"
	usermodel "CollabNotes/module/user/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Role      string             `bson:"role"`
	IsActive  bool               `bson:"isActive"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *userDoc) toModel() *usermodel.User {
	return &usermodel.User{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Role:      d.Role,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
	}
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: mongoutil.Collection(db, &usermodel.User{})}
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*usermodel.User, error) {
	oid, ok := mongoutil.ObjectID(id)
	if !ok {
		return nil, mongoutil.NotFoundOr(mongo.ErrNoDocuments, "user")
	}
	var doc userDoc
	if err := s.coll.FindOne(ctx, bson.M{usermodel.UserFieldID: oid}).Decode(&doc); err != nil {
		return nil, mongoutil.NotFoundOr(err, "user")
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindActiveByName(ctx context.Context, name string) (*usermodel.User, error) {
	filter := bson.M{
		usermodel.UserFieldName: primitive.Regex{
			Pattern: "^" + regexp.QuoteMeta(name) + "$",
			Options: "i",
		},
		usermodel.UserFieldIsActive: true,
	}
	var doc userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mongoutil.NotFoundOr(err, "user")
	}
	return doc.toModel(), nil
}

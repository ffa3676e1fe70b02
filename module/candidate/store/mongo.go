package store

import (
	"context"
	"time"

	"CollabNotes/data/database/mgo/mongoutil"
	candidatemodel "CollabNotes/module/candidate/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type candidateDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Position  string             `bson:"position"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: mongoutil.Collection(db, &candidatemodel.Candidate{})}
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*candidatemodel.Candidate, error) {
	oid, ok := mongoutil.ObjectID(id)
	if !ok {
		return nil, mongoutil.NotFoundOr(mongo.ErrNoDocuments, "candidate")
	}
	var doc candidateDoc
	if err := s.coll.FindOne(ctx, bson.M{candidatemodel.CandidateFieldID: oid}).Decode(&doc); err != nil {
		return nil, mongoutil.NotFoundOr(err, "candidate")
	}
	return &candidatemodel.Candidate{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		Position:  doc.Position,
		Status:    doc.Status,
		CreatedAt: doc.CreatedAt,
	}, nil
}

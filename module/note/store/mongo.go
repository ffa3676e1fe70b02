package store

import (
	"context"
	"time"

	"CollabNotes/data/database/mgo/mongoutil"
	notemodel "CollabNotes/module/note/model"
	"CollabNotes/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type noteDoc struct {
	ID            primitive.ObjectID   `bson:"_id"`
	CandidateID   primitive.ObjectID   `bson:"candidateId"`
	Author        primitive.ObjectID   `bson:"author"`
	Content       string               `bson:"content"`
	Mentions      []primitive.ObjectID `bson:"mentions"`
	ParentNote    *primitive.ObjectID  `bson:"parentNote"`
	IsHighlighted bool                 `bson:"isHighlighted"`
	IsEdited      bool                 `bson:"isEdited"`
	EditedAt      *time.Time           `bson:"editedAt,omitempty"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

func (d *noteDoc) toModel() *notemodel.Note {
	n := &notemodel.Note{
		ID:            d.ID.Hex(),
		CandidateID:   d.CandidateID.Hex(),
		Author:        d.Author.Hex(),
		Content:       d.Content,
		Mentions:      mongoutil.Hexes(d.Mentions),
		IsHighlighted: d.IsHighlighted,
		IsEdited:      d.IsEdited,
		EditedAt:      d.EditedAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.ParentNote != nil {
		n.ParentNote = d.ParentNote.Hex()
	}
	return n
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: mongoutil.Collection(db, &notemodel.Note{})}
}

func (s *MongoStore) Create(ctx context.Context, n *notemodel.Note) (*notemodel.Note, error) {
	candidateID, ok := mongoutil.ObjectID(n.CandidateID)
	if !ok {
		return nil, errs.ErrNotFound.WrapMsg("candidate not found")
	}
	author, ok := mongoutil.ObjectID(n.Author)
	if !ok {
		return nil, errs.ErrValidation.WrapMsg("invalid author id")
	}
	now := time.Now().UTC()
	doc := noteDoc{
		ID:            primitive.NewObjectID(),
		CandidateID:   candidateID,
		Author:        author,
		Content:       n.Content,
		Mentions:      mongoutil.ObjectIDs(n.Mentions),
		IsHighlighted: n.IsHighlighted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if n.ParentNote != "" {
		parent, ok := mongoutil.ObjectID(n.ParentNote)
		if !ok {
			return nil, errs.ErrNotFound.WrapMsg("parent note not found")
		}
		doc.ParentNote = &parent
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, errs.WrapMsg(err, "mongo insert note")
	}
	return doc.toModel(), nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*notemodel.Note, error) {
	oid, ok := mongoutil.ObjectID(id)
	if !ok {
		return nil, mongoutil.NotFoundOr(mongo.ErrNoDocuments, "note")
	}
	var doc noteDoc
	if err := s.coll.FindOne(ctx, bson.M{notemodel.NoteFieldID: oid}).Decode(&doc); err != nil {
		return nil, mongoutil.NotFoundOr(err, "note")
	}
	return doc.toModel(), nil
}

func (s *MongoStore) UpdateContent(ctx context.Context, id, content string, mentions []string) (*notemodel.Note, error) {
	oid, ok := mongoutil.ObjectID(id)
	if !ok {
		return nil, mongoutil.NotFoundOr(mongo.ErrNoDocuments, "note")
	}
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		notemodel.NoteFieldContent:   content,
		notemodel.NoteFieldMentions:  mongoutil.ObjectIDs(mentions),
		notemodel.NoteFieldIsEdited:  true,
		notemodel.NoteFieldEditedAt:  now,
		notemodel.NoteFieldUpdatedAt: now,
	}}
	var doc noteDoc
	err := s.coll.FindOneAndUpdate(ctx, bson.M{notemodel.NoteFieldID: oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, mongoutil.NotFoundOr(err, "note")
	}
	return doc.toModel(), nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, ok := mongoutil.ObjectID(id)
	if !ok {
		return mongoutil.NotFoundOr(mongo.ErrNoDocuments, "note")
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{notemodel.NoteFieldID: oid})
	if err != nil {
		return errs.WrapMsg(err, "mongo delete note")
	}
	if res.DeletedCount == 0 {
		return mongoutil.NotFoundOr(mongo.ErrNoDocuments, "note")
	}
	return nil
}

// ToggleHighlight 用聚合管道更新在服务端原子翻转
func (s *MongoStore) ToggleHighlight(ctx context.Context, id string) (*notemodel.Note, error) {
	oid, ok := mongoutil.ObjectID(id)
	if !ok {
		return nil, mongoutil.NotFoundOr(mongo.ErrNoDocuments, "note")
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: notemodel.NoteFieldIsHighlighted, Value: bson.D{{Key: "$not", Value: bson.A{"$" + notemodel.NoteFieldIsHighlighted}}}},
			{Key: notemodel.NoteFieldUpdatedAt, Value: "$$NOW"},
		}}},
	}
	var doc noteDoc
	err := s.coll.FindOneAndUpdate(ctx, bson.M{notemodel.NoteFieldID: oid}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		return nil, mongoutil.NotFoundOr(err, "note")
	}
	return doc.toModel(), nil
}

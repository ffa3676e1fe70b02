package store

import (
	"context"
	"time"

	"CollabNotes/data/database/mgo/mongoutil"
	notificationmodel "CollabNotes/module/notification/model"
	"CollabNotes/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type notificationDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Recipient primitive.ObjectID `bson:"recipient"`
	Sender    primitive.ObjectID `bson:"sender"`
	Candidate primitive.ObjectID `bson:"candidate"`
	Note      primitive.ObjectID `bson:"note"`
	Type      string             `bson:"type"`
	Message   string             `bson:"message"`
	IsRead    bool               `bson:"isRead"`
	ReadAt    *time.Time         `bson:"readAt,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: mongoutil.Collection(db, &notificationmodel.Notification{})}
}

func (s *MongoStore) InsertMany(ctx context.Context, batch []*notificationmodel.Notification) ([]*notificationmodel.Notification, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(batch))
	out := make([]*notificationmodel.Notification, 0, len(batch))
	for _, n := range batch {
		if err := n.Validate(); err != nil {
			return nil, err
		}
		recipient, ok1 := mongoutil.ObjectID(n.Recipient)
		sender, ok2 := mongoutil.ObjectID(n.Sender)
		candidate, ok3 := mongoutil.ObjectID(n.Candidate)
		note, ok4 := mongoutil.ObjectID(n.Note)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, errs.ErrValidation.WrapMsg("invalid notification reference", "recipient", n.Recipient)
		}
		doc := notificationDoc{
			ID:        primitive.NewObjectID(),
			Recipient: recipient,
			Sender:    sender,
			Candidate: candidate,
			Note:      note,
			Type:      n.Type,
			Message:   n.Message,
			CreatedAt: now,
			UpdatedAt: now,
		}
		docs = append(docs, doc)

		cp := *n
		cp.ID = doc.ID.Hex()
		cp.CreatedAt = now
		out = append(out, &cp)
	}
	if _, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return nil, errs.WrapMsg(err, "mongo insert notifications", "count", len(docs))
	}
	return out, nil
}

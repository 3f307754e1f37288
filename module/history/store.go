package history

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"PRelay/tools/errs"
)

type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection((&MessageRecord{}).GetTableName())}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "msg_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "sent_at", Value: -1}},
		},
	})
	if err != nil {
		return errs.WrapMsg(err, "ensure message indexes")
	}
	return nil
}

// Insert upserts on msg_id. The archive topic is at-least-once, the
// store absorbs the duplicates.
func (s *Store) Insert(ctx context.Context, rec MessageRecord) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"msg_id": rec.MsgID},
		bson.M{"$setOnInsert": rec},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errs.WrapMsg(err, "insert message record", "msgId", rec.MsgID)
	}
	return nil
}

// Recent returns up to limit newest messages of a room, oldest first.
func (s *Store) Recent(ctx context.Context, roomID string, limit int64) ([]MessageRecord, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"room_id": roomID},
		options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "find recent messages", "roomId", roomID)
	}
	var recs []MessageRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errs.WrapMsg(err, "decode recent messages", "roomId", roomID)
	}
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// Search matches message content case-insensitively within a room.
// The query is taken literally, not as a user-supplied regex.
func (s *Store) Search(ctx context.Context, roomID, q string, limit int64) ([]MessageRecord, error) {
	filter := bson.M{
		"room_id": roomID,
		"content": primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"},
	}
	cur, err := s.coll.Find(ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "sent_at", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "search messages", "roomId", roomID)
	}
	var recs []MessageRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errs.WrapMsg(err, "decode search result", "roomId", roomID)
	}
	return recs, nil
}

func (s *Store) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, errs.WrapMsg(err, "count messages", "roomId", roomID)
	}
	return n, nil
}

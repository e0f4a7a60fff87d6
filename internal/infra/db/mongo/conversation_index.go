package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dmbox/internal/domain/chat"
)

const conversationsCollection = "conversations"

// ConversationIndex keeps one summary document per pair, keyed by the pair
// key, with a secondary index on (participants, last_ts).
type ConversationIndex struct {
	coll *mongo.Collection
}

func NewConversationIndex(client *Client) *ConversationIndex {
	return &ConversationIndex{coll: client.DB.Collection(conversationsCollection)}
}

func (x *ConversationIndex) EnsureIndexes(ctx context.Context) error {
	_, err := x.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_ts", Value: -1}},
	})
	return err
}

type summaryDoc struct {
	PairKey      string   `bson:"_id"`
	Participants []string `bson:"participants"`
	LastBody     string   `bson:"last_body"`
	LastFrom     string   `bson:"last_from"`
	LastTs       int64    `bson:"last_ts"`
}

// summaryWriter is the slice of *mongo.Collection the upsert needs.
type summaryWriter interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Upsert applies the write only when the incoming ts is strictly greater
// than the stored last_ts, or no document exists. The filtered upsert gives
// compare-and-swap semantics; a duplicate-key error means another writer
// inserted the document between the filter evaluation and our insert, so
// the same update is retried without upsert and the last_ts filter decides
// which of the racing writes is newer.
func (x *ConversationIndex) Upsert(ctx context.Context, up chat.SummaryUpsert) error {
	return upsertSummary(ctx, x.coll, up)
}

func upsertSummary(ctx context.Context, coll summaryWriter, up chat.SummaryUpsert) error {
	filter := bson.M{"_id": up.PairKey, "last_ts": bson.M{"$lt": up.Ts}}
	update := bson.M{
		"$set": bson.M{
			"last_body": up.Body,
			"last_from": up.From,
			"last_ts":   up.Ts,
		},
		"$setOnInsert": bson.M{
			"participants": []string{up.Participants[0], up.Participants[1]},
		},
	}
	_, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	// The document exists now. Without upsert a non-matching filter is a
	// plain no-op, so a stale write drops and a newer one lands.
	_, err = coll.UpdateOne(ctx, filter, update)
	return err
}

func (x *ConversationIndex) ListForUser(ctx context.Context, userID string, limit int) ([]chat.ConversationSummary, error) {
	if limit <= 0 || limit > chat.MaxConversationLimit {
		limit = chat.MaxConversationLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "last_ts", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := x.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []summaryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]chat.ConversationSummary, 0, len(docs))
	for _, doc := range docs {
		summary := chat.ConversationSummary{
			PairKey:  doc.PairKey,
			LastBody: doc.LastBody,
			LastFrom: doc.LastFrom,
			LastTs:   doc.LastTs,
		}
		if len(doc.Participants) == 2 {
			summary.Participants = [2]string{doc.Participants[0], doc.Participants[1]}
		}
		out = append(out, summary)
	}
	return out, nil
}

var _ chat.ConversationIndex = (*ConversationIndex)(nil)

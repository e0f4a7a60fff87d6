package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dmbox/internal/domain/chat"
)

const messagesCollection = "messages"

// MessageStore persists the append-only log in a messages collection with
// a secondary index on (pair_key, ts).
type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(client *Client) *MessageStore {
	return &MessageStore{coll: client.DB.Collection(messagesCollection)}
}

// EnsureIndexes creates the (pair_key, ts) index backing pair reads.
func (s *MessageStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pair_key", Value: 1}, {Key: "ts", Value: 1}},
	})
	return err
}

type messageDoc struct {
	ID      string `bson:"_id"`
	From    string `bson:"from"`
	To      string `bson:"to"`
	Body    string `bson:"body"`
	Ts      int64  `bson:"ts"`
	PairKey string `bson:"pair_key"`
}

func (s *MessageStore) Append(ctx context.Context, msg chat.Message) error {
	_, err := s.coll.InsertOne(ctx, messageDoc{
		ID:      msg.ID,
		From:    msg.From,
		To:      msg.To,
		Body:    msg.Body,
		Ts:      msg.Ts,
		PairKey: msg.PairKey,
	})
	return err
}

func (s *MessageStore) ByPairSince(ctx context.Context, pairKey string, after int64, limit int) ([]chat.Message, error) {
	limit = chat.ClampLimit(limit, chat.DefaultSinceLimit)
	filter := bson.M{"pair_key": pairKey, "ts": bson.M{"$gt": after}}
	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return s.find(ctx, filter, opts)
}

func (s *MessageStore) ByPairBeforeDesc(ctx context.Context, pairKey string, before int64, limit int) ([]chat.Message, error) {
	limit = chat.ClampLimit(limit, chat.DefaultPageLimit)
	filter := bson.M{"pair_key": pairKey, "ts": bson.M{"$lt": before}}
	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	return s.find(ctx, filter, opts)
}

func (s *MessageStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]chat.Message, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(docs))
	for _, doc := range docs {
		out = append(out, chat.Message{
			ID:      doc.ID,
			From:    doc.From,
			To:      doc.To,
			Body:    doc.Body,
			Ts:      doc.Ts,
			PairKey: doc.PairKey,
		})
	}
	return out, nil
}

var _ chat.MessageStore = (*MessageStore)(nil)

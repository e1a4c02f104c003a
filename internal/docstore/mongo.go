package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// Mongo wraps a mongo.Client bound to one database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongo creates a client for uri using the stable server API. A non-nil Mongo is
// returned together with the initial ping error so callers may keep serving while the
// driver reconnects in the background.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	m := &Mongo{client: client, db: client.Database(database)}
	return m, m.Ping(ctx)
}

// Collection returns the named collection.
func (m *Mongo) Collection(name string) Collection {
	return &MongoCollection{coll: m.db.Collection(name)}
}

// Ping checks connectivity against the primary.
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return mongoErr("ping", err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

// MongoCollection adapts a mongo.Collection to Collection.
type MongoCollection struct {
	coll *mongo.Collection
}

// Insert stores doc and returns the generated ObjectID as hex.
func (c *MongoCollection) Insert(ctx context.Context, doc Document) (InsertResult, error) {
	res, err := c.coll.InsertOne(ctx, map[string]any(withoutID(doc)))
	if err != nil {
		return InsertResult{}, mongoErr("insert", err)
	}
	return InsertResult{Acknowledged: true, InsertedID: idString(res.InsertedID)}, nil
}

// FindOne returns the document with id.
func (c *MongoCollection) FindOne(ctx context.Context, id string) (Document, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	if err := c.coll.FindOne(ctx, bson.M{IDField: oid}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mongoErr("find one", err)
	}
	return normalizeMap(raw), nil
}

// Find returns matching documents ordered by _id.
func (c *MongoCollection) Find(ctx context.Context, q Query) ([]Document, error) {
	filter := bson.M{}
	for k, v := range q.Equals {
		filter[k] = v
	}
	opts := options.Find().SetSort(bson.D{{Key: IDField, Value: 1}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mongoErr("find", err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, mongoErr("decode", err)
	}
	out := make([]Document, 0, len(raw))
	for _, m := range raw {
		out = append(out, normalizeMap(m))
	}
	return out, nil
}

// SetFields applies a $set of fields to the document with id.
func (c *MongoCollection) SetFields(ctx context.Context, id string, fields Document, upsert bool) (UpdateResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	update := bson.M{"$set": map[string]any(withoutID(fields))}
	res, err := c.coll.UpdateOne(ctx, bson.M{IDField: oid}, update, options.Update().SetUpsert(upsert))
	if err != nil {
		return UpdateResult{}, mongoErr("update", err)
	}
	out := UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}
	if res.UpsertedID != nil {
		upserted := idString(res.UpsertedID)
		out.UpsertedID = &upserted
	}
	return out, nil
}

// Delete removes the document with id.
func (c *MongoCollection) Delete(ctx context.Context, id string) (DeleteResult, error) {
	oid, err := objectID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	res, err := c.coll.DeleteOne(ctx, bson.M{IDField: oid})
	if err != nil {
		return DeleteResult{}, mongoErr("delete", err)
	}
	return DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

// EstimatedCount uses collection metadata rather than scanning.
func (c *MongoCollection) EstimatedCount(ctx context.Context) (int64, error) {
	n, err := c.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, mongoErr("count", err)
	}
	return n, nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func idString(v any) string {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(v)
}

func mongoErr(op string, err error) error {
	var selection topology.ServerSelectionError
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected) || errors.As(err, &selection) {
		return fmt.Errorf("%w: mongo %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("mongo %s: %w", op, err)
}

// normalizeMap converts driver types into plain JSON friendly values.
func normalizeMap(m map[string]any) Document {
	out := make(Document, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return normalizeMap(t)
	case primitive.D:
		out := make(Document, len(t))
		for _, e := range t {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.Decimal128:
		return t.String()
	default:
		return v
	}
}

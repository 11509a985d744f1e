package mongo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/finzora/signal-engine/internal/infra"
)

// Collection names inside the snapshot database.
const (
	transactionsCollection = "transactions"
	budgetsCollection      = "budgets"
	manualSubsCollection   = "manual_subscriptions"
)

// Repository reads user snapshots from MongoDB. Documents are stored the
// way the web client writes them, so values arrive loosely typed; this
// layer only normalizes BSON primitives into plain JSON types and leaves
// validation to the domain parse boundary.
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewRepository connects to MongoDB and verifies the connection.
func NewRepository(ctx context.Context, uri, dbName string) (*Repository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("NewRepository: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("NewRepository: ping: %w", err)
	}

	return &Repository{client: client, db: client.Database(dbName)}, nil
}

// Close disconnects the underlying client.
func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// Transactions returns the user's raw transaction documents, oldest first.
func (r *Repository) Transactions(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return r.findDocuments(ctx, "Transactions", transactionsCollection, userID, opts)
}

// Budgets returns the user's raw budget documents.
func (r *Repository) Budgets(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	return r.findDocuments(ctx, "Budgets", budgetsCollection, userID, options.Find())
}

// ManualSubscriptions returns the user's raw manual subscription documents.
func (r *Repository) ManualSubscriptions(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	return r.findDocuments(ctx, "ManualSubscriptions", manualSubsCollection, userID, options.Find())
}

func (r *Repository) findDocuments(ctx context.Context, op, collection, userID string, opts *options.FindOptions) ([]map[string]interface{}, error) {
	cursor, err := r.db.Collection(collection).Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cursor.Close(ctx)

	docs := make([]map[string]interface{}, 0)
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		docs = append(docs, normalizeDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return docs, nil
}

// normalizeDocument converts BSON primitives into the plain types the parse
// boundary understands. The _id field doubles as the document id when no
// explicit id field is stored.
func normalizeDocument(raw bson.M) map[string]interface{} {
	doc := make(map[string]interface{}, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			// omit
		case string:
			doc[key] = v
		case float64:
			doc[key] = v
		case int32:
			doc[key] = float64(v)
		case int64:
			doc[key] = float64(v)
		case bool:
			doc[key] = v
		case primitive.DateTime:
			doc[key] = v.Time().UTC().Format(time.RFC3339)
		case primitive.ObjectID:
			doc[key] = v.Hex()
		case primitive.Decimal128:
			if f, err := strconv.ParseFloat(v.String(), 64); err == nil {
				doc[key] = f
			}
		default:
			doc[key] = fmt.Sprintf("%v", v)
		}
	}

	if _, ok := doc["id"]; !ok {
		if oid, ok := doc["_id"].(string); ok {
			doc["id"] = oid
		}
	}

	return doc
}

// Ensure Repository satisfies the snapshot contract.
var _ infra.SnapshotRepository = (*Repository)(nil)

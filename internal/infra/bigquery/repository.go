package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/finzora/signal-engine/internal/infra"
)

// Repository reads user snapshots from BigQuery. Tables live in a single
// dataset and carry a user_id column; columns are aliased in the queries so
// rows come back in the shape the domain parse boundary expects.
type Repository struct {
	client  *bigquery.Client
	project string
	dataset string
}

// NewRepository creates a Repository with its own BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return &Repository{client: client, project: projectID, dataset: datasetID}, nil
}

// NewRepositoryWithClient creates a Repository using the provided client.
// The caller retains ownership of the client.
func NewRepositoryWithClient(client *bigquery.Client, projectID, datasetID string) *Repository {
	return &Repository{client: client, project: projectID, dataset: datasetID}
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Transactions returns the user's raw transaction documents, oldest first.
func (r *Repository) Transactions(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	query := fmt.Sprintf(`
		SELECT
			transaction_id AS id,
			title,
			amount,
			transaction_date AS date,
			category,
			description,
			type
		FROM %s
		WHERE user_id = @user_id
		ORDER BY transaction_date, transaction_id
	`, r.table("transactions"))

	return r.queryDocuments(ctx, "Transactions", query, userID)
}

// Budgets returns the user's raw budget documents.
func (r *Repository) Budgets(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	query := fmt.Sprintf(`
		SELECT
			category,
			budget_limit AS %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY category
	`, "`limit`", r.table("budgets"))

	return r.queryDocuments(ctx, "Budgets", query, userID)
}

// ManualSubscriptions returns the user's raw manual subscription documents.
func (r *Repository) ManualSubscriptions(ctx context.Context, userID string) ([]map[string]interface{}, error) {
	query := fmt.Sprintf(`
		SELECT
			subscription_id AS id,
			name,
			amount,
			frequency,
			next_due_date AS nextDueDate
		FROM %s
		WHERE user_id = @user_id
		ORDER BY next_due_date, subscription_id
	`, r.table("manual_subscriptions"))

	return r.queryDocuments(ctx, "ManualSubscriptions", query, userID)
}

func (r *Repository) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.project, r.dataset, name)
}

// queryDocuments runs a parameterized query and flattens each row into a
// generic document with JSON-friendly values.
func (r *Repository) queryDocuments(ctx context.Context, op, query, userID string) ([]map[string]interface{}, error) {
	q := r.client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	docs := make([]map[string]interface{}, 0)
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		docs = append(docs, flattenRow(row))
	}

	return docs, nil
}

// flattenRow converts BigQuery values into the plain types the parse
// boundary understands: strings, float64 and date strings.
func flattenRow(row map[string]bigquery.Value) map[string]interface{} {
	doc := make(map[string]interface{}, len(row))
	for key, value := range row {
		switch v := value.(type) {
		case nil:
			// omit
		case string:
			doc[key] = v
		case float64:
			doc[key] = v
		case int64:
			doc[key] = float64(v)
		case *big.Rat:
			f, _ := v.Float64()
			doc[key] = f
		case bool:
			doc[key] = v
		case civil.Date:
			doc[key] = v.String()
		case civil.DateTime:
			doc[key] = v.In(time.UTC).Format(time.RFC3339)
		case time.Time:
			doc[key] = v.Format(time.RFC3339)
		default:
			doc[key] = fmt.Sprintf("%v", v)
		}
	}
	return doc
}

// Ensure Repository satisfies the snapshot contract.
var _ infra.SnapshotRepository = (*Repository)(nil)

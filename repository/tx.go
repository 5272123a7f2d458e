package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs a unit of work, inside a MongoDB transaction when enabled.
// Transactions need a replica set, so standalone deployments run the work
// directly and rely on guarded stock updates and compensation.
type TxRunner struct {
	client  *mongo.Client
	enabled bool
}

func NewTxRunner(client *mongo.Client, enabled bool) *TxRunner {
	return &TxRunner{client: client, enabled: enabled}
}

func (t *TxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || t.client == nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Transactional reports whether work is rolled back on failure.
func (t *TxRunner) Transactional() bool {
	return t.enabled && t.client != nil
}

package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// Runs only against a live server, e.g.
// MONGO_TEST_URI=mongodb://localhost:27017 go test ./internal/storage
func newMongoTestStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	database := "scuttle_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	s, err := NewMongoStore(ctx, uri, database)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.db.Drop(ctx)
		s.Close(ctx)
	})
	return s
}

func TestMongoStore(t *testing.T) {
	runStoreContract(t,
		func(t *testing.T) Store { return newMongoTestStore(t) },
		func(t *testing.T, s Store, name string) int {
			var doc struct {
				TimesCalled int `bson:"times_called"`
			}
			err := s.(*MongoStore).db.Collection(analyticsCollection).
				FindOne(context.Background(), bson.M{"command_name": name}).Decode(&doc)
			require.NoError(t, err)
			return doc.TimesCalled
		},
	)
}

// Package mongo provides a MongoDB-backed engine for long-lived workflow
// deployments. Workflow instances are stored durably in MongoDB; workflow
// definitions are kept in-memory and should be re-deployed at startup.
package mongo

import (
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/denchik37/Copy-of-Effektif/internal/engine"
	"github.com/denchik37/Copy-of-Effektif/internal/persistence"
	"github.com/denchik37/Copy-of-Effektif/pkg/api"

	mstore "github.com/denchik37/Copy-of-Effektif/mongo/internal/persistence"
)

// NewMongoEngine returns an Engine that persists workflow instances in
// MongoDB, using the store's default database and collection names.
func NewMongoEngine(client *mongo.Client) api.Engine {
	return NewMongoEngineWithConfig(client, engine.Config{})
}

// NewMongoEngineWithConfig is NewMongoEngine with everything but the
// persistence taken from cfg.
func NewMongoEngineWithConfig(client *mongo.Client, cfg engine.Config) api.Engine {
	cfg.Persistence = persistence.Persistence{
		Workflows: persistence.NewInMemoryStore(),
		Instances: mstore.NewMongoInstanceStore(client, "", ""),
	}
	return engine.NewEngineWithConfig(cfg)
}

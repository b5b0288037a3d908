package database

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

// leadCollection é o subconjunto de *mongo.Collection usado pelo repositório.
type leadCollection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
	InsertMany(ctx context.Context, documents any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error)
}

// collectionCatalog é o subconjunto de *mongo.Database usado no bootstrap.
type collectionCatalog interface {
	ListCollectionNames(ctx context.Context, filter any, opts ...options.Lister[options.ListCollectionsOptions]) ([]string, error)
	CreateCollection(ctx context.Context, name string, opts ...options.Lister[options.CreateCollectionOptions]) error
}

// MongoLeadRepository guarda os leads numa coleção do DocumentDB/MongoDB.
type MongoLeadRepository struct {
	collection leadCollection
	logger     *zap.Logger
}

// NewMongoLeadRepository cria a coleção se ela ainda não existir.
func NewMongoLeadRepository(ctx context.Context, client *mongo.Client, database, collection string, logger *zap.Logger) (*MongoLeadRepository, error) {
	db := client.Database(database)

	if err := ensureCollection(ctx, db, collection, logger); err != nil {
		return nil, err
	}

	return &MongoLeadRepository{collection: db.Collection(collection), logger: logger}, nil
}

func ensureCollection(ctx context.Context, db collectionCatalog, collection string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return eris.Wrapf(err, "failed to list collections")
	}

	if slices.Contains(names, collection) {
		logger.Debug("collection already exists", zap.String("collection", collection))
		return nil
	}

	logger.Info("creating collection", zap.String("collection", collection))
	if err := db.CreateCollection(ctx, collection); err != nil {
		return eris.Wrapf(err, "failed to create collection %s", collection)
	}
	return nil
}

// FindAll devolve a coleção inteira sem o _id, na ordem natural do servidor.
func (r *MongoLeadRepository) FindAll(ctx context.Context) ([]entity.Lead, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query leads")
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, eris.Wrap(err, "failed to decode leads")
	}

	leads := make([]entity.Lead, 0, len(docs))
	for _, doc := range docs {
		leads = append(leads, entity.Lead(doc))
	}
	return leads, nil
}

func (r *MongoLeadRepository) InsertMany(ctx context.Context, leads []entity.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	res, err := r.collection.InsertMany(ctx, leads)
	if err != nil {
		return eris.Wrapf(err, "failed to insert %d leads", len(leads))
	}

	r.logger.Debug("leads inserted", zap.Int("count", len(res.InsertedIDs)))
	return nil
}

var _ entity.LeadRepositoryInterface = (*MongoLeadRepository)(nil)

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

// ============ MOCKS ============

type MockCollection struct {
	mock.Mock
}

func (m *MockCollection) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error) {
	args := m.Called(ctx, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mongo.Cursor), args.Error(1)
}

func (m *MockCollection) InsertMany(ctx context.Context, documents any, opts ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error) {
	args := m.Called(ctx, documents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mongo.InsertManyResult), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListCollectionNames(ctx context.Context, filter any, opts ...options.Lister[options.ListCollectionsOptions]) ([]string, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalog) CreateCollection(ctx context.Context, name string, opts ...options.Lister[options.CreateCollectionOptions]) error {
	return m.Called(ctx, name).Error(0)
}

// projectionOf aplica os setters das opções e devolve a projeção resultante.
func projectionOf(opts []options.Lister[options.FindOptions]) any {
	var fo options.FindOptions
	for _, o := range opts {
		for _, set := range o.List() {
			_ = set(&fo)
		}
	}
	return fo.Projection
}

// ============ TESTES ============

func TestMongoFindAllDropsIDAndKeepsOrder(t *testing.T) {
	coll := new(MockCollection)
	cursor, err := mongo.NewCursorFromDocuments([]any{
		bson.M{"Email": "a@x.com", "First_Name": "Ana"},
		bson.M{"Email": "b@x.com"},
	}, nil, nil)
	require.NoError(t, err)

	coll.On("Find", mock.Anything, bson.D{}, mock.MatchedBy(func(opts []options.Lister[options.FindOptions]) bool {
		return assert.ObjectsAreEqual(bson.D{{Key: "_id", Value: 0}}, projectionOf(opts))
	})).Return(cursor, nil)

	repo := &MongoLeadRepository{collection: coll, logger: zap.NewNop()}
	leads, err := repo.FindAll(context.Background())

	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "a@x.com", leads[0].Email())
	assert.Equal(t, "Ana", leads[0]["First_Name"])
	assert.Equal(t, "b@x.com", leads[1].Email())
	coll.AssertExpectations(t)
}

func TestMongoFindAllEmptyCollection(t *testing.T) {
	coll := new(MockCollection)
	cursor, err := mongo.NewCursorFromDocuments(nil, nil, nil)
	require.NoError(t, err)
	coll.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursor, nil)

	repo := &MongoLeadRepository{collection: coll, logger: zap.NewNop()}
	leads, err := repo.FindAll(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, leads)
	assert.Empty(t, leads)
}

func TestMongoFindAllQueryError(t *testing.T) {
	boom := errors.New("server selection timeout")
	coll := new(MockCollection)
	coll.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	repo := &MongoLeadRepository{collection: coll, logger: zap.NewNop()}
	_, err := repo.FindAll(context.Background())

	assert.ErrorIs(t, err, boom)
}

func TestMongoInsertManyEmptyIsNoop(t *testing.T) {
	coll := new(MockCollection)
	repo := &MongoLeadRepository{collection: coll, logger: zap.NewNop()}

	require.NoError(t, repo.InsertMany(context.Background(), nil))
	coll.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything)
}

func TestMongoInsertMany(t *testing.T) {
	leads := []entity.Lead{{"Email": "a@x.com"}, {"Email": "b@x.com"}}
	coll := new(MockCollection)
	coll.On("InsertMany", mock.Anything, leads).
		Return(&mongo.InsertManyResult{InsertedIDs: []any{1, 2}}, nil)

	repo := &MongoLeadRepository{collection: coll, logger: zap.NewNop()}

	require.NoError(t, repo.InsertMany(context.Background(), leads))
	coll.AssertExpectations(t)
}

func TestMongoInsertManyError(t *testing.T) {
	boom := errors.New("E11000 duplicate key")
	coll := new(MockCollection)
	coll.On("InsertMany", mock.Anything, mock.Anything).Return(nil, boom)

	repo := &MongoLeadRepository{collection: coll, logger: zap.NewNop()}
	err := repo.InsertMany(context.Background(), []entity.Lead{{"Email": "a@x.com"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to insert 1 leads")
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	db := new(MockCatalog)
	db.On("ListCollectionNames", mock.Anything, bson.D{}).Return([]string{"other"}, nil)
	db.On("CreateCollection", mock.Anything, "leads").Return(nil)

	require.NoError(t, ensureCollection(context.Background(), db, "leads", zap.NewNop()))
	db.AssertExpectations(t)
}

func TestEnsureCollectionKeepsExisting(t *testing.T) {
	db := new(MockCatalog)
	db.On("ListCollectionNames", mock.Anything, bson.D{}).Return([]string{"leads"}, nil)

	require.NoError(t, ensureCollection(context.Background(), db, "leads", zap.NewNop()))
	db.AssertNotCalled(t, "CreateCollection", mock.Anything, mock.Anything)
}

func TestEnsureCollectionPropagatesErrors(t *testing.T) {
	db := new(MockCatalog)
	db.On("ListCollectionNames", mock.Anything, mock.Anything).Return(nil, errors.New("not authorized"))
	assert.Error(t, ensureCollection(context.Background(), db, "leads", zap.NewNop()))

	db = new(MockCatalog)
	db.On("ListCollectionNames", mock.Anything, mock.Anything).Return([]string{}, nil)
	db.On("CreateCollection", mock.Anything, "leads").Return(errors.New("quota"))
	err := ensureCollection(context.Background(), db, "leads", zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create collection leads")
}

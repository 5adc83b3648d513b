package mongo

import (
	"context"
	"time"

	"facemark.io/infrastructure/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (repo *MongoRepository[T]) CreateOne(ctx context.Context, payload T) (*T, error) {
	parsed := payload.ParseModel().(*T)
	c, cancel := repo.prepareCtx(ctx)
	defer cancel()

	_, err := repo.Model.InsertOne(c, parsed)
	if err != nil {
		logger.Error("error creating document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	return parsed, nil
}

// FindOneByFilter returns nil, nil when no document matches.
func (repo *MongoRepository[T]) FindOneByFilter(filter map[string]interface{}, opts ...FindOptions) (*T, error) {
	c, cancel := repo.prepareCtx(nil)
	defer cancel()

	findOpts := options.FindOne()
	if len(opts) > 0 && opts[0].Sort != nil {
		findOpts.SetSort(*opts[0].Sort)
	}
	if len(opts) > 0 && opts[0].Projection != nil {
		findOpts.SetProjection(*opts[0].Projection)
	}

	var result T
	err := repo.Model.FindOne(c, filter, findOpts).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		logger.Error("error finding document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}
	return &result, nil
}

func (repo *MongoRepository[T]) FindMany(filter map[string]interface{}, opts ...FindOptions) (*[]T, error) {
	c, cancel := repo.prepareCtx(nil)
	defer cancel()

	findOpts := options.Find()
	if len(opts) > 0 {
		if opts[0].Sort != nil {
			findOpts.SetSort(*opts[0].Sort)
		}
		if opts[0].Limit != nil {
			findOpts.SetLimit(*opts[0].Limit)
		}
		if opts[0].Skip != nil {
			findOpts.SetSkip(*opts[0].Skip)
		}
	}

	cursor, err := repo.Model.Find(c, filter, findOpts)
	if err != nil {
		logger.Error("error finding documents", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return nil, err
	}

	results := []T{}
	if err := cursor.All(c, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

func (repo *MongoRepository[T]) UpdatePartialByFilter(ctx context.Context, filter map[string]interface{}, update map[string]interface{}) (bool, error) {
	c, cancel := repo.prepareCtx(ctx)
	defer cancel()

	result, err := repo.Model.UpdateOne(c, filter, map[string]interface{}{"$set": update})
	if err != nil {
		logger.Error("error updating document", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		}, logger.LoggerOptions{
			Key:  "collection",
			Data: repo.Model.Name(),
		})
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

func (repo *MongoRepository[T]) CountDocs(filter map[string]interface{}) (int64, error) {
	c, cancel := repo.prepareCtx(nil)
	defer cancel()
	return repo.Model.CountDocuments(c, filter)
}

func (repo *MongoRepository[T]) prepareCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, 15*time.Second)
}

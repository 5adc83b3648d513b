package datastore

import (
	"context"
	"os"
	"time"

	"facemark.io/infrastructure/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	EmployeeModel      *mongo.Collection
	AttendanceLogModel *mongo.Collection

	client *mongo.Client
)

func ConnectToDatabase() {
	connectMongo()
}

func connectMongo() *context.CancelFunc {
	url := os.Getenv("DB_URL")

	if url == "" {
		logger.Error("mongo url missing")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)

	clientOpts := options.Client().ApplyURI(url)
	clientOpts.SetMinPoolSize(2)
	clientOpts.SetMaxPoolSize(5)

	var err error
	client, err = mongo.Connect(ctx, clientOpts)

	if err != nil {
		logger.Warning("an error occured while starting the database", logger.LoggerOptions{Key: "error", Data: err})
		return &cancel
	}

	db := client.Database(os.Getenv("DB_NAME"))
	setUpIndexes(ctx, db)

	logger.Info("connected to mongodb successfully")
	return &cancel
}

// Set up the indexes for the database
func setUpIndexes(ctx context.Context, db *mongo.Database) {
	EmployeeModel = db.Collection("Employees")
	EmployeeModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "remoteKey", Value: 1}},
		Options: options.Index(),
	}, {
		Keys:    bson.D{{Key: "active", Value: 1}},
		Options: options.Index(),
	}})

	AttendanceLogModel = db.Collection("AttendanceLogs")
	AttendanceLogModel.Indexes().CreateMany(ctx, []mongo.IndexModel{{
		Keys:    bson.D{{Key: "employeeID", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index(),
	}, {
		Keys:    bson.D{{Key: "synced", Value: 1}},
		Options: options.Index(),
	}})

	logger.Info("mongodb indexes set up successfully")
}

func CleanUp() {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Error("error disconnecting from mongodb", logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
	}
}

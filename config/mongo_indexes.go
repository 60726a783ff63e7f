package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "voxprep"
	}
	db := MongoClient.Database(dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	interviews := db.Collection("interviews")
	_, err := interviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "interview_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_interview_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_user_created"),
		},
		// Serves the latest-finalized browse query
		{
			Keys:    bson.D{{Key: "finalized", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_finalized_created"),
		},
	})
	if err != nil {
		return err
	}

	feedback := db.Collection("feedback")
	_, err = feedback.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "feedback_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_feedback_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "interview_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetName("by_interview_user"),
		},
	})
	return err
}

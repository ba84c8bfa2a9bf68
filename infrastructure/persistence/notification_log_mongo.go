package persistence

import (
	"context"
	"errors"

	"publish-scheduler/domain/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var errMongoUnavailable = errors.New("mongo notification log not configured")

// NotificationLogMongo keeps an audit trail of operator notifications.
type NotificationLogMongo struct {
	collection *mongo.Collection
}

func NewNotificationLogMongo(client *mongo.Client, database string) *NotificationLogMongo {
	if client == nil {
		return &NotificationLogMongo{}
	}
	return &NotificationLogMongo{collection: client.Database(database).Collection("notifications")}
}

func (l *NotificationLogMongo) Save(ctx context.Context, record *model.NotificationRecord) error {
	if l.collection == nil {
		return errMongoUnavailable
	}
	_, err := l.collection.InsertOne(ctx, record)
	return err
}

// Recent returns the latest notifications, newest first.
func (l *NotificationLogMongo) Recent(ctx context.Context, limit int64) ([]model.NotificationRecord, error) {
	if l.collection == nil {
		return nil, errMongoUnavailable
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := l.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []model.NotificationRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

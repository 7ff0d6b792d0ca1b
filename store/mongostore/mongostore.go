package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"wanderwise/models"
	"wanderwise/store"
)

const usersCollection = "users"

type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ store.Store = (*MongoStore)(nil)

// New connects to MongoDB, verifies the connection and ensures indexes.
func New(ctx context.Context, uri, database string, logger *zap.Logger) (*MongoStore, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).SetStrict(true).SetDeprecationErrors(true)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	logger.Info("connected to mongodb", zap.String("database", database))

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(usersCollection),
		logger:     logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "refresh_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.Trips == nil {
		user.Trips = []models.Trip{}
	}
	if _, err := s.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user in database: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, store.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"refresh_token": token})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	update := bson.M{
		"$set": bson.M{"refresh_token": token, "updated_at": time.Now()},
	}
	if token == "" {
		update = bson.M{
			"$unset": bson.M{"refresh_token": ""},
			"$set":   bson.M{"updated_at": time.Now()},
		}
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

// AppendTrip pushes the trip and marks it active in a single update.
func (s *MongoStore) AppendTrip(ctx context.Context, userID string, trip *models.Trip) error {
	if trip.ChatHistory == nil {
		trip.ChatHistory = []models.Turn{}
	}
	update := bson.M{
		"$push": bson.M{"trips": trip},
		"$set":  bson.M{"active_trip_id": trip.ID, "updated_at": time.Now()},
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to append trip: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrUserNotFound
	}
	s.logger.Debug("trip appended", zap.String("user_id", userID), zap.String("trip_id", trip.ID))
	return nil
}

func (s *MongoStore) InitChatHistory(ctx context.Context, userID, tripID string, turn models.Turn) (bool, error) {
	filter := bson.M{
		"_id": userID,
		"trips": bson.M{"$elemMatch": bson.M{
			"trip_id": tripID,
			"$or": bson.A{
				bson.M{"chat_history": bson.M{"$size": 0}},
				bson.M{"chat_history": bson.M{"$exists": false}},
			},
		}},
	}
	update := bson.M{"$push": bson.M{"trips.$.chat_history": turn}}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to initialise chat history: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if err := s.tripExists(ctx, userID, tripID); err != nil {
		return false, err
	}
	return false, nil
}

// AppendTurns pushes all turns in one update so they land adjacently or not at all.
func (s *MongoStore) AppendTurns(ctx context.Context, userID, tripID string, turns ...models.Turn) error {
	filter := bson.M{"_id": userID, "trips.trip_id": tripID}
	update := bson.M{"$push": bson.M{"trips.$.chat_history": bson.M{"$each": turns}}}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append chat turns: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrTripNotFound
	}
	return nil
}

func (s *MongoStore) tripExists(ctx context.Context, userID, tripID string) error {
	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": userID, "trips.trip_id": tripID})
	if err != nil {
		return fmt.Errorf("failed to look up trip: %w", err)
	}
	if n == 0 {
		return store.ErrTripNotFound
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

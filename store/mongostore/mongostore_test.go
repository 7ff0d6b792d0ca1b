package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"

	"wanderwise/models"
	"wanderwise/store"
)

func newMockStore(mt *mtest.T) *MongoStore {
	return &MongoStore{client: mt.Client, collection: mt.Coll, logger: zap.NewNop()}
}

func updated(matched int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: matched}, bson.E{Key: "nModified", Value: matched})
}

func countResult(mt *mtest.T, n int) bson.D {
	ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func TestInitChatHistory(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	greeting := models.Turn{Role: models.RoleAssistant, Message: "Hello!", Timestamp: time.Now()}

	mt.Run("Pushes Into Empty History", func(mt *mtest.T) {
		mt.AddMockResponses(updated(1))
		pushed, err := newMockStore(mt).InitChatHistory(context.Background(), "u1", "t1", greeting)
		if err != nil {
			mt.Fatal(err)
		}
		if !pushed {
			mt.Error("Expected greeting to be pushed")
		}
		cmd := mt.GetStartedEvent().Command
		if got := cmd.Lookup("updates", "0", "q", "trips", "$elemMatch", "trip_id").StringValue(); got != "t1" {
			mt.Errorf("Expected filter on trip t1, got %q", got)
		}
		if got := cmd.Lookup("updates", "0", "u", "$push", "trips.$.chat_history", "message").StringValue(); got != "Hello!" {
			mt.Errorf("Expected greeting pushed into the matched trip, got %q", got)
		}
	})

	mt.Run("History Already Present", func(mt *mtest.T) {
		mt.AddMockResponses(updated(0), countResult(mt, 1))
		pushed, err := newMockStore(mt).InitChatHistory(context.Background(), "u1", "t1", greeting)
		if err != nil {
			mt.Fatal(err)
		}
		if pushed {
			mt.Error("Expected no push when history exists")
		}
	})

	mt.Run("Unknown Trip", func(mt *mtest.T) {
		mt.AddMockResponses(updated(0), countResult(mt, 0))
		_, err := newMockStore(mt).InitChatHistory(context.Background(), "u1", "missing", greeting)
		if !errors.Is(err, store.ErrTripNotFound) {
			mt.Errorf("Expected ErrTripNotFound, got %v", err)
		}
	})
}

func TestAppendTurns(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Now()
	turns := []models.Turn{
		{Role: models.RoleUser, Message: "Any food tips?", Timestamp: now},
		{Role: models.RoleAssistant, Message: "Try the pasteis de nata.", Timestamp: now},
	}

	mt.Run("Single Update", func(mt *mtest.T) {
		mt.AddMockResponses(updated(1))
		if err := newMockStore(mt).AppendTurns(context.Background(), "u1", "t1", turns...); err != nil {
			mt.Fatal(err)
		}
		started := mt.GetAllStartedEvents()
		if len(started) != 1 || started[0].CommandName != "update" {
			mt.Fatalf("Expected one update command, got %d events", len(started))
		}
		cmd := started[0].Command
		if got := cmd.Lookup("updates", "0", "q", "trips.trip_id").StringValue(); got != "t1" {
			mt.Errorf("Expected filter on trip t1, got %q", got)
		}
		each, err := cmd.Lookup("updates", "0", "u", "$push", "trips.$.chat_history", "$each").Array().Values()
		if err != nil {
			mt.Fatal(err)
		}
		if len(each) != 2 {
			mt.Fatalf("Expected 2 turns in $each, got %d", len(each))
		}
		if got := each[0].Document().Lookup("message").StringValue(); got != "Any food tips?" {
			mt.Errorf("Expected user turn first, got %q", got)
		}
	})

	mt.Run("Unknown Trip", func(mt *mtest.T) {
		mt.AddMockResponses(updated(0))
		err := newMockStore(mt).AppendTurns(context.Background(), "u1", "missing", turns...)
		if !errors.Is(err, store.ErrTripNotFound) {
			mt.Errorf("Expected ErrTripNotFound, got %v", err)
		}
	})
}

func TestAppendTrip(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("Marks Active", func(mt *mtest.T) {
		mt.AddMockResponses(updated(1))
		trip := &models.Trip{ID: "t2"}
		if err := newMockStore(mt).AppendTrip(context.Background(), "u1", trip); err != nil {
			mt.Fatal(err)
		}
		if trip.ChatHistory == nil {
			mt.Error("Expected chat history initialised to an empty list")
		}
		cmd := mt.GetStartedEvent().Command
		if got := cmd.Lookup("updates", "0", "u", "$set", "active_trip_id").StringValue(); got != "t2" {
			mt.Errorf("Expected active_trip_id t2, got %q", got)
		}
	})

	mt.Run("Unknown User", func(mt *mtest.T) {
		mt.AddMockResponses(updated(0))
		err := newMockStore(mt).AppendTrip(context.Background(), "nobody", &models.Trip{ID: "t1"})
		if !errors.Is(err, store.ErrUserNotFound) {
			mt.Errorf("Expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestSetRefreshToken(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	tests := []struct {
		name    string
		token   string
		matched int
		op      string
		wantErr error
	}{
		{"Set", "refresh-1", 1, "$set", nil},
		{"Clear", "", 1, "$unset", nil},
		{"Unknown User", "refresh-1", 0, "$set", store.ErrUserNotFound},
	}
	for _, tt := range tests {
		mt.Run(tt.name, func(mt *mtest.T) {
			mt.AddMockResponses(updated(tt.matched))
			err := newMockStore(mt).SetRefreshToken(context.Background(), "u1", tt.token)
			if !errors.Is(err, tt.wantErr) {
				mt.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			cmd := mt.GetStartedEvent().Command
			if _, lerr := cmd.LookupErr("updates", "0", "u", tt.op, "refresh_token"); lerr != nil {
				mt.Errorf("Expected %s on refresh_token: %v", tt.op, lerr)
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("Inserted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		user := &models.User{ID: "u1", Email: "asha@example.com"}
		if err := newMockStore(mt).CreateUser(context.Background(), user); err != nil {
			mt.Fatal(err)
		}
		if user.Trips == nil {
			mt.Error("Expected trips initialised to an empty list")
		}
	})

	mt.Run("Duplicate Email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))
		err := newMockStore(mt).CreateUser(context.Background(), &models.User{ID: "u2", Email: "asha@example.com"})
		if !errors.Is(err, store.ErrDuplicateUser) {
			mt.Errorf("Expected ErrDuplicateUser, got %v", err)
		}
	})
}

func TestGetUser(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("Found", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "email", Value: "asha@example.com"},
			{Key: "trips", Value: bson.A{bson.D{{Key: "trip_id", Value: "t1"}}}},
			{Key: "active_trip_id", Value: "t1"},
		}))
		user, err := newMockStore(mt).GetUserByEmail(context.Background(), "asha@example.com")
		if err != nil {
			mt.Fatal(err)
		}
		if user.ID != "u1" || len(user.Trips) != 1 || user.ActiveTrip() == nil {
			mt.Errorf("Unexpected user %+v", user)
		}
	})

	mt.Run("Missing", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		_, err := newMockStore(mt).GetUserByEmail(context.Background(), "nobody@example.com")
		if !errors.Is(err, store.ErrUserNotFound) {
			mt.Errorf("Expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("Empty Refresh Token", func(mt *mtest.T) {
		_, err := newMockStore(mt).GetUserByRefreshToken(context.Background(), "")
		if !errors.Is(err, store.ErrUserNotFound) {
			mt.Errorf("Expected ErrUserNotFound, got %v", err)
		}
		if len(mt.GetAllStartedEvents()) != 0 {
			mt.Error("Expected no query for an empty token")
		}
	})
}

// Package mongodb implements storage.Store on the official Mongo driver.
package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
)

const opTimeout = 5 * time.Second

// Store holds the Mongo client and collection handles.
type Store struct {
	client       *mongo.Client
	users        *mongo.Collection
	groups       *mongo.Collection
	transactions *mongo.Collection
}

// New connects to MongoDB, pings it and prepares the collections and indexes.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	s := &Store{
		client:       client,
		users:        db.Collection("users"),
		groups:       db.Collection("groups"),
		transactions: db.Collection("transactions"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = s.groups.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"invite_token": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"members": 1}},
		{Keys: bson.M{"contributions.reference": 1}},
	})
	if err != nil {
		return err
	}

	// The unique reference index is what makes InsertTransaction idempotent.
	_, err = s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"reference": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperr.New(apperr.Conflict, "email already registered")
		}
		return "", err
	}
	return user.ID.Hex(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.New(apperr.InvalidInput, "invalid user id %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": objID}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	projection := bson.D{{Key: "password", Value: 0}}
	cur, err := s.users.Find(ctx, bson.D{}, options.Find().SetProjection(projection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SaveRecipientCode(ctx context.Context, userID, key, code string) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.New(apperr.InvalidInput, "invalid user id %q", userID)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": objID},
		bson.M{"$set": bson.M{"recipient_codes." + key: code}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	group.ID = primitive.NewObjectID()
	group.Version = 1
	group.CreatedAt = time.Now()
	group.UpdatedAt = group.CreatedAt
	_, err := s.groups.InsertOne(ctx, group)
	return err
}

func (s *Store) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.New(apperr.InvalidInput, "invalid group id %q", id)
	}
	return s.findGroup(ctx, bson.M{"_id": objID})
}

func (s *Store) GetGroupByInviteToken(ctx context.Context, token string) (*models.Group, error) {
	return s.findGroup(ctx, bson.M{"invite_token": token})
}

func (s *Store) FindGroupByContributionReference(ctx context.Context, ref string) (*models.Group, error) {
	return s.findGroup(ctx, bson.M{"contributions.reference": ref})
}

func (s *Store) findGroup(ctx context.Context, filter bson.M) (*models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var group models.Group
	if err := s.groups.FindOne(ctx, filter).Decode(&group); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.New(apperr.NotFound, "group not found")
		}
		return nil, err
	}
	return &group, nil
}

func (s *Store) ListGroupsByMember(ctx context.Context, userID string) ([]models.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.groups.Find(ctx, bson.M{"members": userID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// UpdateGroup replaces the document only if the version the caller read is
// still current, then bumps it. A lost race surfaces as Conflict so the
// service layer can re-read and re-apply.
func (s *Store) UpdateGroup(ctx context.Context, group *models.Group) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	readVersion := group.Version
	group.Version++
	group.UpdatedAt = time.Now()

	res, err := s.groups.ReplaceOne(ctx,
		bson.M{"_id": group.ID, "version": readVersion}, group)
	if err != nil {
		group.Version = readVersion
		return err
	}
	if res.MatchedCount == 0 {
		group.Version = readVersion
		return apperr.New(apperr.Conflict, "group was modified concurrently")
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.New(apperr.InvalidInput, "invalid group id %q", id)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.groups.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.NotFound, "group not found")
	}
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, txn *models.Transaction) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	txn.CreatedAt = time.Now()
	txn.UpdatedAt = txn.CreatedAt
	if _, err := s.transactions.InsertOne(ctx, txn); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, reference, status string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.transactions.UpdateOne(ctx, bson.M{"reference": reference},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.NotFound, "transaction %q not found", reference)
	}
	return nil
}

func (s *Store) ListTransactionsByGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	return s.listTransactions(ctx, bson.M{"group_id": groupID})
}

func (s *Store) ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.listTransactions(ctx, bson.M{"user_id": userID})
}

func (s *Store) listTransactions(ctx context.Context, filter bson.M) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.transactions.Find(ctx, filter,
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var txns []models.Transaction
	if err := cur.All(ctx, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

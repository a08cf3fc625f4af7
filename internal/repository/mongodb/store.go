// Package mongodb implements storage.Store on MongoDB
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"familytodo/internal/models"
	"familytodo/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	defaultDatabase = "todos_db"

	usersCollection       = "users"
	familiesCollection    = "families"
	todosCollection       = "todos"
	familyTodosCollection = "familytodos"

	snapshotVersion = 1
)

// Store is the MongoDB implementation of storage.Store
type Store struct {
	client      *mongo.Client
	users       *mongo.Collection
	families    *mongo.Collection
	todos       *mongo.Collection
	familyTodos *mongo.Collection
}

var _ storage.Store = (*Store)(nil)

// Open connects to uri, verifies the connection and ensures indexes. The
// database name comes from the URI path.
func Open(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid mongo uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:      client,
		users:       db.Collection(usersCollection),
		families:    db.Collection(familiesCollection),
		todos:       db.Collection(todosCollection),
		familyTodos: db.Collection(familyTodosCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "provider", Value: 1}, {Key: "externalId", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"externalId": bson.M{"$exists": true}}),
			},
		}},
		{s.families, []mongo.IndexModel{
			{Keys: bson.D{{Key: "referralCode", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "members", Value: 1}}},
		}},
		{s.todos, []mongo.IndexModel{
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{s.familyTodos, []mongo.IndexModel{
			{Keys: bson.D{{Key: "family", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
	}

	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateMany(ctx, ix.models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return storage.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return storage.ErrDuplicate
	default:
		return err
	}
}

// Users

// CreateUser inserts a new user document
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	if _, err := s.users.InsertOne(ctx, newUserDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *Store) GetUserByExternalID(ctx context.Context, provider, subject string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"provider": provider, "externalId": subject})
}

// GetUsersByIDs loads several users keyed by id
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, doc := range docs {
		users[doc.ID] = doc.model()
	}
	return users, nil
}

// LinkExternalIdentity attaches a provider subject to an existing account
func (s *Store) LinkExternalIdentity(ctx context.Context, userID, provider, subject, displayName, avatar string) error {
	set := bson.M{"provider": provider, "externalId": subject, "updatedAt": now()}
	if displayName != "" {
		set["displayName"] = displayName
	}
	if avatar != "" {
		set["avatar"] = avatar
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to link external identity: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetUserFamily updates or clears the family back-reference
func (s *Store) SetUserFamily(ctx context.Context, userID, familyID string) error {
	update := bson.M{"$set": bson.M{"family": familyID, "updatedAt": now()}}
	if familyID == "" {
		update = bson.M{"$unset": bson.M{"family": ""}, "$set": bson.M{"updatedAt": now()}}
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to set user family: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Families

// CreateFamily inserts the family with its initial member set
func (s *Store) CreateFamily(ctx context.Context, family *models.Family) error {
	if family.CreatedAt.IsZero() {
		family.CreatedAt = now()
	}
	if family.UpdatedAt.IsZero() {
		family.UpdatedAt = family.CreatedAt
	}
	if _, err := s.families.InsertOne(ctx, newFamilyDoc(family)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

func (s *Store) findFamily(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.Family, error) {
	var doc familyDoc
	if err := s.families.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return doc.model(), nil
}

func (s *Store) GetFamilyByID(ctx context.Context, id string) (*models.Family, error) {
	return s.findFamily(ctx, bson.M{"_id": id})
}

func (s *Store) GetFamilyByReferralCode(ctx context.Context, code string) (*models.Family, error) {
	return s.findFamily(ctx, bson.M{"referralCode": code})
}

// FindFamilyByMember returns the most recently changed family containing userID
func (s *Store) FindFamilyByMember(ctx context.Context, userID string) (*models.Family, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	return s.findFamily(ctx, bson.M{"members": userID}, opts)
}

// AddMember adds userID to the member set; repeated adds are no-ops
func (s *Store) AddMember(ctx context.Context, familyID, userID string) error {
	res, err := s.families.UpdateOne(ctx,
		bson.M{"_id": familyID},
		bson.M{"$addToSet": bson.M{"members": userID}, "$set": bson.M{"updatedAt": now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to add family member: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RemoveMember pulls userID from the member set
func (s *Store) RemoveMember(ctx context.Context, familyID, userID string) error {
	res, err := s.families.UpdateOne(ctx,
		bson.M{"_id": familyID, "members": userID},
		bson.M{"$pull": bson.M{"members": userID}, "$set": bson.M{"updatedAt": now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RemoveMemberElsewhere pulls userID from every family except keepFamilyID
func (s *Store) RemoveMemberElsewhere(ctx context.Context, userID, keepFamilyID string) error {
	_, err := s.families.UpdateMany(ctx,
		bson.M{"members": userID, "_id": bson.M{"$ne": keepFamilyID}},
		bson.M{"$pull": bson.M{"members": userID}, "$set": bson.M{"updatedAt": now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove stale memberships: %w", err)
	}
	return nil
}

// Tasks

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// ListTodos returns the owner's tasks, newest first
func (s *Store) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	cur, err := s.todos.Find(ctx, bson.M{"user": ownerID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	var docs []todoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode todos: %w", err)
	}
	todos := make([]models.Todo, 0, len(docs))
	for _, doc := range docs {
		todos = append(todos, doc.todo())
	}
	return todos, nil
}

func (s *Store) CreateTodo(ctx context.Context, todo *models.Todo) error {
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = todo.CreatedAt
	}
	if _, err := s.todos.InsertOne(ctx, newTodoDoc(todo)); err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

func (s *Store) GetTodo(ctx context.Context, id, ownerID string) (*models.Todo, error) {
	var doc todoDoc
	if err := s.todos.FindOne(ctx, bson.M{"_id": id, "user": ownerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	todo := doc.todo()
	return &todo, nil
}

func (s *Store) UpdateTodo(ctx context.Context, id, ownerID string, patch models.TodoPatch) (*models.Todo, error) {
	var doc todoDoc
	err := s.todos.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user": ownerID},
		patchUpdate(patch),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	todo := doc.todo()
	return &todo, nil
}

func (s *Store) DeleteTodo(ctx context.Context, id, ownerID string) error {
	res, err := s.todos.DeleteOne(ctx, bson.M{"_id": id, "user": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// patchUpdate builds a $set/$unset document touching only the patched fields
func patchUpdate(patch models.TodoPatch) bson.M {
	set := bson.M{"updatedAt": now()}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Description != nil {
		set["describtion"] = *patch.Description
	}
	if patch.Deadline != nil {
		set["deadline"] = patch.Deadline.UTC()
	}
	if patch.Done != nil {
		set["done"] = *patch.Done
	}

	update := bson.M{"$set": set}
	if patch.ClearDeadline && patch.Deadline == nil {
		update["$unset"] = bson.M{"deadline": ""}
	}
	return update
}

// Family tasks

func (s *Store) ListFamilyTodos(ctx context.Context, familyID string) ([]models.FamilyTodo, error) {
	cur, err := s.familyTodos.Find(ctx, bson.M{"family": familyID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("failed to query family todos: %w", err)
	}
	var docs []todoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode family todos: %w", err)
	}
	todos := make([]models.FamilyTodo, 0, len(docs))
	for _, doc := range docs {
		todos = append(todos, doc.familyTodo())
	}
	return todos, nil
}

func (s *Store) CreateFamilyTodo(ctx context.Context, todo *models.FamilyTodo) error {
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = now()
	}
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = todo.CreatedAt
	}
	if _, err := s.familyTodos.InsertOne(ctx, newFamilyTodoDoc(todo)); err != nil {
		return fmt.Errorf("failed to create family todo: %w", err)
	}
	return nil
}

func (s *Store) UpdateFamilyTodo(ctx context.Context, familyID, todoID string, patch models.TodoPatch) (*models.FamilyTodo, error) {
	var doc todoDoc
	err := s.familyTodos.FindOneAndUpdate(ctx,
		bson.M{"_id": todoID, "family": familyID},
		patchUpdate(patch),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update family todo: %w", err)
	}
	todo := doc.familyTodo()
	return &todo, nil
}

func (s *Store) DeleteFamilyTodo(ctx context.Context, familyID, todoID string) error {
	res, err := s.familyTodos.DeleteOne(ctx, bson.M{"_id": todoID, "family": familyID})
	if err != nil {
		return fmt.Errorf("failed to delete family todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

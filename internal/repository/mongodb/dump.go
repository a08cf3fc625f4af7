package mongodb

import (
	"context"
	"fmt"
	"time"

	"familytodo/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Dump exports every collection
func (s *Store) Dump(ctx context.Context) (*storage.Snapshot, error) {
	snapshot := &storage.Snapshot{Version: snapshotVersion, ExportedAt: time.Now().UTC()}
	byCreation := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	var users []userDoc
	if err := findAll(ctx, s.users, byCreation, &users); err != nil {
		return nil, err
	}
	for _, doc := range users {
		snapshot.Users = append(snapshot.Users, *doc.model())
	}

	var families []familyDoc
	if err := findAll(ctx, s.families, byCreation, &families); err != nil {
		return nil, err
	}
	for _, doc := range families {
		snapshot.Families = append(snapshot.Families, *doc.model())
	}

	var todos []todoDoc
	if err := findAll(ctx, s.todos, byCreation, &todos); err != nil {
		return nil, err
	}
	for _, doc := range todos {
		snapshot.Todos = append(snapshot.Todos, doc.todo())
	}

	var familyTodos []todoDoc
	if err := findAll(ctx, s.familyTodos, byCreation, &familyTodos); err != nil {
		return nil, err
	}
	for _, doc := range familyTodos {
		snapshot.FamilyTodos = append(snapshot.FamilyTodos, doc.familyTodo())
	}

	return snapshot, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, opts *options.FindOptions, out interface{}) error {
	cur, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", coll.Name(), err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return nil
}

// Restore inserts every record of the snapshot. Standalone servers have no
// multi-document transactions, so a failure part way leaves earlier
// collections imported.
func (s *Store) Restore(ctx context.Context, snapshot *storage.Snapshot, clear bool) error {
	if clear {
		for _, coll := range []*mongo.Collection{s.familyTodos, s.todos, s.families, s.users} {
			if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
				return fmt.Errorf("failed to clear %s: %w", coll.Name(), err)
			}
		}
	}

	docs := make([]interface{}, 0, len(snapshot.Users))
	for i := range snapshot.Users {
		docs = append(docs, newUserDoc(&snapshot.Users[i]))
	}
	if err := insertAll(ctx, s.users, docs); err != nil {
		return err
	}

	docs = make([]interface{}, 0, len(snapshot.Families))
	for i := range snapshot.Families {
		docs = append(docs, newFamilyDoc(&snapshot.Families[i]))
	}
	if err := insertAll(ctx, s.families, docs); err != nil {
		return err
	}

	docs = make([]interface{}, 0, len(snapshot.Todos))
	for i := range snapshot.Todos {
		docs = append(docs, newTodoDoc(&snapshot.Todos[i]))
	}
	if err := insertAll(ctx, s.todos, docs); err != nil {
		return err
	}

	docs = make([]interface{}, 0, len(snapshot.FamilyTodos))
	for i := range snapshot.FamilyTodos {
		docs = append(docs, newFamilyTodoDoc(&snapshot.FamilyTodos[i]))
	}
	return insertAll(ctx, s.familyTodos, docs)
}

func insertAll(ctx context.Context, coll *mongo.Collection, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to import %s: %w", coll.Name(), translate(err))
	}
	return nil
}

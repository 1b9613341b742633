package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/asaidimu/go-datamap/core/command"
	"github.com/asaidimu/go-datamap/core/mapping"
	"github.com/asaidimu/go-datamap/core/persistence"
	"github.com/asaidimu/go-datamap/core/query"
	"github.com/asaidimu/go-datamap/core/tracking"
	"github.com/asaidimu/go-datamap/sqlite"
)

const dbFileName = "user.db"

// User is a tracked entity stored in the users table.
type User struct {
	tracking.Tracker
	ID       int64  `db:"id,key,autoincrement"`
	Name     string `db:"name"`
	Email    string `db:"email"`
	Age      *int64 `db:"age"`
	IsActive bool   `db:"is_active"`
}

func (*User) DataItem() mapping.DataItem { return mapping.DataItem{TableName: "users"} }

func (u *User) SetName(v string)   { tracking.SetField(&u.Tracker, "Name", &u.Name, v) }
func (u *User) SetIsActive(v bool) { tracking.SetField(&u.Tracker, "IsActive", &u.IsActive, v) }

func newUser(name, email string, age int64, active bool) *User {
	u := &User{Name: name, Email: email, Age: &age, IsActive: active}
	u.MarkNew()
	return u
}

func main() {
	ctx := context.Background()

	// Remove the database file if it already exists to start fresh
	if err := os.Remove(dbFileName); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing database file %s: %v", dbFileName, err)
	}
	fmt.Printf("Starting fresh: removed existing %s (if any).\n", dbFileName)

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := sqlite.Open(ctx, sqlite.DriverCGO, dbFileName, logger)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer func() {
		if cErr := db.Close(); cErr != nil {
			log.Printf("Error closing database connection: %v", cErr)
		}
		fmt.Println("Database connection closed.")
	}()

	users, err := persistence.New[*User](db, &persistence.Options{Logger: logger.Named("users")})
	if err != nil {
		log.Fatalf("Failed to initialize persistence: %v", err)
	}
	fmt.Printf("Initialized persistence with the %s dialect.\n", users.Dialect().Name())

	schemas := sqlite.NewSchemaManager(db, logger, nil)
	if err := schemas.CreateTable(ctx, users, sqlite.Index{Fields: []string{"Email"}, Unique: true}); err != nil {
		log.Fatalf("Failed to create table 'users': %v", err)
	}
	fmt.Println("'users' table created successfully.")

	users.RegisterSubscription(persistence.RegisterSubscriptionOptions{
		Event: persistence.SaveSuccess,
		Callback: func(ctx context.Context, event persistence.Event) error {
			fmt.Printf("Saved to '%s': %v\n", event.Table, event.Context)
			return nil
		},
	})
	users.RegisterSubscription(persistence.RegisterSubscriptionOptions{
		Event: persistence.DeleteSuccess,
		Callback: func(ctx context.Context, event persistence.Event) error {
			fmt.Printf("Deleted from '%s'\n", event.Table)
			return nil
		},
	})

	fmt.Println("Inserting sample data...")
	list := tracking.NewList(
		newUser("Alice Smith", "alice@example.com", 30, true),
		newUser("Alice Smith", "alice2@example.com", 27, true),
		newUser("Alice Smith", "alice3@example.com", 28, false),
	)
	saved, err := users.SaveList(ctx, list)
	if err != nil {
		log.Fatalf("Failed to insert users: %v", err)
	}
	fmt.Printf("Inserted %d users.\n", saved)

	n, err := users.Delete(ctx, query.NewQueryBuilder().Where("Age").Lt(28).Build())
	if err != nil {
		log.Fatalf("Failed to delete users: %v", err)
	}
	fmt.Printf("Deleted %d users younger than 28.\n", n)

	alex, err := users.GetSingleItem(ctx, command.Filters{{Field: "Email", Value: "alice3@example.com"}})
	if err != nil {
		log.Fatalf("Failed to read user: %v", err)
	}
	alex.SetName("Alex Smith")
	alex.SetIsActive(true)
	if _, err := users.Save(ctx, alex); err != nil {
		log.Fatalf("Failed to update to Alex: %v", err)
	}

	// A concurrent writer changes Alex behind our back.
	stale, err := users.GetSingleItem(ctx, command.Filters{{Field: "Id", Value: alex.ID}})
	if err != nil {
		log.Fatalf("Failed to read user: %v", err)
	}
	if _, err := users.UpdateRows(ctx, map[string]any{"Name": "Alexander Smith"}, command.Filters{{Field: "Id", Value: alex.ID}}); err != nil {
		log.Fatalf("Failed to rename user: %v", err)
	}
	stale.SetName("Al Smith")
	if _, err := users.Save(ctx, stale); persistence.IsUpdateConflict(err) {
		conflicts, cErr := users.GetConflicts(ctx, stale)
		if cErr != nil {
			log.Fatalf("Failed to read conflicts: %v", cErr)
		}
		for _, c := range conflicts {
			fmt.Printf("Conflict on %s: loaded %v, stored %v, attempted %v\n", c.Field, c.Original, c.Current, c.Attempted)
		}
	} else if err != nil {
		log.Fatalf("Failed to save user: %v", err)
	}

	printUsers(ctx, users)

	err = users.Transact(ctx, func(tx *persistence.Adapter[*User]) error {
		if _, err := tx.Save(ctx, newUser("Bob Jones", "bob@example.com", 41, true)); err != nil {
			return err
		}
		count, err := tx.GetCount(ctx, nil)
		if err != nil {
			return err
		}
		fmt.Printf("Users inside the transaction: %d\n", count)
		return nil
	})
	if err != nil {
		log.Fatalf("Transaction failed: %v", err)
	}

	printUsers(ctx, users)

	fmt.Println("Dropping 'users' table...")
	if err := schemas.DropTable(ctx, users); err != nil {
		log.Fatalf("Failed to drop table: %v", err)
	}
	fmt.Println("Dropped 'users' table.")
}

func printUsers(ctx context.Context, users *persistence.Adapter[*User]) {
	rows, err := users.Find(ctx, query.NewQueryBuilder().OrderByAsc("Id").Build())
	if err != nil {
		log.Fatalf("Failed to read database: %v", err)
	}

	fmt.Println("-------------------------------------------------------------------")
	fmt.Printf("%-10s %-20s %-25s %-5s %-10s\n", "ID", "Name", "Email", "Age", "Active")
	fmt.Println("-------------------------------------------------------------------")
	for _, u := range rows {
		var age int64
		if u.Age != nil {
			age = *u.Age
		}
		fmt.Printf("%-10d %-20s %-25s %-5d %-10t\n", u.ID, u.Name, u.Email, age, u.IsActive)
	}
	fmt.Println("-------------------------------------------------------------------")
}

// Command admin manages the user roster from the command line.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"accessdesk/internal/config"
	"accessdesk/internal/database"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin list                              - List all users")
	fmt.Println("  admin create <username> <role>          - Create a user (password from ADMIN_NEW_PASSWORD)")
	fmt.Println("  admin show <user_id|username>           - Show one user")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)

	switch os.Args[1] {
	case "list":
		listUsers(ctx, users)

	case "create":
		if len(os.Args) < 4 {
			usage()
		}
		createUser(ctx, users, os.Args[2], os.Args[3])

	case "show":
		if len(os.Args) < 3 {
			usage()
		}
		showUser(ctx, users, os.Args[2])

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func listUsers(ctx context.Context, users repository.UserRepository) {
	list, err := users.List(ctx)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tCREATED")
	for _, u := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreatedAt.Format("2006-01-02"))
	}
	_ = w.Flush()
}

func createUser(ctx context.Context, users repository.UserRepository, username, rawRole string) {
	role, err := models.ParseRole(rawRole)
	if err != nil {
		log.Fatal(err)
	}
	password := os.Getenv("ADMIN_NEW_PASSWORD")
	if password == "" {
		log.Fatal("ADMIN_NEW_PASSWORD must be set")
	}

	u, err := service.NewUserService(users).Provision(ctx, username, password, role)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	fmt.Printf("Created %s %s (ID: %d)\n", u.Role, u.Username, u.ID)
}

func showUser(ctx context.Context, users repository.UserRepository, ref string) {
	var (
		u   *models.User
		err error
	)
	if id, perr := strconv.ParseUint(ref, 10, 32); perr == nil {
		u, err = users.GetByID(ctx, uint(id))
	} else {
		u, err = users.GetByUsername(ctx, ref)
	}
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			fmt.Printf("User %s not found\n", ref)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}
	fmt.Printf("ID: %d\nUsername: %s\nRole: %s\nCreated: %s\n",
		u.ID, u.Username, u.Role, u.CreatedAt.Format("2006-01-02 15:04:05"))
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/go-while/go-newsroom/internal/config"
	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/forms"
	"github.com/go-while/go-newsroom/internal/models"
	"github.com/go-while/go-newsroom/internal/newsroom"
	"github.com/go-while/go-newsroom/internal/slug"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	log.Printf("go-newsroom User Manager (version: %s)", config.AppVersion)
	var (
		createUser     = flag.Bool("create", false, "Create a new user")
		listUsers      = flag.Bool("list", false, "List all users")
		deleteUser     = flag.Bool("delete", false, "Delete a user")
		updateUser     = flag.Bool("update", false, "Update a user's password")
		grantRole      = flag.Bool("grant", false, "Grant -role to a user")
		revokeRole     = flag.Bool("revoke", false, "Revoke -role from a user")
		createCategory = flag.Bool("create-category", false, "Create a category")
		listCategories = flag.Bool("list-categories", false, "List all categories")
		registration   = flag.String("registration", "", "Turn self-registration on or off")

		email      = flag.String("email", "", "Email of the user")
		firstName  = flag.String("firstname", "", "First name for user creation")
		lastName   = flag.String("lastname", "", "Last name for user creation")
		journalist = flag.Bool("journalist", false, "Grant "+models.RoleJournalist+" on creation")
		role       = flag.String("role", models.RoleJournalist, "Role for -grant/-revoke")
		name       = flag.String("name", "", "Category display name")
		alias      = flag.String("alias", "", "Category alias (default: slug of -name)")

		dataDir  = flag.String("data", config.DefaultDataDir, "Directory of the sqlite3 database files")
		dbDriver = flag.String("dbdriver", config.DefaultDBDriver, "Database driver: sqlite3 or pgx")
		dbDSN    = flag.String("dsn", os.Getenv("NEWSROOM_DSN"), "Postgres connection string (pgx only)")
	)
	flag.Parse()

	if !*createUser && !*listUsers && !*deleteUser && !*updateUser && !*grantRole && !*revokeRole &&
		!*createCategory && !*listCategories && *registration == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -email jo@example.com -firstname Jo -lastname Doe -journalist\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -grant -email jo@example.com -role %s\n", os.Args[0], models.RoleJournalist)
		fmt.Fprintf(os.Stderr, "  %s -create-category -name \"Économie\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -registration off\n", os.Args[0])
		os.Exit(1)
	}

	dbConfig := database.DefaultDBConfig()
	dbConfig.Driver = *dbDriver
	dbConfig.DSN = *dbDSN
	dbConfig.DataDir = *dataDir
	db, err := database.OpenDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Printf("Using %s database", db.Driver())

	ctx := context.Background()
	switch {
	case *createUser:
		err = createNewUser(ctx, db, *email, *firstName, *lastName, *journalist)
	case *listUsers:
		err = listAllUsers(ctx, db)
	case *deleteUser:
		err = deleteExistingUser(ctx, db, *email)
	case *updateUser:
		err = updateUserPassword(ctx, db, *email)
	case *grantRole, *revokeRole:
		err = changeRole(ctx, db, *email, *role, *grantRole)
	case *createCategory:
		err = createNewCategory(ctx, db, *name, *alias)
	case *listCategories:
		err = listAllCategories(ctx, db)
	case *registration != "":
		err = setRegistration(ctx, db, *registration)
	}
	if serr := db.Shutdown(); serr != nil {
		log.Printf("Failed to shutdown database: %v", serr)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %v", err)
	}
	fmt.Println()

	if string(password) != string(confirmPassword) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(password) < 6 {
		return "", fmt.Errorf("password must be at least 6 characters long")
	}
	return string(password), nil
}

func createNewUser(ctx context.Context, db *database.Database, email, firstName, lastName string, journalist bool) error {
	password, err := readPassword("Enter password: ")
	if err != nil {
		return err
	}

	// Same validation and hashing as the registration page
	svc := newsroom.NewService(db, db, db, nil)
	user, fe, err := svc.RegisterUser(ctx, newsroom.NewUserDraft(), forms.RegistrationInput{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
		Submitted: true,
	})
	if err != nil {
		return err
	}
	if fe != nil {
		for field, msg := range fe {
			fmt.Fprintf(os.Stderr, "  -%s: %s\n", strings.ToLower(field), msg)
		}
		return fmt.Errorf("invalid user")
	}

	if journalist {
		if err := db.GrantRole(ctx, user.ID, models.RoleJournalist); err != nil {
			return fmt.Errorf("user created but failed to grant %s: %v", models.RoleJournalist, err)
		}
		fmt.Printf("✅ Granted %s to '%s'\n", models.RoleJournalist, user.Email)
	}
	fmt.Printf("✅ User '%s' created successfully (ID: %d)\n", user.Email, user.ID)
	return nil
}

func lookupUser(ctx context.Context, db *database.Database, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("-email is required")
	}
	user, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user '%s' not found", email)
	}
	return user, nil
}

func listAllUsers(ctx context.Context, db *database.Database) error {
	users, err := db.GetAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to get users: %v", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	fmt.Printf("Found %d users:\n\n", len(users))
	fmt.Printf("%-4s %-30s %-24s %-32s %s\n", "ID", "Email", "Name", "Roles", "Created")
	fmt.Printf("%-4s %-30s %-24s %-32s %s\n", "----", "-----", "----", "-----", "-------")
	for _, user := range users {
		fmt.Printf("%-4d %-30s %-24s %-32s %s\n",
			user.ID,
			truncate(user.Email, 30),
			truncate(user.DisplayName(), 24),
			truncate(strings.Join(user.Roles, ","), 32),
			user.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func deleteExistingUser(ctx context.Context, db *database.Database, email string) error {
	user, err := lookupUser(ctx, db, email)
	if err != nil {
		return err
	}

	fmt.Printf("Are you sure you want to delete user '%s' (ID: %d) and all their articles? [y/N]: ", user.Email, user.ID)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Println("User deletion cancelled")
		return nil
	}

	if err := db.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %v", err)
	}
	fmt.Printf("✅ User '%s' (ID: %d) deleted\n", user.Email, user.ID)
	return nil
}

func updateUserPassword(ctx context.Context, db *database.Database, email string) error {
	user, err := lookupUser(ctx, db, email)
	if err != nil {
		return err
	}
	password, err := readPassword(fmt.Sprintf("Enter new password for '%s': ", user.Email))
	if err != nil {
		return err
	}
	digest, err := newsroom.NewBcryptHasher(0).Hash(user, password)
	if err != nil {
		return err
	}
	if err := db.UpdateUserPassword(ctx, user.ID, digest); err != nil {
		return fmt.Errorf("failed to update password: %v", err)
	}
	fmt.Printf("✅ Password updated successfully for user '%s'\n", user.Email)
	return nil
}

func changeRole(ctx context.Context, db *database.Database, email, role string, grant bool) error {
	user, err := lookupUser(ctx, db, email)
	if err != nil {
		return err
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	switch role {
	case models.RoleUser, models.RoleJournalist, models.RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	if grant {
		err = db.GrantRole(ctx, user.ID, role)
	} else {
		err = db.RevokeRole(ctx, user.ID, role)
	}
	if err != nil {
		return fmt.Errorf("failed to change role: %v", err)
	}
	updated, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("role changed but failed to reload user: %v", err)
	}
	fmt.Printf("✅ '%s' now has roles %s\n", updated.Email, strings.Join(updated.Roles, ","))
	return nil
}

func createNewCategory(ctx context.Context, db *database.Database, name, alias string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("-name is required")
	}
	if alias == "" {
		alias = slug.Make(name)
	}
	if alias == "" {
		return fmt.Errorf("cannot derive an alias from %q, use -alias", name)
	}
	id, err := db.InsertCategory(ctx, &models.Category{Name: name, Alias: alias})
	if err != nil {
		return fmt.Errorf("failed to create category: %v", err)
	}
	fmt.Printf("✅ Category '%s' created (ID: %d, alias: %s)\n", name, id, alias)
	return nil
}

func listAllCategories(ctx context.Context, db *database.Database) error {
	cats, err := db.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to get categories: %v", err)
	}
	fmt.Printf("%-4s %-24s %s\n", "ID", "Name", "Alias")
	for _, c := range cats {
		fmt.Printf("%-4d %-24s %s\n", c.ID, truncate(c.Name, 24), c.Alias)
	}
	return nil
}

func setRegistration(ctx context.Context, db *database.Database, value string) error {
	var enabled bool
	switch strings.ToLower(value) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("-registration must be on or off")
	}
	if err := db.SetConfigBool(ctx, "registration_enabled", enabled); err != nil {
		return fmt.Errorf("failed to update registration setting: %v", err)
	}
	fmt.Printf("✅ Registration enabled: %t\n", enabled)
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

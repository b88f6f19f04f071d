package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"smy-nav-backend/internal/config"
)

type Agency struct {
	Name          string `yaml:"name"`
	Code          string `yaml:"code"`
	ContactPerson string `yaml:"contact_person"`
	Email         string `yaml:"email"`
	Phone         string `yaml:"phone"`
	Address       string `yaml:"address"`
}

type User struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
	Agency   string `yaml:"agency"` // agency code, required for agents
}

type SetupData struct {
	Agencies []Agency `yaml:"agencies"`
	Users    []User   `yaml:"users"`
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	setupFile := flag.String("data", "config/seed.yaml", "Path to seed data file")
	flag.Parse()

	setupData, err := readSetupFile(*setupFile)
	if err != nil {
		log.Fatalf("Failed to read setup file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("Connected to database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	if err := populateData(db, setupData); err != nil {
		log.Fatalf("Failed to populate data: %v", err)
	}
	log.Println("Seed data populated")
}

func readSetupFile(filename string) (*SetupData, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var setupData SetupData
	if err := yaml.Unmarshal(data, &setupData); err != nil {
		return nil, err
	}
	return &setupData, nil
}

// populateData inserts agencies then users in one transaction. Existing
// codes and usernames are left untouched so the seed can be re-run.
func populateData(db *sql.DB, data *SetupData) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	agencyIDs := map[string]int32{}
	for _, a := range data.Agencies {
		code := strings.ToUpper(strings.TrimSpace(a.Code))
		var id int32
		err := tx.QueryRow(`
			INSERT INTO agencies (name, code, contact_person, email, phone, address)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET updated_at = agencies.updated_at
			RETURNING id
		`, a.Name, code, a.ContactPerson, a.Email, a.Phone, a.Address).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create agency %s: %w", code, err)
		}
		agencyIDs[code] = id
		log.Printf("Agency %s ready with ID %d", code, id)
	}

	for _, u := range data.Users {
		var agencyID *int32
		if u.Agency != "" {
			id, ok := agencyIDs[strings.ToUpper(u.Agency)]
			if !ok {
				return fmt.Errorf("user %s references unknown agency %s", u.Username, u.Agency)
			}
			agencyID = &id
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Username, err)
		}

		res, err := tx.Exec(`
			INSERT INTO users (username, email, password_hash, full_name, role, agency_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (username) DO NOTHING
		`, u.Username, strings.ToLower(u.Email), string(hash), u.FullName, u.Role, agencyID)
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Username, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			log.Printf("User %s already exists, skipped", u.Username)
			continue
		}
		log.Printf("User %s created with role %s", u.Username, u.Role)
	}

	return tx.Commit()
}

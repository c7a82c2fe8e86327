// Command seed provisions the database schema and loads the initial pledges,
// the student roster, and a staff account. It is idempotent: rerunning it
// leaves existing rows untouched.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/pledgecam/pledgecam-api/pkg/config"
	"github.com/pledgecam/pledgecam-api/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS pledges (
    id          UUID PRIMARY KEY,
    pledge_code TEXT NOT NULL UNIQUE,
    pledge_text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS students (
    id                 UUID PRIMARY KEY,
    name               TEXT NOT NULL,
    grade              TEXT NOT NULL,
    pledge_code        TEXT NOT NULL REFERENCES pledges (pledge_code),
    favorite_celebrity TEXT,
    video_submitted    BOOLEAN NOT NULL DEFAULT FALSE,
    url                TEXT,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_grade_submitted
    ON students (grade, video_submitted);

CREATE TABLE IF NOT EXISTS admin_users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name     TEXT NOT NULL,
    active        BOOLEAN NOT NULL DEFAULT TRUE,
    last_login    TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var pledgeTexts = []string{
	"I pledge to be a responsible digital citizen and treat others with respect online.",
	"I pledge to stand up against cyberbullying and support those who are targeted.",
	"I pledge to think before I post and consider the impact of my words on others.",
	"I pledge to protect my privacy and respect the privacy of others online.",
}

var studentNames = []string{
	"Emma Smith", "Liam Johnson", "Olivia Brown", "Noah Davis", "Ava Wilson",
	"Ethan Moore", "Isabella Taylor", "Mason Anderson", "Sophia Thomas", "William Jackson",
	"Mia White", "James Harris", "Charlotte Martin", "Benjamin Thompson", "Amelia Garcia",
	"Lucas Martinez", "Harper Robinson", "Henry Clark", "Evelyn Rodriguez", "Alexander Lee",
	"Abigail Walker", "Michael Hall", "Emily Young", "Daniel Allen", "Elizabeth King",
	"Joseph Wright", "Sofia Lopez", "David Hill", "Victoria Scott", "Matthew Green",
	"Chloe Adams", "Andrew Baker", "Zoe Nelson", "Christopher Carter", "Penelope Mitchell",
	"Joshua Turner", "Grace Phillips", "Andrew Campbell", "Lily Morgan", "Ryan Murphy",
	"Hannah Cooper", "Nathan Rivera", "Aria Cook", "Samuel Reed", "Scarlett Morris",
	"John Richardson", "Madison Cox", "Owen Howard", "Layla Ward", "Gabriel Torres",
}

func main() {
	adminEmail := flag.String("admin-email", "staff@school.example", "staff login email")
	adminPassword := flag.String("admin-password", "", "staff login password (required to create the account)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	if err := seedPledges(ctx, db); err != nil {
		log.Fatalf("seed pledges: %v", err)
	}
	if err := seedStudents(ctx, db); err != nil {
		log.Fatalf("seed students: %v", err)
	}
	if *adminPassword != "" {
		if err := seedAdmin(ctx, db, *adminEmail, *adminPassword); err != nil {
			log.Fatalf("seed admin: %v", err)
		}
	}

	log.Println("seed complete")
}

func seedPledges(ctx context.Context, db *sqlx.DB) error {
	const query = `INSERT INTO pledges (id, pledge_code, pledge_text)
		VALUES ($1, $2, $3)
		ON CONFLICT (pledge_code) DO NOTHING`
	for i, text := range pledgeTexts {
		code := "P" + string(rune('1'+i))
		if _, err := db.ExecContext(ctx, query, uuid.NewString(), code, text); err != nil {
			return err
		}
	}
	return nil
}

// seedStudents loads the fifty-name roster, alternating grades and cycling
// through the four pledge codes. Names are the uniqueness key so reruns do
// not duplicate the roster.
func seedStudents(ctx context.Context, db *sqlx.DB) error {
	grades := []string{"7th", "8th"}
	const query = `INSERT INTO students (id, name, grade, pledge_code)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM students WHERE name = $2)`
	for i, name := range studentNames {
		grade := grades[i%2]
		code := "P" + string(rune('1'+i%4))
		if _, err := db.ExecContext(ctx, query, uuid.NewString(), name, grade, code); err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, db *sqlx.DB, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	const query = `INSERT INTO admin_users (id, email, password_hash, full_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING`
	_, err = db.ExecContext(ctx, query, uuid.NewString(), email, string(hash), "School Staff")
	return err
}

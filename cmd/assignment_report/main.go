package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"inventory/models"
)

var log = logrus.New()

func mustDBFromEnv() *gorm.DB {
	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// assignment_report prints the assignment history of one user for a month
// (YYYY-MM, UTC).
func main() {
	email := flag.String("email", "", "user email")
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month as YYYY-MM")
	list := flag.Bool("list", false, "list every record")
	flag.Parse()
	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	t, err := time.Parse("2006-01", *month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	gdb := mustDBFromEnv()
	var user models.User
	if err := gdb.Where("email = ?", *email).First(&user).Error; err != nil {
		log.Fatalf("user not found: %v", err)
	}

	var assigned, unassigned int64
	row := gdb.Raw(`SELECT
			COUNT(*) FILTER (WHERE assignment_type = ?),
			COUNT(*) FILTER (WHERE assignment_type = ?)
		FROM assignment_logs WHERE user_id = ? AND created_at >= ? AND created_at < ?`,
		models.AssignmentAssign, models.AssignmentUnassign, user.ID, start, end).Row()
	if err := row.Scan(&assigned, &unassigned); err != nil {
		log.Fatalf("query failed: %v", err)
	}
	fmt.Printf("Assignments for %s month=%s (UTC):\n", user.Email, *month)
	fmt.Printf("  assigned=%d unassigned=%d\n", assigned, unassigned)

	if !*list {
		return
	}
	var rows []models.AssignmentLog
	if err := gdb.Where("user_id = ? AND created_at >= ? AND created_at < ?", user.ID, start, end).Order("id").Find(&rows).Error; err != nil {
		log.Fatalf("fetch rows failed: %v", err)
	}
	for _, r := range rows {
		kind := "ASSIGN"
		if r.AssignmentType == models.AssignmentUnassign {
			kind = "UNASSIGN"
		}
		target := "-"
		switch {
		case r.HardwareInstanceID != nil:
			target = fmt.Sprintf("hardware_instance=%d", *r.HardwareInstanceID)
		case r.SoftwareInstanceID != nil:
			target = fmt.Sprintf("software_instance=%d", *r.SoftwareInstanceID)
		}
		fmt.Printf("%d|%s|%s|%s\n", r.ID, kind, target, r.CreatedAt.Format(time.RFC3339))
	}
}

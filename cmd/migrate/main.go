package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/arawak/toolshelf/migrations"
)

var version = "dev"

func main() {
	fmt.Printf("toolshelf-migrate version %s\n", version)

	dsn := os.Getenv("TOOLSHELF_DB_DSN")
	if dsn == "" {
		fmt.Println("TOOLSHELF_DB_DSN is required")
		os.Exit(1)
	}
	driver := os.Getenv("TOOLSHELF_DB_DRIVER")
	if driver == "" {
		driver = migrations.DriverMySQL
	}
	dir := flag.String("dir", "up", "migration direction: up or down")
	flag.StringVar(&driver, "driver", driver, "database driver: mysql or sqlite")
	flag.Parse()

	var err error
	switch *dir {
	case "up":
		err = migrations.Up(driver, dsn)
	case "down":
		err = migrations.Down(driver, dsn)
	default:
		err = fmt.Errorf("unknown direction: %s", *dir)
	}
	if err != nil {
		fmt.Println("migration error:", err)
		os.Exit(1)
	}
}

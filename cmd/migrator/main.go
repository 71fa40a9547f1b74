// package main применяет SQL-миграции сервиса заказов. Параметры
// подключения берутся из того же конфига, что и у самого сервиса
// (CONFIG_PATH), поэтому мигратор и сервис не могут разойтись в адресе
// базы.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/xiangyupai/order-service/internal/config"
)

// Миграции лежат рядом с кодом, а таблица версий именуется по сервису,
// чтобы несколько сервисов могли жить в одной базе, не мешая друг другу.
const (
	defaultMigrationsPath  = "migrations"
	defaultMigrationsTable = "order_service_migrations"
)

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("can't load .env: %v", err)
	}

	var down bool
	flag.BoolVar(&down, "down", false, "roll the schema back instead of applying migrations")
	flag.Parse()

	m, err := migrate.New("file://"+migrationsPath(), databaseURL())
	if err != nil {
		log.Fatalf("can't create migration: %v", err)
	}

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no migrations to apply")

		return
	}
	if err != nil {
		log.Fatalf("can't run migrations: %v", err)
	}

	fmt.Println("migrations applied successfully")
}

func migrationsPath() string {
	if path := os.Getenv("MIGRATIONS_PATH"); path != "" {
		return path
	}

	return defaultMigrationsPath
}

// databaseURL строит DSN для golang-migrate из конфига сервиса,
// дополняя его именем таблицы версий.
func databaseURL() string {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	var cfg config.Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config %s: %v", configPath, err)
	}

	table := os.Getenv("MIGRATIONS_TABLE")
	if table == "" {
		table = defaultMigrationsTable
	}

	return fmt.Sprintf("%s?sslmode=disable&x-migrations-table=%s", cfg.Postgres.ConnString(), table)
}

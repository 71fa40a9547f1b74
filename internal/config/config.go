// Package config определяет структуры для конфигурации всего приложения
// и предоставляет функцию для их загрузки из YAML-файла и переменных окружения.
// Использование библиотеки cleanenv позволяет гибко управлять конфигурацией,
// совмещая чтение из файла с переопределением через environment variables,
// что удобно для запуска как локально, так и в Docker-контейнерах.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Режимы работы шлюза данных. Выбирается один раз на старте;
// обработчики не знают, с какой реализацией они работают.
const (
	GatewayMock    = "mock"
	GatewayBackend = "backend"
)

// Config - это корневая структура, объединяющая все конфигурационные
// параметры приложения. Она загружается при старте сервиса.
type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-required:"true"`
	Gateway    string     `yaml:"gateway" env:"GATEWAY" env-default:"backend"`
	Payment    Payment    `yaml:"payment"`
	Postgres   Postgres   `yaml:"postgres" env-required:"true"`
	Redis      Redis      `yaml:"redis" env-required:"true"`
	Kafka      Kafka      `yaml:"kafka" env-required:"true"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
}

// Payment содержит параметры платежного потока.
type Payment struct {
	// DemoUserID используется, когда запрос не несет заголовок X-User-Id
	// (у мобильного клиента пользователь определяется токеном на шлюзе).
	DemoUserID int64 `yaml:"demo_user_id" env:"PAYMENT_DEMO_USER_ID" env-default:"1"`
	// PasswordFreeLimit - сумма в монетах, начиная с которой списание
	// требует подтверждения платежным паролем.
	PasswordFreeLimit int64 `yaml:"password_free_limit" env:"PAYMENT_PASSWORD_FREE_LIMIT" env-default:"100"`
	// PreviewTTL - время жизни закэшированного превью заказа.
	PreviewTTL time.Duration `yaml:"preview_ttl" env:"PAYMENT_PREVIEW_TTL" env-default:"5m"`
}

// Postgres содержит параметры для подключения к базе данных PostgreSQL.
type Postgres struct {
	Username string `yaml:"username" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-required:"true"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-required:"true"`
	Database string `yaml:"database" env:"POSTGRES_DB" env-required:"true"`
}

// ConnString собирает строку подключения к PostgreSQL. Используется и
// самим сервисом, и мигратором, чтобы параметры подключения жили в
// одном месте.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		p.Username,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
	)
}

// Redis содержит параметры для подключения к серверу Redis.
type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-required:"true"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-required:"true"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

// Kafka содержит параметры для взаимодействия с Apache Kafka,
// включая настройки для продюсера и консьюмера.
type Kafka struct {
	BootstrapServers []string `yaml:"bootstrap.servers" env:"KAFKA_BOOTSTRAP_SERVERS" env-required:"true"`
	Topic            string   `yaml:"topic" env-required:"true"`
	Producer         Producer `yaml:"producer" env-required:"true"`
	Consumer         Consumer `yaml:"consumer" env-required:"true"`
}

// Producer определяет настройки для Kafka-продюсера.
type Producer struct {
	Acks              int    `yaml:"acks" env-required:"true"`
	EnableIdempotence bool   `yaml:"enable.idempotence"`
	Retries           int    `yaml:"retries"`
	TransactionalId   string `yaml:"transactional.id"`
}

// Consumer определяет настройки для Kafka-консьюмера.
type Consumer struct {
	GroupId          string `yaml:"group.id" env-required:"true"`
	AutoOffsetReset  string `yaml:"auto.offset.reset" env-required:"true"`
	EnableAutoCommit bool   `yaml:"enable.auto.commit"`
	SecurityProtocol string `yaml:"security.protocol"`
	IsolationLevel   int8   `yaml:"isolation.level"`
	// CommitBatchSize - после скольких обработанных событий фиксируются
	// оффсеты; CommitInterval - как часто сбрасывать накопленные отметки,
	// даже если батч не набрался.
	CommitBatchSize int           `yaml:"commit.batch.size" env-default:"100"`
	CommitInterval  time.Duration `yaml:"commit.interval" env-default:"5s"`
}

// HTTPServer содержит параметры для запуска встроенного HTTP-сервера.
type HTTPServer struct {
	Address     string        `yaml:"address" env-required:"true"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// MustLoad читает конфигурацию из файла, путь к которому указан в переменной
// окружения CONFIG_PATH, и переменных окружения.
//
// Функция имеет префикс "Must", так как она вызывает log.Fatalf (паникует)
// при любой ошибке во время загрузки или парсинга конфигурации. Такой подход
// используется при старте приложения, поскольку его дальнейшая работа без
// валидной конфигурации невозможна.
//
// Возвращает указатель на заполненную структуру Config.
func MustLoad() *Config {
	// Получаем путь к файлу конфигурации из переменной окружения.
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	// Проверяем, существует ли файл по указанному пути.
	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	// Читаем YAML-файл и переменные окружения в структуру Config.
	// cleanenv автоматически сопоставляет поля структуры с данными из источников.
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	if cfg.Gateway != GatewayMock && cfg.Gateway != GatewayBackend {
		log.Fatalf("unknown gateway mode: %s", cfg.Gateway)
	}

	return &cfg
}

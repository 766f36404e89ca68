package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quiz-practice"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:5001"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Session  Session
	AI       AI
	CORS     CORS
}

// Postgres captures connection info for the history database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx and database/sql.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// ConnString is DSN plus pgxpool settings.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("%s pool_max_conns=%d", p.DSN(), p.MaxConns)
}

// LoadPostgres parses only the Postgres group, for tools that need nothing else.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}

// Redis holds the generated quiz cache configuration.
type Redis struct {
	Addr             string        `env:"REDIS_ADDR,notEmpty"`
	DB               int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize         int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	GeneratedQuizTTL time.Duration `env:"GENERATED_QUIZ_TTL" envDefault:"30m"`
}

// Security stores secrets for token verification. An empty secret disables bearer auth.
type Security struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:""`
}

// Session groups practice-session runtime defaults.
type Session struct {
	PerQuestionSeconds  int           `env:"PER_QUESTION_SECONDS" envDefault:"30"`
	TickInterval        time.Duration `env:"SESSION_TICK_INTERVAL" envDefault:"1s"`
	Retention           time.Duration `env:"SESSION_RETENTION" envDefault:"10m"`
	HistoryWriteTimeout time.Duration `env:"HISTORY_WRITE_TIMEOUT" envDefault:"5s"`
}

// AI configures the quiz generator backend.
type AI struct {
	GeminiAPIKey string        `env:"GEMINI_API_KEY" envDefault:""`
	Model        string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	HTTPTimeout  time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"60s"`
	MinQuestions int           `env:"QUIZ_MIN_QUESTIONS" envDefault:"5"`
	MaxQuestions int           `env:"QUIZ_MAX_QUESTIONS" envDefault:"50"`
	ExamName     string        `env:"QUIZ_EXAM_NAME" envDefault:"JEE Advanced"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	if c.Session.PerQuestionSeconds <= 0 {
		return fmt.Errorf("PER_QUESTION_SECONDS must be positive, got %d", c.Session.PerQuestionSeconds)
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("SESSION_TICK_INTERVAL must be positive")
	}
	if c.AI.MinQuestions <= 0 || c.AI.MaxQuestions < c.AI.MinQuestions {
		return fmt.Errorf("invalid question bounds: min=%d max=%d", c.AI.MinQuestions, c.AI.MaxQuestions)
	}
	return nil
}

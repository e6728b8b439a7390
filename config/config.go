package config

import (
	"database/sql"
	"strings"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	OpenAI      OpenAI        `yaml:"openai"`
	Auth        Auth          `yaml:"auth"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort      string `yaml:"http_port"`
	Workers       int    `yaml:"workers"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type OpenAI struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	WhisperModel string `yaml:"whisper_model"`
	ChatModel    string `yaml:"chat_model"`
}

// Configured reports whether the key looks usable. Computed once at
// startup so providers never re-decide per call.
func (o OpenAI) Configured() bool {
	return strings.HasPrefix(o.APIKey, "sk-") && len(o.APIKey) > 20
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.whisper_model", "whisper-1")
	viper.SetDefault("openai.chat_model", "gpt-4")
	viper.SetDefault("server.max_upload_size", 25<<20)
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	var rabbitmq *RabbitMQ
	if viper.GetString("rabbitmq_host") != "" {
		rabbitmq = &RabbitMQ{
			Host: viper.GetString("rabbitmq_host"),
			Port: viper.GetInt("rabbitmq_port"),
			User: viper.GetString("rabbitmq_user"),
			Pass: viper.GetString("rabbitmq_pass"),
			Kind: viper.GetString("rabbitmq_kind"),
		}
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort:      viper.GetString("server.port"),
			Workers:       viper.GetInt("server.workers"),
			MaxUploadSize: viper.GetInt64("server.max_upload_size"),
		},
		OpenAI: OpenAI{
			APIKey:       viper.GetString("openai.api_key"),
			BaseURL:      viper.GetString("openai.base_url"),
			WhisperModel: viper.GetString("openai.whisper_model"),
			ChatModel:    viper.GetString("openai.chat_model"),
		},
		Auth: Auth{
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}

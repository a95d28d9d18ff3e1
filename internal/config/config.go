package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

const (
	pesapalProductionURL = "https://pay.pesapal.com/v3"
	pesapalSandboxURL    = "https://cybqa.pesapal.com/pesapalv3"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	CORSAllowedOrigin string

	PesapalBaseURL        string
	PesapalConsumerKey    string
	PesapalConsumerSecret string
	PesapalIPNURL         string
	PaymentReturnURL      string
	DefaultCurrency       string
	DefaultCountryCode    string

	ResendAPIKey string
	AdminEmail   string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    getEnv("APP_PORT", "8080"),
		AppEnv:     os.Getenv("APP_ENV"),

		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),

		PesapalBaseURL:        pesapalSandboxURL,
		PesapalConsumerKey:    os.Getenv("PESAPAL_CONSUMER_KEY"),
		PesapalConsumerSecret: os.Getenv("PESAPAL_CONSUMER_SECRET"),
		PesapalIPNURL:         getEnv("PESAPAL_IPN_URL", "https://smartwinofficial.co.uk/api/pesapal-ipn"),
		PaymentReturnURL:      getEnv("PAYMENT_RETURN_URL", "https://smartwinofficial.co.uk/payment-success"),
		DefaultCurrency:       getEnv("DEFAULT_CURRENCY", "USD"),
		DefaultCountryCode:    getEnv("DEFAULT_COUNTRY_CODE", "KE"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),
	}

	if os.Getenv("PESAPAL_ENV") == "production" {
		cfg.PesapalBaseURL = pesapalProductionURL
	}

	if cfg.PesapalConsumerKey == "" || cfg.PesapalConsumerSecret == "" {
		log.Fatal("PESAPAL_CONSUMER_KEY and PESAPAL_CONSUMER_SECRET must be set")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

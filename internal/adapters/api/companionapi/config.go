package companionapi

// Config конфигурация http сервера диалогов.
type Config struct {
	Addr        string   `env:"COMPANION_ADDRESS" envDefault:"localhost:8000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	MaxUpload   int64    `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
}

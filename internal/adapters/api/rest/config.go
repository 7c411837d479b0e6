package rest

// Config конфигурация REST сервиса.
type Config struct {
	Addr           string   `env:"SERVER_ADDRESS" envDefault:"localhost:8080"`
	BaseURL        string   `env:"SERVER_BASEURL"`
	StaticDir      string   `env:"SERVER_STATIC_DIR"`
	CookieDomain   []string `env:"COOKIE_DOMAIN" envSeparator:","`
	CookieSecure   bool     `env:"COOKIE_SECURE" envDefault:"false"`
	LoginURL       string   `env:"LOGIN_URL" envDefault:"/"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

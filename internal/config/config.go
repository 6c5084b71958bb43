package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBMaxOpenConns int    // connection pool ceiling (0 = database.Open default)
	DBMaxIdleConns int    // idle connections kept warm (0 = database.Open default)
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Tpay merchant settings.  MerchantID and SecurityCode participate in
	// the md5sum notification checksum, so they must match the values
	// configured in the merchant panel exactly.
	TpayMerchantID   string // numeric merchant id assigned by Tpay
	TpaySecurityCode string // secret code used in the notification checksum
	TpayGatewayURL   string // base URL of the hosted payment form
	TpayReturnURL    string // where the gateway sends the buyer afterwards

	EntitlementDays int    // how long a purchased module stays unlocked
	CatalogURL      string // content catalog clients are redirected to on purchase conflicts
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 0),
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

		TpayMerchantID:   must("TPAY_MERCHANT_ID"),   // merchant id for checksum + form
		TpaySecurityCode: must("TPAY_SECURITY_CODE"), // checksum secret
		TpayGatewayURL:   getenv("TPAY_GATEWAY_URL", "https://secure.tpay.com"),
		TpayReturnURL:    getenv("TPAY_RETURN_URL", ""),

		EntitlementDays: envInt("ENTITLEMENT_DAYS", 365), // one year by default
		CatalogURL:      getenv("CATALOG_URL", "/pzk"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	SandboxLookupURL    = "https://api.storekit-sandbox.itunes.apple.com/inApps/v1/lookup/"
	ProductionLookupURL = "https://api.storekit.itunes.apple.com/inApps/v1/lookup/"

	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRetryDelay     = 500 * time.Millisecond
)

type Config struct {
	Sandbox           bool
	SandboxBaseURL    string
	ProductionBaseURL string
	RequestTimeout    time.Duration
	MaxAttempts       int
	RetryDelay        time.Duration
}

func Default() *Config {
	return &Config{
		Sandbox:           false,
		SandboxBaseURL:    SandboxLookupURL,
		ProductionBaseURL: ProductionLookupURL,
		RequestTimeout:    DefaultRequestTimeout,
		MaxAttempts:       DefaultMaxAttempts,
		RetryDelay:        DefaultRetryDelay,
	}
}

func (c *Config) LookupBaseURL() string {
	if c.Sandbox {
		return c.SandboxBaseURL
	}

	return c.ProductionBaseURL
}

func (c *Config) Validate() error {
	if err := validateURL(c.SandboxBaseURL); err != nil {
		return fmt.Errorf("invalid sandbox base url: %w", err)
	}

	if err := validateURL(c.ProductionBaseURL); err != nil {
		return fmt.Errorf("invalid production base url: %w", err)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}

	if c.MaxAttempts <= 0 || c.MaxAttempts > DefaultMaxAttempts {
		return fmt.Errorf("max attempts must be between 1 and %d, got %d", DefaultMaxAttempts, c.MaxAttempts)
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay)
	}

	return nil
}

func validateURL(rawurl string) error {
	parsedURL, err := url.Parse(rawurl)
	if err != nil {
		return err
	}

	if !parsedURL.IsAbs() || parsedURL.Host == "" {
		return fmt.Errorf("%q is not an absolute url", rawurl)
	}

	return nil
}

package gemini

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/handscribe/internal/common"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-3-flash-preview"
)

// Config for the Gemini client.
type Config struct {
	APIKey  string        // if empty, KeySource (then env API_KEY / GEMINI_API_KEY) is consulted per call
	BaseURL string        // default https://generativelanguage.googleapis.com/v1beta
	Model   string        // e.g., "gemini-3-flash-preview"
	Timeout time.Duration // http client timeout; 0 waits for the provider

	// KeySource resolves the credential at call time.
	KeySource func() string
}

type Client struct {
	cfg      Config
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// New validates cfg and builds a client. A failure here is an initialization
// error: the caller reports it through the session's error channel.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout < 0 {
		return nil, common.InitializationError(fmt.Errorf("negative timeout %s", cfg.Timeout))
	}
	if cfg.KeySource == nil {
		cfg.KeySource = envKey
	}
	if logger == nil {
		logger = slog.Default()
	}

	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, common.InitializationError(fmt.Errorf("parse base url: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, common.InitializationError(fmt.Errorf("base url %q must be http(s)", cfg.BaseURL))
	}
	if strings.ContainsAny(cfg.Model, "/?#") {
		return nil, common.InitializationError(fmt.Errorf("invalid model id %q", cfg.Model))
	}

	return &Client{
		cfg:      cfg,
		endpoint: u.String() + "/models/" + cfg.Model + ":generateContent",
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}, nil
}

// Model is the model id the client talks to.
func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) apiKey() string {
	if k := strings.TrimSpace(c.cfg.APIKey); k != "" {
		return k
	}
	return strings.TrimSpace(c.cfg.KeySource())
}

func envKey() string {
	if k := os.Getenv("API_KEY"); k != "" {
		return k
	}
	return os.Getenv("GEMINI_API_KEY")
}

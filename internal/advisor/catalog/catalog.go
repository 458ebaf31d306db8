// Package catalog loads the advice-provider catalog from YAML config and
// environment overrides, and builds the backend selected for the process.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/perflens/perflens/internal/advisor"
	"github.com/perflens/perflens/internal/advisor/anthropic"
	"github.com/perflens/perflens/internal/advisor/gateway"
	"github.com/perflens/perflens/internal/advisor/openaicompat"
	"gopkg.in/yaml.v3"
)

// Backend kinds a catalog entry can declare.
const (
	KindOpenAICompat = "openaicompat"
	KindAnthropic    = "anthropic"
	KindGateway      = "gateway"

	defaultTimeout = 180 * time.Second
)

var providerIDRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

type fileConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig is one entry of the advice_providers.yaml file.
type ProviderConfig struct {
	ID            string            `yaml:"id"`
	Enabled       *bool             `yaml:"enabled"`
	Kind          string            `yaml:"kind"`
	BaseURL       string            `yaml:"base_url"`
	Model         string            `yaml:"model"`
	TokenURL      string            `yaml:"token_url"`
	Scopes        []string          `yaml:"scopes"`
	StaticHeaders map[string]string `yaml:"static_headers"`
	Timeout       string            `yaml:"timeout"`
}

// ProviderInfo is the externally visible shape of a catalog entry. Secrets
// stay out; only the env var names are reported.
type ProviderInfo struct {
	ID             string            `json:"id"`
	Enabled        bool              `json:"enabled"`
	RuntimeEnabled bool              `json:"runtime_enabled"`
	Kind           string            `json:"kind"`
	BaseURL        string            `json:"base_url"`
	Model          string            `json:"model"`
	TokenURL       string            `json:"token_url,omitempty"`
	Scopes         []string          `json:"scopes,omitempty"`
	StaticHeaders  map[string]string `json:"static_headers,omitempty"`
	APIKeyEnv      string            `json:"api_key_env,omitempty"`
	BaseURLEnv     string            `json:"base_url_env,omitempty"`
}

type runtimeProvider struct {
	info         ProviderInfo
	apiKey       string
	clientID     string
	clientSecret string
	timeout      time.Duration
}

var (
	stateMu      sync.RWMutex
	initialized  bool
	providerByID map[string]runtimeProvider
	providerList []string
)

// InitFromEnvAndConfig initializes the catalog by loading the providers file
// and applying env overrides.
func InitFromEnvAndConfig() error {
	providers, err := loadProviders()

	stateMu.Lock()
	defer stateMu.Unlock()

	providerByID = make(map[string]runtimeProvider)
	providerList = providerList[:0]
	for _, p := range providers {
		providerByID[p.info.ID] = p
		providerList = append(providerList, p.info.ID)
	}
	initialized = true
	return err
}

func ensureInitialized() {
	stateMu.RLock()
	ok := initialized
	stateMu.RUnlock()
	if ok {
		return
	}
	_ = InitFromEnvAndConfig()
}

// ResetForTest resets in-memory state so tests can force reload.
func ResetForTest() {
	stateMu.Lock()
	defer stateMu.Unlock()
	initialized = false
	providerByID = nil
	providerList = nil
}

// GetProviders returns the configured advice providers.
func GetProviders() []ProviderInfo {
	ensureInitialized()

	stateMu.RLock()
	defer stateMu.RUnlock()

	result := make([]ProviderInfo, 0, len(providerList))
	for _, id := range providerList {
		entry, ok := providerByID[id]
		if !ok {
			continue
		}
		result = append(result, cloneInfo(entry.info))
	}
	return result
}

// GetProvider returns provider metadata by ID.
func GetProvider(id string) (ProviderInfo, bool) {
	ensureInitialized()

	stateMu.RLock()
	defer stateMu.RUnlock()

	entry, ok := providerByID[normalizeProviderID(id)]
	if !ok {
		return ProviderInfo{}, false
	}
	return cloneInfo(entry.info), true
}

// Build constructs the advice backend for the given catalog id. This is the
// single place where the provider tag is branched on; everything downstream
// sees only the advisor.Provider interface.
func Build(id string) (advisor.Provider, error) {
	ensureInitialized()

	stateMu.RLock()
	entry, ok := providerByID[normalizeProviderID(id)]
	stateMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown advice provider %q", id)
	}
	if !entry.info.Enabled {
		return nil, fmt.Errorf("advice provider %q is disabled", entry.info.ID)
	}

	info := entry.info
	switch info.Kind {
	case KindOpenAICompat:
		return openaicompat.NewProvider(info.ID, entry.apiKey, info.BaseURL, info.Model, entry.timeout, info.StaticHeaders), nil
	case KindAnthropic:
		return anthropic.NewProvider(info.ID, entry.apiKey, info.BaseURL, info.Model, entry.timeout), nil
	case KindGateway:
		return gateway.NewProvider(info.ID, info.BaseURL, info.Model, info.TokenURL,
			entry.clientID, entry.clientSecret, info.Scopes, entry.timeout), nil
	default:
		return nil, fmt.Errorf("advice provider %q has unsupported kind %q", info.ID, info.Kind)
	}
}

func cloneInfo(info ProviderInfo) ProviderInfo {
	info.Scopes = append([]string(nil), info.Scopes...)
	if len(info.StaticHeaders) > 0 {
		cp := make(map[string]string, len(info.StaticHeaders))
		for k, v := range info.StaticHeaders {
			cp[k] = v
		}
		info.StaticHeaders = cp
	}
	return info
}

func loadProviders() ([]runtimeProvider, error) {
	cfgProviders, loadErr := loadConfigProviders()
	if len(cfgProviders) == 0 {
		cfgProviders = defaultProviders()
	}

	providers := make([]runtimeProvider, 0, len(cfgProviders))
	for _, cfg := range cfgProviders {
		runtimeEntry, ok := normalizeConfig(cfg)
		if !ok {
			continue
		}
		providers = append(providers, runtimeEntry)
	}

	sort.SliceStable(providers, func(i, j int) bool {
		return providers[i].info.ID < providers[j].info.ID
	})

	return providers, loadErr
}

func loadConfigProviders() ([]ProviderConfig, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read advice providers file %q: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse advice providers file %q: %w", path, err)
	}

	return cfg.Providers, nil
}

func resolveConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("PERFLENS_PROVIDERS_FILE")); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	candidates := []string{
		"config/advice_providers.yaml",
		"./config/advice_providers.yaml",
		"/etc/perflens/advice_providers.yaml",
		"/usr/local/etc/perflens/advice_providers.yaml",
	}

	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, ".config", "perflens", "advice_providers.yaml"),
			filepath.Join(homeDir, ".perflens", "advice_providers.yaml"),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func normalizeConfig(cfg ProviderConfig) (runtimeProvider, bool) {
	id := normalizeProviderID(cfg.ID)
	if !providerIDRegexp.MatchString(id) {
		return runtimeProvider{}, false
	}

	enabled := true
	if cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}

	kind := strings.TrimSpace(strings.ToLower(cfg.Kind))
	if kind == "" {
		kind = KindOpenAICompat
	}
	switch kind {
	case KindOpenAICompat, KindAnthropic, KindGateway:
	default:
		return runtimeProvider{}, false
	}

	baseURLEnv := providerEnvName(id, "BASE_URL")
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if v := strings.TrimSpace(os.Getenv(baseURLEnv)); v != "" {
		baseURL = v
	}

	model := strings.TrimSpace(cfg.Model)
	if v := strings.TrimSpace(os.Getenv(providerEnvName(id, "MODEL"))); v != "" {
		model = v
	}

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if v := strings.TrimSpace(os.Getenv(providerEnvName(id, "TOKEN_URL"))); v != "" {
		tokenURL = v
	}

	apiKeyEnv := providerEnvName(id, "API_KEY")
	apiKey := strings.TrimSpace(os.Getenv(apiKeyEnv))
	clientID := strings.TrimSpace(os.Getenv(providerEnvName(id, "CLIENT_ID")))
	clientSecret := strings.TrimSpace(os.Getenv(providerEnvName(id, "CLIENT_SECRET")))

	staticHeaders := normalizeHeaders(cfg.StaticHeaders)
	if envHeaders := strings.TrimSpace(os.Getenv(providerEnvName(id, "STATIC_HEADERS"))); envHeaders != "" {
		fromEnv := map[string]string{}
		if err := json.Unmarshal([]byte(envHeaders), &fromEnv); err == nil {
			for k, v := range normalizeHeaders(fromEnv) {
				staticHeaders[k] = v
			}
		}
	}

	timeout := defaultTimeout
	if raw := strings.TrimSpace(cfg.Timeout); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			timeout = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv(providerEnvName(id, "TIMEOUT"))); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			timeout = parsed
		}
	}

	runtimeEnabled := enabled && baseURL != ""
	if kind == KindGateway {
		runtimeEnabled = runtimeEnabled && tokenURL != "" && clientID != "" && clientSecret != ""
	} else {
		runtimeEnabled = runtimeEnabled && apiKey != ""
	}

	info := ProviderInfo{
		ID:             id,
		Enabled:        enabled,
		RuntimeEnabled: runtimeEnabled,
		Kind:           kind,
		BaseURL:        baseURL,
		Model:          model,
		TokenURL:       tokenURL,
		Scopes:         cfg.Scopes,
		StaticHeaders:  staticHeaders,
		APIKeyEnv:      apiKeyEnv,
		BaseURLEnv:     baseURLEnv,
	}

	return runtimeProvider{
		info:         info,
		apiKey:       apiKey,
		clientID:     clientID,
		clientSecret: clientSecret,
		timeout:      timeout,
	}, true
}

func normalizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	normalized := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		value := strings.TrimSpace(v)
		if key == "" || value == "" {
			continue
		}
		normalized[key] = value
	}
	return normalized
}

func normalizeProviderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func providerEnvName(id, suffix string) string {
	upper := strings.ToUpper(id)
	replacer := strings.NewReplacer("-", "_", ".", "_", "/", "_", " ", "_")
	upper = replacer.Replace(upper)
	return fmt.Sprintf("PERFLENS_%s_%s", upper, suffix)
}

func defaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			ID:      "openai",
			Enabled: boolPtr(true),
			Kind:    KindOpenAICompat,
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4-turbo-preview",
		},
		{
			ID:      "anthropic",
			Enabled: boolPtr(true),
			Kind:    KindAnthropic,
			BaseURL: "https://api.anthropic.com",
			Model:   "claude-3-5-sonnet-latest",
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

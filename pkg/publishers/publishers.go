package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderAzure  = "azure"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink declared in the publishers file.
type PublisherConfig struct {
	ID      string                `json:"id" yaml:"id"`
	Type    string                `json:"type" yaml:"type"`
	Enabled *bool                 `json:"enabled" yaml:"enabled"`
	Queue   *QueuePublisherConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPPublisherConfig  `json:"http" yaml:"http"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string                 `json:"provider" yaml:"provider"`
	AWS      *AWSSQSPublisherConfig `json:"aws" yaml:"aws"`
	SNS      *AWSSNSPublisherConfig `json:"sns" yaml:"sns"`
	Azure    *AzureQueueConfig      `json:"azure" yaml:"azure"`
	GCP      *GCPQueueConfig        `json:"gcp" yaml:"gcp"`
}

// AWSCredentials are optional static keys; when empty the default AWS chain is used.
type AWSCredentials struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AWSSQSPublisherConfig holds AWS SQS settings.
type AWSSQSPublisherConfig struct {
	QueueURL       string `json:"uri" yaml:"uri"`
	AWSCredentials `yaml:",inline"`
}

// AWSSNSPublisherConfig holds AWS SNS settings.
type AWSSNSPublisherConfig struct {
	TopicARN       string `json:"topic_arn" yaml:"topic_arn"`
	AWSCredentials `yaml:",inline"`
}

// AzureQueueConfig is accepted in files but not yet deliverable.
type AzureQueueConfig struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
	QueueName        string `json:"queue" yaml:"queue"`
}

// GCPQueueConfig holds Pub/Sub topic settings.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConfigRegistry holds the validated publisher entries of one file.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry reads publishers from a YAML/JSON file. An empty path yields an empty registry.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewConfigRegistry()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewConfigRegistry(file.Publishers...)
}

// NewConfigRegistry sanitizes and validates cfgs.
func NewConfigRegistry(cfgs ...PublisherConfig) (*ConfigRegistry, error) {
	reg := &ConfigRegistry{idx: make(map[string]PublisherConfig, len(cfgs))}
	for i, cfg := range cfgs {
		cfg = cfg.sanitized()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers = append(reg.publishers, cfg)
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

func decodeConfigFile(data []byte, ext string) (configFile, error) {
	var (
		file configFile
		err  error
	)
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, &file)
	default:
		return configFile{}, fmt.Errorf("publishers file extension %q not supported (expected .yaml, .yml or .json)", ext)
	}
	if err != nil {
		return configFile{}, fmt.Errorf("decode publishers file: %w", err)
	}
	return file, nil
}

func (cfg PublisherConfig) sanitized() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}

	if cfg.Queue != nil {
		q := *cfg.Queue
		q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
		if q.AWS != nil {
			a := *q.AWS
			a.QueueURL = strings.TrimSpace(a.QueueURL)
			a.AWSCredentials = a.AWSCredentials.trimmed()
			q.AWS = &a
		}
		if q.SNS != nil {
			s := *q.SNS
			s.TopicARN = strings.TrimSpace(s.TopicARN)
			s.AWSCredentials = s.AWSCredentials.trimmed()
			q.SNS = &s
		}
		if q.GCP != nil {
			g := *q.GCP
			g.ProjectID = strings.TrimSpace(g.ProjectID)
			g.Topic = strings.TrimSpace(g.Topic)
			g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
			q.GCP = &g
		}
		cfg.Queue = &q
	}

	if cfg.HTTP != nil {
		h := *cfg.HTTP
		h.URL = strings.TrimSpace(h.URL)
		h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
		if h.Method == "" {
			h.Method = httpDefaultMethod
		}
		h.Headers = sanitizeHeaders(h.Headers)
		if h.TimeoutSeconds <= 0 {
			h.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &h
	}
	return cfg
}

func (c AWSCredentials) trimmed() AWSCredentials {
	return AWSCredentials{
		Region:          strings.TrimSpace(c.Region),
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
	}
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if key != "" && val != "" {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeHTTP:
		if cfg.HTTP == nil || cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for publisher %q", cfg.ID)
		}
		switch cfg.HTTP.Method {
		case "POST", "PUT":
		default:
			return fmt.Errorf("http.method %q not supported for publisher %q", cfg.HTTP.Method, cfg.ID)
		}
		return nil
	case TypeQueue:
		return cfg.validateQueue()
	default:
		return fmt.Errorf("type %q not supported for publisher %q", cfg.Type, cfg.ID)
	}
}

func (cfg PublisherConfig) validateQueue() error {
	q := cfg.Queue
	if q == nil {
		return fmt.Errorf("queue config required for publisher %q", cfg.ID)
	}

	var missing string
	switch q.Provider {
	case QueueProviderAWSSQS:
		switch {
		case q.AWS == nil || q.AWS.QueueURL == "":
			missing = "aws.uri"
		case q.AWS.Region == "":
			missing = "aws.region"
		default:
			return q.AWS.AWSCredentials.validatePair(cfg.ID)
		}
	case QueueProviderAWSSNS:
		switch {
		case q.SNS == nil || q.SNS.TopicARN == "":
			missing = "sns.topic_arn"
		case q.SNS.Region == "":
			missing = "sns.region"
		default:
			return q.SNS.AWSCredentials.validatePair(cfg.ID)
		}
	case QueueProviderGCP:
		switch {
		case q.GCP == nil || q.GCP.ProjectID == "":
			missing = "gcp.project_id"
		case q.GCP.Topic == "":
			missing = "gcp.topic"
		default:
			return nil
		}
	case QueueProviderAzure:
		return fmt.Errorf("queue provider %q not implemented for publisher %q", q.Provider, cfg.ID)
	default:
		return fmt.Errorf("queue provider %q not supported for publisher %q", q.Provider, cfg.ID)
	}
	return fmt.Errorf("%s is required for publisher %q", missing, cfg.ID)
}

// validatePair requires static keys to be given together or not at all.
func (c AWSCredentials) validatePair(id string) error {
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access_key_id and secret_access_key must be set together for publisher %q", id)
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[strings.TrimSpace(id)]
	return cfg, ok
}

// All returns all configured publishers in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Copyright (c) Microsoft. All rights reserved.

// Package config reads binary configuration from the environment and picks
// a chat client for it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	af "github.com/jochenvw/agent-framework-workflows/agentframework"
	"github.com/jochenvw/agent-framework-workflows/openai"
)

// DefaultDevUIPort is the dev server port when DEVUI_PORT is unset.
const DefaultDevUIPort = 8090

// DefaultOpenAIModel is used when OPENAI_CHAT_MODEL_ID is unset.
const DefaultOpenAIModel = "gpt-4o-mini"

var (
	// ErrConfig is the base error for configuration problems.
	ErrConfig = errors.New("config error")

	// ErrNoChatClient is returned when no provider is configured.
	ErrNoChatClient = fmt.Errorf("%w: no chat client configured; set AZURE_OPENAI_ENDPOINT, AZURE_FOUNDRY_ENDPOINT or OPENAI_API_KEY", ErrConfig)
)

// Config is the environment of the command-line tools and samples.
type Config struct {
	AzureOpenAIEndpoint   string `env:"AZURE_OPENAI_ENDPOINT"             validate:"omitempty,url"`
	AzureOpenAIDeployment string `env:"AZURE_OPENAI_CHAT_DEPLOYMENT_NAME" validate:"required_with=AzureOpenAIEndpoint"`
	AzureOpenAIAPIKey     string `env:"AZURE_OPENAI_API_KEY"`
	AzureOpenAIAPIVersion string `env:"AZURE_OPENAI_API_VERSION"`

	FoundryEndpoint string `env:"AZURE_FOUNDRY_ENDPOINT" validate:"omitempty,url"`
	FoundryKey      string `env:"AZURE_FOUNDRY_KEY"`
	FoundryModel    string `env:"AZURE_FOUNDRY_MODEL"`

	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_CHAT_MODEL_ID"`

	DevUIPort    int    `env:"DEVUI_PORT"                  validate:"gte=1,lte=65535"`
	Debug        bool   `env:"DEBUG"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" validate:"omitempty,url"`

	// credential overrides DefaultAzureCredential in tests.
	credential func() (azcore.TokenCredential, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads a .env file if present, then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: load .env: %w", ErrConfig, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := &Config{
		AzureOpenAIEndpoint:   getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIDeployment: getenv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME"),
		AzureOpenAIAPIKey:     getenv("AZURE_OPENAI_API_KEY"),
		AzureOpenAIAPIVersion: getenv("AZURE_OPENAI_API_VERSION"),
		FoundryEndpoint:       getenv("AZURE_FOUNDRY_ENDPOINT"),
		FoundryKey:            getenv("AZURE_FOUNDRY_KEY"),
		FoundryModel:          getenv("AZURE_FOUNDRY_MODEL"),
		OpenAIAPIKey:          getenv("OPENAI_API_KEY"),
		OpenAIModel:           getenv("OPENAI_CHAT_MODEL_ID"),
		OTLPEndpoint:          getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		DevUIPort:             DefaultDevUIPort,
	}
	if v := getenv("DEVUI_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: DEVUI_PORT %q is not a number", ErrConfig, v)
		}
		c.DevUIPort = port
	}
	if v := getenv("DEBUG"); v != "" {
		c.Debug = v != "0" && !strings.EqualFold(v, "false")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration. Errors name the environment variable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = fmt.Sprintf("%s fails %s", envName(fe.StructField()), fe.Tag())
	}
	return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
}

func envName(field string) string {
	if f, ok := reflect.TypeFor[Config]().FieldByName(field); ok {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
	}
	return field
}

// Provider names the chat provider [Config.NewChatClient] will use, or ""
// when none is configured.
func (c *Config) Provider() string {
	switch {
	case c.AzureOpenAIEndpoint != "":
		return "azure-openai"
	case c.FoundryEndpoint != "":
		return "azure-foundry"
	case c.OpenAIAPIKey != "":
		return "openai"
	}
	return ""
}

// NewChatClient returns a client for the first configured provider: Azure
// OpenAI, then Azure AI Foundry, then OpenAI. Azure providers without a key
// authenticate with DefaultAzureCredential.
func (c *Config) NewChatClient(opts ...openai.Option) (af.ChatClient, error) {
	switch c.Provider() {
	case "azure-openai":
		base := []openai.Option{}
		if c.AzureOpenAIAPIVersion != "" {
			base = append(base, openai.WithAPIVersion(c.AzureOpenAIAPIVersion))
		}
		auth, err := c.auth(c.AzureOpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		slog.Debug("using Azure OpenAI", "endpoint", c.AzureOpenAIEndpoint, "deployment", c.AzureOpenAIDeployment)
		return openai.NewAzure(c.AzureOpenAIEndpoint, c.AzureOpenAIDeployment, append(append(base, auth), opts...)...), nil

	case "azure-foundry":
		model := c.FoundryModel
		if model == "" {
			model = "gpt-4o"
		}
		auth, err := c.auth(c.FoundryKey)
		if err != nil {
			return nil, err
		}
		slog.Debug("using Azure AI Foundry", "endpoint", c.FoundryEndpoint, "model", model)
		base := []openai.Option{openai.WithBaseURL(c.FoundryEndpoint), openai.WithModel(model), auth}
		return openai.New("", append(base, opts...)...), nil

	case "openai":
		model := c.OpenAIModel
		if model == "" {
			model = DefaultOpenAIModel
		}
		slog.Debug("using OpenAI", "model", model)
		return openai.New(c.OpenAIAPIKey, append([]openai.Option{openai.WithModel(model)}, opts...)...), nil
	}
	return nil, ErrNoChatClient
}

func (c *Config) auth(key string) (openai.Option, error) {
	if key != "" {
		return openai.WithAPIKey(key), nil
	}
	newCred := c.credential
	if newCred == nil {
		newCred = func() (azcore.TokenCredential, error) {
			return azidentity.NewDefaultAzureCredential(nil)
		}
	}
	cred, err := newCred()
	if err != nil {
		return nil, fmt.Errorf("%w: azure credential: %w", ErrConfig, err)
	}
	return openai.WithAzureCredential(cred), nil
}

// Package transport defines the pluggable I/O boundary between an
// extractor and a real device or management server: the Hook interface,
// device connection configuration, and a process-wide registry mapping
// device types to Hook factories.
package transport

import (
	"context"

	playgroundvalidator "github.com/go-playground/validator/v10"
)

var structValidator = playgroundvalidator.New()

// ParameterAttributes carries the raw, source-reported metadata for one
// parameter path, exactly as the device described it. Type and Access
// are unnormalized strings (e.g. "xsd:unsignedInt", "readWrite"): it is the
// extractor's job, not the Hook's, to map these onto model.DataType and
// model.AccessLevel and to coerce the accompanying value.
type ParameterAttributes struct {
	Type        string
	Access      string
	Description string
}

// Hook is the transport-level contract an extractor drives. Every method
// takes a context so callers can bound network calls with deadlines and
// cancellation, and returns a *trerrors.TR181Error-compatible error on
// failure so retry and degradation logic can classify it.
type Hook interface {
	// Connect establishes the underlying session (TCP, HTTP, SOAP, etc).
	Connect(ctx context.Context) error
	// Disconnect tears the session down. Safe to call on an already
	// disconnected Hook.
	Disconnect(ctx context.Context) error

	// GetParameterNames lists parameter and object paths at or below
	// path. nextLevel, when true, limits results to the immediate
	// children rather than the full subtree.
	GetParameterNames(ctx context.Context, path string, nextLevel bool) ([]string, error)
	// GetParameterValues retrieves the current value of each requested
	// path. The returned map may omit paths the device declined.
	GetParameterValues(ctx context.Context, paths []string) (map[string]any, error)
	// GetParameterAttributes retrieves the raw, source-reported
	// type/access/description for each requested path. Values are not
	// normalized or coerced here.
	GetParameterAttributes(ctx context.Context, paths []string) (map[string]ParameterAttributes, error)
	// SetParameterValues writes values, returning an error if the write
	// fails; it does not say which of the paths failed.
	SetParameterValues(ctx context.Context, values map[string]any) error

	// SubscribeToEvent registers interest in a device event, returning
	// once the subscription is acknowledged, not once the event fires.
	SubscribeToEvent(ctx context.Context, eventPath string) error
	// CallFunction invokes an RPC-style TR-181 function with the given
	// inputs and returns its output parameters.
	CallFunction(ctx context.Context, functionPath string, inputs map[string]any) (map[string]any, error)
}

// AuthType enumerates the credential schemes a DeviceConfig may carry.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthDigest AuthType = "digest"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
	AuthOAuth2 AuthType = "oauth2"
	AuthCustom AuthType = "custom"
)

// Authentication holds the credential material for a DeviceConfig. Only
// the fields relevant to Type are expected to be populated; unused
// fields are ignored by hook implementations.
type Authentication struct {
	Type AuthType `json:"type" yaml:"type"`

	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	BearerToken string `json:"bearerToken,omitempty" yaml:"bearerToken,omitempty"`
	APIKey      string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	APIKeyHeader string `json:"apiKeyHeader,omitempty" yaml:"apiKeyHeader,omitempty"`

	OAuth2ClientID     string `json:"oauth2ClientId,omitempty" yaml:"oauth2ClientId,omitempty"`
	OAuth2ClientSecret string `json:"oauth2ClientSecret,omitempty" yaml:"oauth2ClientSecret,omitempty"`
	OAuth2TokenURL     string `json:"oauth2TokenUrl,omitempty" yaml:"oauth2TokenUrl,omitempty"`

	CustomParameters map[string]string `json:"customParameters,omitempty" yaml:"customParameters,omitempty"`
}

// DeviceConfig describes how to reach and authenticate against one
// device or management server, independent of the concrete Hook
// implementation that will use it.
type DeviceConfig struct {
	Name           string            `json:"name" yaml:"name"`
	Type           string            `json:"type" yaml:"type"`
	Endpoint       string            `json:"endpoint" yaml:"endpoint" validate:"required"`
	Authentication Authentication    `json:"authentication" yaml:"authentication"`
	TimeoutSeconds int               `json:"timeoutSeconds" yaml:"timeoutSeconds" validate:"gte=0"`
	RetryCount     int               `json:"retryCount" yaml:"retryCount" validate:"gte=0"`
	HookConfig     map[string]string `json:"hookConfig,omitempty" yaml:"hookConfig,omitempty"`
}

// Validate checks DeviceConfig's required-field and range struct tags,
// then the nested Authentication's type-specific requirements.
func (c DeviceConfig) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return err
	}
	return c.Authentication.Validate()
}

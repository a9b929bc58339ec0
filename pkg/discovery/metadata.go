package discovery

import (
	"encoding/json"

	mcerrors "github.com/openmobileid/mobileconnect/pkg/errors"
	"github.com/openmobileid/mobileconnect/pkg/versions"
)

// ProviderMetadata is the operator's OpenID Connect style configuration
// document, extended with the Mobile Connect specific fields. Immutable
// once built; cached independently, keyed by its source URL.
type ProviderMetadata struct {
	Issuer                           string   `json:"issuer,omitempty"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                    string   `json:"token_endpoint,omitempty"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint,omitempty"`
	PremiumInfoEndpoint              string   `json:"premiuminfo_endpoint,omitempty"`
	RevocationEndpoint               string   `json:"revocation_endpoint,omitempty"`
	JWKSURI                          string   `json:"jwks_uri,omitempty"`
	ScopesSupported                  []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported           []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported              []string `json:"grant_types_supported,omitempty"`
	ACRValuesSupported               []string `json:"acr_values_supported,omitempty"`
	SubjectTypesSupported            []string `json:"subject_types_supported,omitempty"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
	DisplayValuesSupported           []string `json:"display_values_supported,omitempty"`
	ClaimsSupported                  []string `json:"claims_supported,omitempty"`
	UILocalesSupported               []string `json:"ui_locales_supported,omitempty"`

	// Mobile Connect extensions
	MCVersion                     []string            `json:"mc_version,omitempty"`
	LoginHintMethodsSupported     []string            `json:"login_hint_methods_supported,omitempty"`
	MCDIScopesSupported           []string            `json:"mc_di_scopes_supported,omitempty"`
	MobileConnectVersionSupported []map[string]string `json:"mobile_connect_version_supported,omitempty"`
}

// ParseProviderMetadata deserializes a provider metadata document.
func ParseProviderMetadata(data []byte) (*ProviderMetadata, error) {
	var md ProviderMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, mcerrors.Wrap(err, mcerrors.ErrCodeMalformedResponse, "failed to parse provider metadata")
	}
	return &md, nil
}

// SupportedVersions derives the scope-to-version mapping the provider
// advertises. Nil-safe: a missing document yields defaults.
func (md *ProviderMetadata) SupportedVersions() *versions.SupportedVersions {
	if md == nil {
		return nil
	}
	return versions.NewSupportedVersions(md.MobileConnectVersionSupported)
}

// Versions returns the flat list of protocol versions the provider lists.
func (md *ProviderMetadata) Versions() []string {
	if md == nil {
		return nil
	}
	return md.MCVersion
}

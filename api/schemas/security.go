package schemas

// -- Security Schemas --

// SecurityType is the canonical taxonomy of security mechanisms. Free-form
// vendor strings are mapped onto this closed set; anything unmapped lands on
// SecurityTypeUnknown.
type SecurityType string

// Constants for the closed set of security mechanism types.
const (
	SecurityTypeOAuth             SecurityType = "OAuth"
	SecurityTypeBasicAuth         SecurityType = "Basic Authentication"
	SecurityTypeClientCertificate SecurityType = "Client Certificate"
	SecurityTypeSAML              SecurityType = "SAML"
	SecurityTypeJWT               SecurityType = "JWT"
	SecurityTypeCSRF              SecurityType = "CSRF Protection"
	SecurityTypeXSRF              SecurityType = "XSRF Protection"
	SecurityTypeCORS              SecurityType = "CORS"
	SecurityTypeRoleBased         SecurityType = "Role-Based Authorization"
	SecurityTypeExceptionHandling SecurityType = "Exception Handling"
	SecurityTypeLogging           SecurityType = "Security Logging"
	SecurityTypeDebug             SecurityType = "Debug Security"
	SecurityTypeUnknown           SecurityType = "Unknown"
)

// SecurityTypes lists every canonical type in a stable order.
var SecurityTypes = []SecurityType{
	SecurityTypeOAuth,
	SecurityTypeBasicAuth,
	SecurityTypeClientCertificate,
	SecurityTypeSAML,
	SecurityTypeJWT,
	SecurityTypeCSRF,
	SecurityTypeXSRF,
	SecurityTypeCORS,
	SecurityTypeRoleBased,
	SecurityTypeExceptionHandling,
	SecurityTypeLogging,
	SecurityTypeDebug,
	SecurityTypeUnknown,
}

// SecurityBucket groups mechanism types for downstream reporting.
type SecurityBucket string

const (
	BucketAuthentication SecurityBucket = "authentication"
	BucketAuthorization  SecurityBucket = "authorization"
	BucketEncryption     SecurityBucket = "encryption"
	BucketLogging        SecurityBucket = "logging"
	BucketProtection     SecurityBucket = "protection"
	BucketOther          SecurityBucket = "other"
)

// Well-known keys of SecurityMechanism.Configuration.
const (
	ConfigKeyAdapter       = "adapter"
	ConfigKeyComponentType = "component_type"
	ConfigKeyAuthMethod    = "auth_method"
	ConfigKeySource        = "source"
	ConfigKeyEnabled       = "enabled"
	ConfigKeyRisk          = "security_risk"
)

// SecurityMechanism is the canonical record of one authentication,
// authorization or protection feature. The natural key is (ArtifactID, Name).
type SecurityMechanism struct {
	ArtifactID string       `json:"artifact_id"`
	Name       string       `json:"name"`
	Type       SecurityType `json:"type"`
	Direction  Direction    `json:"direction"`
	Enabled    bool         `json:"enabled"`

	// Configuration carries the evidence the mechanism was derived from.
	Configuration map[string]string `json:"configuration"`
}

// Risk returns the security annotation attached to the mechanism, if any.
func (m SecurityMechanism) Risk() string {
	return m.Configuration[ConfigKeyRisk]
}

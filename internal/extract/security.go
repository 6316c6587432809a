package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/bpmn"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

// ExtractedSecurityMechanism is a raw security candidate. Type may be a
// vendor string or already canonical; the processor maps it.
type ExtractedSecurityMechanism struct {
	Name          string
	Type          string
	Direction     string
	Configuration map[string]any
}

// Evidence sources recorded under schemas.ConfigKeySource.
const (
	sourceMessageFlow   = "message_flow"
	sourceCollaboration = "collaboration"
)

// Risk annotations for collaboration settings.
const (
	riskExceptionDisclosure = "returning exceptions to the sender can disclose internal details"
	riskServerTrace         = "server trace records full message payloads"
)

// SecurityExtractor harvests authentication and protection features from
// message flows and collaboration settings.
type SecurityExtractor struct {
	logger *zap.Logger
}

// NewSecurityExtractor creates a SecurityExtractor.
func NewSecurityExtractor(logger *zap.Logger) *SecurityExtractor {
	return &SecurityExtractor{logger: logger.Named("security_extractor")}
}

// Extract runs the message-flow pass and the collaboration pass and
// concatenates their results, message flows first.
func (e *SecurityExtractor) Extract(doc *bpmn.Document) []ExtractedSecurityMechanism {
	mechanisms := []ExtractedSecurityMechanism{}
	for _, mf := range doc.MessageFlows() {
		mechanisms = append(mechanisms, e.fromMessageFlow(mf)...)
	}
	mechanisms = append(mechanisms, e.fromCollaboration(doc.CollaborationProperties())...)
	e.logger.Debug("Security extraction complete", zap.Int("mechanisms", len(mechanisms)))
	return mechanisms
}

func (e *SecurityExtractor) fromMessageFlow(mf bpmn.MessageFlow) []ExtractedSecurityMechanism {
	props := mf.Properties
	name := flowName(mf)
	componentType := bpmn.GetProperty(props, "ComponentType")
	category, _ := taxonomy.Category(bpmn.GetProperty(props, "direction"))

	base := func(extra map[string]any) map[string]any {
		cfg := map[string]any{
			schemas.ConfigKeyAdapter:       name,
			schemas.ConfigKeyComponentType: componentType,
			schemas.ConfigKeySource:        sourceMessageFlow,
		}
		for k, v := range extra {
			cfg[k] = v
		}
		return cfg
	}

	var out []ExtractedSecurityMechanism
	primaryIsCertificate := false

	var authKey string
	switch category {
	case schemas.CategorySender:
		authKey = "senderAuthType"
	case schemas.CategoryReceiver:
		authKey = "authenticationMethod"
	}
	if authKey != "" {
		if auth := strings.TrimSpace(bpmn.GetProperty(props, authKey)); !taxonomy.IsNone(auth) {
			dir, _ := taxonomy.SecurityDirection(category)
			out = append(out, ExtractedSecurityMechanism{
				Name:          name + "_" + auth,
				Type:          auth,
				Direction:     string(dir),
				Configuration: base(map[string]any{schemas.ConfigKeyAuthMethod: auth}),
			})
			t, _ := taxonomy.SecurityType(auth)
			primaryIsCertificate = t == schemas.SecurityTypeClientCertificate
		}
	}

	if taxonomy.CoerceBool(bpmn.GetProperty(props, "isCSRFEnabled")) {
		out = append(out, ExtractedSecurityMechanism{
			Name:          name + "_CSRF",
			Type:          string(schemas.SecurityTypeCSRF),
			Direction:     string(schemas.DirectionOutbound),
			Configuration: base(map[string]any{"isCSRFEnabled": true}),
		})
	}

	switch category {
	case schemas.CategoryReceiver:
		alias := bpmn.GetProperty(props, "privateKeyAlias")
		if alias == "" {
			alias = bpmn.GetProperty(props, "clientCertificateAlias")
		}
		if alias != "" && !primaryIsCertificate {
			out = append(out, ExtractedSecurityMechanism{
				Name:          name + "_ClientCertificate",
				Type:          string(schemas.SecurityTypeClientCertificate),
				Direction:     string(schemas.DirectionOutbound),
				Configuration: base(map[string]any{"key_alias": alias}),
			})
		}

	case schemas.CategorySender:
		if bpmn.HasProperty(props, "xsrfProtection") && strings.TrimSpace(bpmn.GetProperty(props, "xsrfProtection")) == "0" {
			out = append(out, ExtractedSecurityMechanism{
				Name:          name + "_XSRF",
				Type:          string(schemas.SecurityTypeXSRF),
				Direction:     string(schemas.DirectionInbound),
				Configuration: base(map[string]any{schemas.ConfigKeyEnabled: false}),
			})
		}
		if role := strings.TrimSpace(bpmn.GetProperty(props, "userRole")); role != "" {
			out = append(out, ExtractedSecurityMechanism{
				Name:          name + "_RoleBasedAuthorization",
				Type:          string(schemas.SecurityTypeRoleBased),
				Direction:     string(schemas.DirectionInbound),
				Configuration: base(map[string]any{"user_role": role}),
			})
		}
	}
	return out
}

func (e *SecurityExtractor) fromCollaboration(props []bpmn.PropertyPair) []ExtractedSecurityMechanism {
	var out []ExtractedSecurityMechanism
	add := func(suffix string, t schemas.SecurityType, cfg map[string]any) {
		cfg[schemas.ConfigKeySource] = sourceCollaboration
		out = append(out, ExtractedSecurityMechanism{
			Name:          "Collaboration_" + suffix,
			Type:          string(t),
			Direction:     string(schemas.DirectionInbound),
			Configuration: cfg,
		})
	}

	for _, key := range []string{"corsEnabled", "isCORSEnabled"} {
		if taxonomy.CoerceBool(bpmn.GetProperty(props, key)) {
			cfg := map[string]any{key: true}
			if origins := bpmn.GetProperty(props, "allowedOrigins"); origins != "" {
				cfg["allowed_origins"] = origins
			}
			add("CORS", schemas.SecurityTypeCORS, cfg)
			break
		}
	}
	if taxonomy.CoerceBool(bpmn.GetProperty(props, "returnExceptionToSender")) {
		add("ExceptionHandling", schemas.SecurityTypeExceptionHandling, map[string]any{
			"returnExceptionToSender": true,
			schemas.ConfigKeyRisk:     riskExceptionDisclosure,
		})
	}
	if level := strings.TrimSpace(bpmn.GetProperty(props, "log")); !taxonomy.IsNone(level) {
		add("SecurityLogging", schemas.SecurityTypeLogging, map[string]any{"log_level": level})
	}
	if taxonomy.CoerceBool(bpmn.GetProperty(props, "ServerTrace")) {
		add("DebugSecurity", schemas.SecurityTypeDebug, map[string]any{
			"ServerTrace":         true,
			schemas.ConfigKeyRisk: riskServerTrace,
		})
	}
	return out
}

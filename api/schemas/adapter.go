package schemas

import "encoding/json"

// -- Adapter Schemas --

// AdapterCategory is the role an adapter plays relative to the integration
// process, as declared by the vendor "direction" property.
type AdapterCategory string

// Constants for the closed set of adapter categories.
const (
	CategorySender   AdapterCategory = "Sender"   // The process receives calls through this adapter.
	CategoryReceiver AdapterCategory = "Receiver" // The process calls out through this adapter.
	CategoryUnknown  AdapterCategory = "Unknown"  // Not enough evidence to decide.
)

// Direction is the flow direction of a record relative to the integration
// process. Adapters and security mechanisms share the same vocabulary, but a
// security mechanism's direction is inverted relative to its adapter's
// category: a Sender adapter is protected by an Inbound mechanism.
type Direction string

// Constants for the closed set of directions.
const (
	DirectionInbound  Direction = "Inbound"
	DirectionOutbound Direction = "Outbound"
	DirectionUnknown  Direction = "Unknown"
)

// Adapter is the canonical, persistence-ready record of one connectivity
// endpoint recovered from a message flow. The natural key is (ArtifactID, Name).
type Adapter struct {
	ArtifactID string          `json:"artifact_id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"` // Vendor component type, e.g. "HTTPS" or "JMS".
	Category   AdapterCategory `json:"category"`
	Direction  Direction       `json:"direction"`
	Address    string          `json:"address,omitempty"`

	// CmdVariantURI identifies the exact adapter variant and version.
	CmdVariantURI string `json:"cmd_variant_uri,omitempty"`

	// Properties holds every vendor property of the message flow, serialized
	// as a JSON object with sorted keys.
	Properties json.RawMessage `json:"properties"`
}

package extract

import (
	stdjson "encoding/json"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/internal/bpmn"
)

// jsonCodec sorts map keys, so serialized properties are byte-stable.
var jsonCodec = json.ConfigCompatibleWithStandardLibrary

// ExtractedAdapter is the raw adapter candidate of one message flow.
type ExtractedAdapter struct {
	Name          string
	ComponentType string
	// Category is the raw "direction" property, e.g. "Sender".
	Category      string
	CmdVariantURI string
	Address       string
	// RawProperties is every property of the flow as a JSON object.
	RawProperties stdjson.RawMessage
}

// addressKeys are tried in order for the endpoint address.
var addressKeys = []string{"address", "httpAddressWithoutQuery", "Host", "host", "urlPath"}

// AdapterExtractor turns message flows into adapter candidates.
type AdapterExtractor struct {
	logger *zap.Logger
}

// NewAdapterExtractor creates an AdapterExtractor.
func NewAdapterExtractor(logger *zap.Logger) *AdapterExtractor {
	return &AdapterExtractor{logger: logger.Named("adapter_extractor")}
}

// Extract emits one candidate per message flow that names a component type
// or a direction. A document without message flows yields an empty result.
func (e *AdapterExtractor) Extract(doc *bpmn.Document) ([]ExtractedAdapter, []Skip) {
	adapters := []ExtractedAdapter{}
	var skips []Skip
	for _, mf := range doc.MessageFlows() {
		adapter, skip := e.extractFlow(mf)
		if skip != nil {
			skips = append(skips, *skip)
			continue
		}
		adapters = append(adapters, adapter)
	}
	e.logger.Debug("Adapter extraction complete", zap.Int("adapters", len(adapters)), zap.Int("skipped", len(skips)))
	return adapters, skips
}

func (e *AdapterExtractor) extractFlow(mf bpmn.MessageFlow) (ExtractedAdapter, *Skip) {
	name := flowName(mf)
	componentType := strings.TrimSpace(bpmn.GetProperty(mf.Properties, "ComponentType"))
	direction := strings.TrimSpace(bpmn.GetProperty(mf.Properties, "direction"))

	if isUnknown(componentType) && isUnknown(direction) {
		s := newSkip(e.logger, "adapter", name, "no component type or direction", mf.Properties)
		return ExtractedAdapter{}, &s
	}
	if componentType == "" {
		componentType = "Unknown"
	}

	raw, err := jsonCodec.Marshal(bpmn.PropertyMap(mf.Properties))
	if err != nil {
		e.logger.Error("Failed to serialize adapter properties", zap.String("adapter", name), zap.Error(err))
		raw = []byte("{}")
	}

	var address string
	for _, key := range addressKeys {
		if v := bpmn.GetProperty(mf.Properties, key); v != "" {
			address = v
			break
		}
	}

	return ExtractedAdapter{
		Name:          name,
		ComponentType: componentType,
		Category:      direction,
		CmdVariantURI: bpmn.GetProperty(mf.Properties, "cmdVariantUri"),
		Address:       address,
		RawProperties: raw,
	}, nil
}

func isUnknown(s string) bool {
	return s == "" || strings.EqualFold(s, "unknown")
}

package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/extract"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestTruncate(t *testing.T) {
	out, cut := Truncate("hello", 10)
	assert.Equal(t, "hello", out)
	assert.False(t, cut)

	out, cut = Truncate("héllo wörld", 5)
	assert.Equal(t, "héllo", out, "counts runes, not bytes")
	assert.True(t, cut)

	out, cut = Truncate("anything", 0)
	assert.Equal(t, "anything", out)
	assert.False(t, cut)
}

func TestValidationWarning(t *testing.T) {
	w := ValidationWarning{Stage: "adapter", Subject: "HTTPS", Reason: "missing name"}
	assert.Equal(t, `adapter: dropped "HTTPS": missing name`, w.Error())
	d := w.Diagnostic()
	assert.Equal(t, schemas.DiagnosticValidation, d.Kind)
	assert.Equal(t, "adapter", d.Stage)
}

func TestAdapterProcessor(t *testing.T) {
	t.Run("should canonicalize category and direction", func(t *testing.T) {
		logger, _ := observedLogger()
		p := NewAdapterProcessor(0, logger)

		got, diags := p.Process("Orders", []extract.ExtractedAdapter{
			{Name: "IN", ComponentType: "HTTPS", Category: "Sender", RawProperties: []byte(`{"a":"b"}`)},
			{Name: "OUT", ComponentType: "SOAP", Category: "receiver"},
			{Name: "POLL", ComponentType: "SFTP Poller", Category: "Unknown"},
			{Name: "ODD", ComponentType: "ProcessDirect", Category: ""},
		})
		assert.Empty(t, diags)
		require.Len(t, got, 4)

		assert.Equal(t, "Orders", got[0].ArtifactID)
		assert.Equal(t, schemas.CategorySender, got[0].Category)
		assert.Equal(t, schemas.DirectionInbound, got[0].Direction)
		assert.JSONEq(t, `{"a":"b"}`, string(got[0].Properties))

		assert.Equal(t, schemas.CategoryReceiver, got[1].Category)
		assert.Equal(t, schemas.DirectionOutbound, got[1].Direction)
		assert.JSONEq(t, `{}`, string(got[1].Properties))

		assert.Equal(t, schemas.CategoryUnknown, got[2].Category)
		assert.Equal(t, schemas.DirectionInbound, got[2].Direction, "guessed from the component type")

		assert.Equal(t, schemas.DirectionUnknown, got[3].Direction, "defaults to Unknown")
	})

	t.Run("should drop records without name or type", func(t *testing.T) {
		logger, logs := observedLogger()
		got, diags := NewAdapterProcessor(0, logger).Process("A", []extract.ExtractedAdapter{
			{Name: "  ", ComponentType: "HTTPS"},
			{Name: "X", ComponentType: ""},
			{Name: "OK", ComponentType: "HTTPS"},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "OK", got[0].Name)
		require.Len(t, diags, 2)
		assert.Equal(t, schemas.DiagnosticValidation, diags[0].Kind)
		assert.Equal(t, "missing name", diags[0].Reason)
		assert.Equal(t, "missing component type", diags[1].Reason)
		assert.Equal(t, 2, logs.FilterMessage("Dropping invalid record").Len())
	})

	t.Run("should truncate long fields", func(t *testing.T) {
		logger, _ := observedLogger()
		long := strings.Repeat("a", 20)
		got, diags := NewAdapterProcessor(8, logger).Process("A", []extract.ExtractedAdapter{
			{Name: long, ComponentType: "HTTPS", Address: long},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "aaaaaaaa", got[0].Name)
		assert.Equal(t, "aaaaaaaa", got[0].Address)
		require.Len(t, diags, 2)
		assert.Equal(t, schemas.DiagnosticTruncation, diags[0].Kind)
		assert.Equal(t, "name exceeded 8 characters", diags[0].Reason)
	})
}

func TestSecurityProcessor(t *testing.T) {
	t.Run("should map types and keep directions", func(t *testing.T) {
		logger, _ := observedLogger()
		p := NewSecurityProcessor(0, logger)

		got, diags := p.Process("A", []extract.ExtractedSecurityMechanism{
			{Name: "HTTPS_IN_BasicAuthentication", Type: "BasicAuthentication", Direction: "Inbound",
				Configuration: map[string]any{schemas.ConfigKeyAuthMethod: "BasicAuthentication"}},
			{Name: "ODATA_OUT_CSRF", Type: "CSRF Protection", Direction: "Outbound",
				Configuration: map[string]any{"isCSRFEnabled": true}},
			{Name: "IN_XSRF", Type: "XSRF Protection", Direction: "Inbound",
				Configuration: map[string]any{schemas.ConfigKeyEnabled: false}},
			{Name: "WEIRD", Type: "Kerberos"},
		})
		assert.Empty(t, diags)
		require.Len(t, got, 4)

		assert.Equal(t, schemas.SecurityTypeBasicAuth, got[0].Type)
		assert.Equal(t, schemas.DirectionInbound, got[0].Direction)
		assert.True(t, got[0].Enabled)
		assert.Equal(t, "BasicAuthentication", got[0].Configuration[schemas.ConfigKeyAuthMethod])

		assert.Equal(t, schemas.SecurityTypeCSRF, got[1].Type)
		assert.Equal(t, "true", got[1].Configuration["isCSRFEnabled"])

		assert.False(t, got[2].Enabled)

		assert.Equal(t, schemas.SecurityTypeUnknown, got[3].Type)
		assert.Equal(t, "Kerberos", got[3].Configuration["raw_type"])
		assert.Equal(t, schemas.DirectionInbound, got[3].Direction, "defaults to Inbound")
	})

	t.Run("direction fallback chain", func(t *testing.T) {
		logger, _ := observedLogger()
		got, _ := NewSecurityProcessor(0, logger).Process("A", []extract.ExtractedSecurityMechanism{
			{Name: "explicit", Type: "CSRF", Direction: "Inbound"},
			{Name: "category", Type: "Basic", Configuration: map[string]any{"category": "Receiver"}},
			{Name: "type", Type: "Client Certificate"},
			{Name: "default", Type: "OAuth"},
		})
		require.Len(t, got, 4)
		assert.Equal(t, schemas.DirectionInbound, got[0].Direction)
		assert.Equal(t, schemas.DirectionOutbound, got[1].Direction)
		assert.Equal(t, schemas.DirectionOutbound, got[2].Direction)
		assert.Equal(t, schemas.DirectionInbound, got[3].Direction)
	})

	t.Run("deduplication law", func(t *testing.T) {
		logger, _ := observedLogger()
		got, _ := NewSecurityProcessor(0, logger).Process("A", []extract.ExtractedSecurityMechanism{
			{Name: "X", Type: "Basic", Direction: "Inbound", Configuration: map[string]any{"n": 1}},
			{Name: "X", Type: "OAuth", Direction: "Inbound", Configuration: map[string]any{"n": 2}},
			{Name: "X", Type: "Basic", Direction: "Outbound"},
			{Name: "Y", Type: "Basic", Direction: "Inbound"},
			{Name: "X", Type: "JWT", Direction: "Inbound"},
		})
		require.Len(t, got, 3)
		assert.Equal(t, "X", got[0].Name)
		assert.Equal(t, "1", got[0].Configuration["n"], "first occurrence is kept")
		assert.Equal(t, schemas.DirectionOutbound, got[1].Direction)
		assert.Equal(t, "Y", got[2].Name)

		seen := map[string]int{}
		for _, m := range got {
			seen[m.Name+"|"+string(m.Direction)]++
		}
		for k, n := range seen {
			assert.Equal(t, 1, n, k)
		}
	})

	t.Run("should drop records without name or type", func(t *testing.T) {
		logger, _ := observedLogger()
		got, diags := NewSecurityProcessor(0, logger).Process("A", []extract.ExtractedSecurityMechanism{
			{Name: "", Type: "Basic"},
			{Name: "N", Type: " "},
		})
		assert.Empty(t, got)
		require.Len(t, diags, 2)
	})

	t.Run("classify into buckets", func(t *testing.T) {
		logger, _ := observedLogger()
		p := NewSecurityProcessor(0, logger)
		buckets := p.Classify([]schemas.SecurityMechanism{
			{Name: "a", Type: schemas.SecurityTypeOAuth},
			{Name: "b", Type: schemas.SecurityTypeRoleBased},
			{Name: "c", Type: schemas.SecurityTypeClientCertificate},
			{Name: "d", Type: schemas.SecurityTypeLogging},
			{Name: "e", Type: schemas.SecurityTypeCORS},
			{Name: "f", Type: schemas.SecurityTypeUnknown},
			{Name: "g", Type: schemas.SecurityTypeJWT},
		})
		assert.Len(t, buckets[schemas.BucketAuthentication], 2)
		assert.Equal(t, "a", buckets[schemas.BucketAuthentication][0].Name)
		assert.Len(t, buckets[schemas.BucketAuthorization], 1)
		assert.Len(t, buckets[schemas.BucketEncryption], 1)
		assert.Len(t, buckets[schemas.BucketLogging], 1)
		assert.Len(t, buckets[schemas.BucketProtection], 1)
		assert.Len(t, buckets[schemas.BucketOther], 1)
	})

	t.Run("recommendations", func(t *testing.T) {
		logger, _ := observedLogger()
		recs := NewSecurityProcessor(0, logger).Recommendations([]schemas.SecurityMechanism{
			{Name: "Collaboration_DebugSecurity", Type: schemas.SecurityTypeDebug, Enabled: true},
			{Name: "IN_XSRF", Type: schemas.SecurityTypeXSRF, Direction: schemas.DirectionInbound, Enabled: false},
			{Name: "fine", Type: schemas.SecurityTypeBasicAuth, Enabled: true},
		})
		require.Len(t, recs, 2)
		assert.Equal(t, "SEC-DEBUG-TRACE", recs[0].Code)
		assert.Equal(t, "SEC-DISABLED", recs[1].Code)
		assert.Equal(t, "XSRF Protection is explicitly disabled on an inbound endpoint.", recs[1].Message)
	})
}

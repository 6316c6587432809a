// Package taxonomy maps free-form vendor strings onto the closed enums of
// api/schemas. Every mapping consults an exact table first, then an ordered
// list of substring rules, and ends in an explicit Unknown.
package taxonomy

import (
	"strings"

	"github.com/xkilldash9x/flowlens/api/schemas"
)

// rule maps any input containing one of needles onto value.
type rule[T any] struct {
	needles []string
	value   T
}

// canonicalKey folds case and drops separators, so "Basic Authentication",
// "basic_authentication" and "BasicAuthentication" share a key.
func canonicalKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lookup[T any](s string, table map[string]T, rules []rule[T], unknown T) (T, bool) {
	key := canonicalKey(s)
	if key == "" {
		return unknown, false
	}
	if v, ok := table[key]; ok {
		return v, true
	}
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(key, needle) {
				return r.value, true
			}
		}
	}
	return unknown, false
}

// -- Security types --

var securityTable = func() map[string]schemas.SecurityType {
	m := map[string]schemas.SecurityType{
		"oauth2":                    schemas.SecurityTypeOAuth,
		"oauth2clientcredentials":   schemas.SecurityTypeOAuth,
		"oauth2authorizationcode":   schemas.SecurityTypeOAuth,
		"oauth2samlbearerassertion": schemas.SecurityTypeSAML,
		"basic":                     schemas.SecurityTypeBasicAuth,
		"basicauth":                 schemas.SecurityTypeBasicAuth,
		"clientcert":                schemas.SecurityTypeClientCertificate,
		"certificate":               schemas.SecurityTypeClientCertificate,
		"x509":                      schemas.SecurityTypeClientCertificate,
		"principalpropagation":      schemas.SecurityTypeSAML,
		"csrf":                      schemas.SecurityTypeCSRF,
		"xsrf":                      schemas.SecurityTypeXSRF,
		"rolebased":                 schemas.SecurityTypeRoleBased,
		"userrole":                  schemas.SecurityTypeRoleBased,
		"exceptionhandling":         schemas.SecurityTypeExceptionHandling,
		"returnexceptiontosender":   schemas.SecurityTypeExceptionHandling,
		"logging":                   schemas.SecurityTypeLogging,
		"servertrace":               schemas.SecurityTypeDebug,
	}
	for _, t := range schemas.SecurityTypes {
		m[canonicalKey(string(t))] = t
	}
	return m
}()

// Order matters: "oauth" before "saml" and "cert" before "basic".
var securityRules = []rule[schemas.SecurityType]{
	{[]string{"oauth"}, schemas.SecurityTypeOAuth},
	{[]string{"saml"}, schemas.SecurityTypeSAML},
	{[]string{"jwt", "bearertoken"}, schemas.SecurityTypeJWT},
	{[]string{"cert", "x509", "mtls"}, schemas.SecurityTypeClientCertificate},
	{[]string{"basic"}, schemas.SecurityTypeBasicAuth},
	{[]string{"csrf"}, schemas.SecurityTypeCSRF},
	{[]string{"xsrf"}, schemas.SecurityTypeXSRF},
	{[]string{"cors"}, schemas.SecurityTypeCORS},
	{[]string{"role"}, schemas.SecurityTypeRoleBased},
	{[]string{"exception"}, schemas.SecurityTypeExceptionHandling},
	{[]string{"logging"}, schemas.SecurityTypeLogging},
	{[]string{"trace", "debug"}, schemas.SecurityTypeDebug},
}

// SecurityType maps a vendor authentication or protection string onto the
// canonical taxonomy. The boolean is false when the result is the Unknown
// fallback.
func SecurityType(s string) (schemas.SecurityType, bool) {
	t, ok := lookup(s, securityTable, securityRules, schemas.SecurityTypeUnknown)
	return t, ok && t != schemas.SecurityTypeUnknown
}

// Bucket groups a canonical security type for reporting.
func Bucket(t schemas.SecurityType) schemas.SecurityBucket {
	switch t {
	case schemas.SecurityTypeOAuth, schemas.SecurityTypeBasicAuth, schemas.SecurityTypeSAML, schemas.SecurityTypeJWT:
		return schemas.BucketAuthentication
	case schemas.SecurityTypeRoleBased:
		return schemas.BucketAuthorization
	case schemas.SecurityTypeClientCertificate:
		return schemas.BucketEncryption
	case schemas.SecurityTypeLogging, schemas.SecurityTypeDebug:
		return schemas.BucketLogging
	case schemas.SecurityTypeCSRF, schemas.SecurityTypeXSRF, schemas.SecurityTypeCORS, schemas.SecurityTypeExceptionHandling:
		return schemas.BucketProtection
	default:
		return schemas.BucketOther
	}
}

// -- Categories and directions --

var categoryTable = map[string]schemas.AdapterCategory{
	"sender":   schemas.CategorySender,
	"receiver": schemas.CategoryReceiver,
	"unknown":  schemas.CategoryUnknown,
}

var categoryRules = []rule[schemas.AdapterCategory]{
	{[]string{"sender", "inbound"}, schemas.CategorySender},
	{[]string{"receiver", "outbound"}, schemas.CategoryReceiver},
}

// Category maps a raw "direction" property value onto an adapter category.
func Category(s string) (schemas.AdapterCategory, bool) {
	c, ok := lookup(s, categoryTable, categoryRules, schemas.CategoryUnknown)
	return c, ok && c != schemas.CategoryUnknown
}

var directionTable = map[string]schemas.Direction{
	"inbound":  schemas.DirectionInbound,
	"in":       schemas.DirectionInbound,
	"outbound": schemas.DirectionOutbound,
	"out":      schemas.DirectionOutbound,
	"unknown":  schemas.DirectionUnknown,
}

var directionRules = []rule[schemas.Direction]{
	{[]string{"inbound"}, schemas.DirectionInbound},
	{[]string{"outbound"}, schemas.DirectionOutbound},
}

// Direction parses an explicit direction value.
func Direction(s string) (schemas.Direction, bool) {
	d, ok := lookup(s, directionTable, directionRules, schemas.DirectionUnknown)
	return d, ok && d != schemas.DirectionUnknown
}

// AdapterDirection is the flow direction of the adapter itself: a Sender
// adapter carries traffic into the process.
func AdapterDirection(c schemas.AdapterCategory) (schemas.Direction, bool) {
	switch c {
	case schemas.CategorySender:
		return schemas.DirectionInbound, true
	case schemas.CategoryReceiver:
		return schemas.DirectionOutbound, true
	}
	return schemas.DirectionUnknown, false
}

// SecurityDirection is the direction a mechanism protects. A Sender adapter
// receives calls that authenticate inward; a Receiver adapter authenticates
// outward. It coincides with AdapterDirection.
func SecurityDirection(c schemas.AdapterCategory) (schemas.Direction, bool) {
	return AdapterDirection(c)
}

var adapterTypeRules = []rule[schemas.Direction]{
	{[]string{"sender", "inbound", "listener", "poll"}, schemas.DirectionInbound},
	{[]string{"receiver", "outbound"}, schemas.DirectionOutbound},
}

// AdapterDirectionFromType guesses a direction from a component type string.
func AdapterDirectionFromType(componentType string) (schemas.Direction, bool) {
	d, ok := lookup[schemas.Direction](componentType, nil, adapterTypeRules, schemas.DirectionUnknown)
	return d, ok
}

// SecurityDirectionFromType guesses the usual direction of a mechanism type.
func SecurityDirectionFromType(t schemas.SecurityType) (schemas.Direction, bool) {
	switch t {
	case schemas.SecurityTypeCSRF, schemas.SecurityTypeClientCertificate:
		return schemas.DirectionOutbound, true
	case schemas.SecurityTypeXSRF, schemas.SecurityTypeRoleBased, schemas.SecurityTypeCORS,
		schemas.SecurityTypeExceptionHandling, schemas.SecurityTypeLogging, schemas.SecurityTypeDebug:
		return schemas.DirectionInbound, true
	}
	return schemas.DirectionUnknown, false
}

// -- Booleans --

var truthy = map[string]bool{
	"true": true, "1": true, "yes": true, "y": true, "on": true, "enabled": true, "x": true,
}

var falsy = map[string]bool{
	"false": true, "0": true, "no": true, "n": true, "off": true, "disabled": true, "none": true, "": true,
}

// CoerceBool converts boolean-like input to a strict boolean. Strings are
// matched case-insensitively against a fixed true set; everything else,
// including unrecognized strings, is false.
func CoerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return truthy[strings.ToLower(strings.TrimSpace(b))]
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	}
	return false
}

// IsFalsy reports whether s is an explicit negative or empty value.
func IsFalsy(s string) bool {
	return falsy[strings.ToLower(strings.TrimSpace(s))]
}

// IsNone reports whether s is empty or the vendor placeholder "None".
func IsNone(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "none")
}

// Package openapi embeds the OpenAPI document of the timetable HTTP API.
package openapi

import _ "embed"

// TimetableSpec is the OpenAPI YAML served at /api/v1/openapi.yaml.
//
//go:embed timetable.yaml
var TimetableSpec []byte

// Spec returns a copy of the embedded OpenAPI YAML.
func Spec() []byte {
	return append([]byte(nil), TimetableSpec...)
}

// Package api embeds the OpenAPI document of the machine HTTP API.
package api

import _ "embed"

// Spec is the raw OpenAPI 3 document, served at /openapi.yaml and used to
// validate incoming requests.
//
//go:embed openapi.yaml
var Spec []byte

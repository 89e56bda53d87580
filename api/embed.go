// Package api embeds the ChannelVault OpenAPI document served at /api/docs/openapi.yaml.
package api

import _ "embed"

//go:embed openapi.yaml
var OpenAPISpec []byte

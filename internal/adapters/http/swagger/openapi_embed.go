package swagger

import _ "embed"

// OpenAPI is the embedded openapi.yaml document served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte

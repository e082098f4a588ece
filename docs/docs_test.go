package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestRegisteredDocIsValidJSON(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatal(err)
	}

	var parsed struct {
		BasePath string                     `json:"basePath"`
		Paths    map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("doc is not JSON: %v", err)
	}
	if parsed.BasePath != "/api/v1" {
		t.Errorf("basePath = %q", parsed.BasePath)
	}
	for _, path := range []string{"/profiles", "/printers/{printer_id}/jobs", "/render", "/discovery/scan"} {
		if _, ok := parsed.Paths[path]; !ok {
			t.Errorf("doc is missing %s", path)
		}
	}
}

// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/profiles": {
            "get": {"tags": ["Profiles"], "summary": "List printer profiles", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/profiles/reload": {
            "post": {"tags": ["Profiles"], "summary": "Reload the profile file", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "No profile file configured"}}}
        },
        "/profiles/{model}": {
            "get": {"tags": ["Profiles"], "summary": "Get a printer profile", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "model", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown model"}}}
        },
        "/codepages": {
            "get": {"tags": ["Profiles"], "summary": "List supported code pages", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/printers": {
            "get": {"tags": ["Printers"], "summary": "List printers", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "model", "in": "query"},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Printers"], "summary": "Register a printer", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}, "409": {"description": "Name taken"}}}
        },
        "/printers/{printer_id}": {
            "get": {"tags": ["Printers"], "summary": "Get a printer", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "printer_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["Printers"], "summary": "Update a printer", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "printer_id", "in": "path", "required": true}, {"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid request"}, "404": {"description": "Not found"}}},
            "delete": {"tags": ["Printers"], "summary": "Remove a printer", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "printer_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/printers/{printer_id}/status": {
            "get": {"tags": ["Printers"], "summary": "Query real-time printer status", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "printer_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "502": {"description": "Transport error"}, "504": {"description": "Printer did not answer"}}}
        },
        "/printers/{printer_id}/jobs": {
            "post": {"tags": ["Jobs"], "summary": "Submit a print document", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "printer_id", "in": "path", "required": true},
                    {"type": "boolean", "name": "wait", "in": "query"},
                    {"name": "document", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "Printed"}, "202": {"description": "Queued"}, "400": {"description": "Invalid document"}, "409": {"description": "Unsupported feature"}, "422": {"description": "Unprintable content"}, "503": {"description": "Queue full"}}}
        },
        "/render": {
            "post": {"tags": ["Jobs"], "summary": "Compose a document without printing", "consumes": ["application/json"], "produces": ["application/json", "application/octet-stream"],
                "parameters": [
                    {"type": "string", "name": "model", "in": "query"},
                    {"type": "string", "name": "format", "in": "query", "enum": ["base64", "hex", "binary"]},
                    {"name": "document", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid document"}, "409": {"description": "Unsupported feature"}, "422": {"description": "Unprintable content"}}}
        },
        "/jobs": {
            "get": {"tags": ["Jobs"], "summary": "List print jobs", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "printer_id", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "since", "in": "query"},
                    {"type": "string", "name": "until", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/jobs/stats": {
            "get": {"tags": ["Jobs"], "summary": "Job statistics", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "printer_id", "in": "query"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/jobs/{job_id}": {
            "get": {"tags": ["Jobs"], "summary": "Get a print job", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "job_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/discovery/scan": {
            "get": {"tags": ["Discovery"], "summary": "Scan for printers", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "types", "in": "query", "description": "Comma separated connection types (usb, serial, tcp)"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown connection type"}}}
        },
        "/discovery/types": {
            "get": {"tags": ["Discovery"], "summary": "Scannable connection types", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8084",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ESC/POS Print Service API",
	Description:      "Composes ESC/POS command streams from print documents and delivers them to receipt printers",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs holds the OpenAPI description of the health surface,
// registered with swag so http-swagger can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "dualserve maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "description": "Returns 200 while the supervisor process is alive.",
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Liveness",
                "responses": {
                    "200": {"description": "ok", "schema": {"type": "string"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Probes every running service and folds the results with the configured policy.",
                "produces": ["text/plain"],
                "tags": ["health"],
                "summary": "Aggregated readiness",
                "responses": {
                    "200": {"description": "ready", "schema": {"type": "string"}},
                    "503": {"description": "not ready", "schema": {"type": "string"}}
                }
            }
        },
        "/status": {
            "get": {
                "description": "Supervisor state, per-service process state and per-probe readiness.",
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Supervisor status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 500},
                "error": {"type": "string", "example": "encode failed"}
            }
        },
        "types.ProbeStatus": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "latency_ms": {"type": "integer", "example": 3},
                "name": {"type": "string", "example": "ui"},
                "ready": {"type": "boolean"},
                "status_code": {"type": "integer", "example": 200},
                "url": {"type": "string", "example": "http://127.0.0.1:8501/_stcore/health"}
            }
        },
        "types.ServiceStatus": {
            "type": "object",
            "properties": {
                "addr": {"type": "string", "example": "0.0.0.0:8000"},
                "exit_code": {"type": "integer", "example": 0},
                "forced": {"type": "boolean"},
                "name": {"type": "string", "example": "predict"},
                "pid": {"type": "integer", "example": 12345},
                "signal": {"type": "string", "example": "terminated"},
                "started_unix": {"type": "integer", "example": 1700000000},
                "state": {"type": "string", "example": "running"},
                "stop_requested": {"type": "boolean"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "mode": {"type": "string", "example": "Both"},
                "policy": {"type": "string", "example": "any"},
                "probes": {"type": "array", "items": {"$ref": "#/definitions/types.ProbeStatus"}},
                "ready": {"type": "boolean"},
                "server_time_unix": {"type": "integer", "example": 1700000000},
                "supervisor": {"$ref": "#/definitions/types.SupervisorStatus"}
            }
        },
        "types.SupervisorStatus": {
            "type": "object",
            "properties": {
                "cause": {"type": "string", "example": "service ui (pid 4242) exited with code 1"},
                "exit_code": {"type": "integer"},
                "run_id": {"type": "string", "example": "3f0b5f9e-1c1d-4a0e-9f3c-2b8e4c1d9a77"},
                "services": {"type": "array", "items": {"$ref": "#/definitions/types.ServiceStatus"}},
                "state": {"type": "string", "example": "running"},
                "uptime_seconds": {"type": "integer", "example": 3600}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "dualserve health API",
	Description:      "Health and status surface of the dualserve service supervisor.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

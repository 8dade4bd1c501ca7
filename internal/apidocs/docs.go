// Package apidocs registers the OpenAPI document served under /swagger/.
// The template follows swag's generated layout; keep it in sync with the
// handler annotations.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/cards": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cards"],
                "summary": "Generate cards",
                "parameters": [
                    {
                        "description": "Answer history and running card count",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/generator.Input"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/generator.cardsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/generator.errorResponse"}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/generator.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/generator.errorResponse"}}
                }
            }
        },
        "/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Load session",
                "parameters": [
                    {"type": "string", "description": "Client identifier", "name": "client_id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.State"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/session.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/session.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Save session",
                "parameters": [
                    {
                        "description": "Session state",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/session.writeRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.successResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/session.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/session.errorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["session"],
                "summary": "Delete session",
                "parameters": [
                    {"type": "string", "description": "Client identifier", "name": "client_id", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/session.successResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/session.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/session.errorResponse"}}
                }
            }
        },
        "/stats/generations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Generation statistics",
                "parameters": [
                    {"type": "string", "description": "Breakdown dimension (phase, error_type, backend_variant)", "name": "group_by", "in": "query"},
                    {"type": "string", "description": "RFC 3339 start time", "name": "start_time", "in": "query"},
                    {"type": "string", "description": "RFC 3339 end time", "name": "end_time", "in": "query"},
                    {"type": "integer", "description": "Maximum breakdown rows", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.statsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/stats/generations/failures": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Failed generations",
                "parameters": [
                    {"type": "string", "description": "Phase name", "name": "phase", "in": "query"},
                    {"type": "string", "description": "Error type, e.g. MalformedOutput", "name": "error_type", "in": "query"},
                    {"type": "string", "description": "RFC 3339 start time", "name": "start_time", "in": "query"},
                    {"type": "string", "description": "RFC 3339 end time", "name": "end_time", "in": "query"},
                    {"type": "integer", "description": "Maximum rows (default 20, max 100)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.failuresResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "cards.AnswerRecord": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "answer": {"type": "boolean"}
            }
        },
        "cards.Card": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string", "enum": ["question", "insight"]},
                "question": {"type": "string"},
                "category": {"type": "string"},
                "insight": {"type": "string"}
            }
        },
        "generator.Input": {
            "type": "object",
            "properties": {
                "history": {"type": "array", "items": {"$ref": "#/definitions/cards.AnswerRecord"}},
                "current_count": {"type": "integer"}
            }
        },
        "generator.cardsResponse": {
            "type": "object",
            "properties": {
                "cards": {"type": "array", "items": {"$ref": "#/definitions/cards.Card"}}
            }
        },
        "generator.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "error_type": {"type": "string"},
                "response_debug": {"type": "string"},
                "output_debug": {"type": "string"}
            }
        },
        "session.State": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/cards.AnswerRecord"}},
                "current_index": {"type": "integer"},
                "cards": {"type": "array", "items": {"$ref": "#/definitions/cards.Card"}},
                "updated_at": {"type": "string"}
            }
        },
        "session.writeRequest": {
            "type": "object",
            "properties": {
                "client_id": {"type": "string"},
                "history": {"type": "array", "items": {"$ref": "#/definitions/cards.AnswerRecord"}},
                "current_index": {"type": "integer"},
                "cards": {"type": "array", "items": {"$ref": "#/definitions/cards.Card"}}
            }
        },
        "session.successResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}}
        },
        "session.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "server.statsResponse": {
            "type": "object",
            "properties": {
                "overview": {"type": "object"},
                "breakdown": {"type": "array", "items": {"type": "object"}}
            }
        },
        "audit.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "timestamp": {"type": "string"},
                "duration_ms": {"type": "integer"},
                "request_id": {"type": "string"},
                "phase": {"type": "string"},
                "current_count": {"type": "integer"},
                "history_len": {"type": "integer"},
                "card_count": {"type": "integer"},
                "backend_variant": {"type": "string"},
                "success": {"type": "boolean"},
                "error_type": {"type": "string"},
                "error_message": {"type": "string"},
                "raw_output": {"type": "string"}
            }
        },
        "server.failuresResponse": {
            "type": "object",
            "properties": {
                "failures": {"type": "array", "items": {"$ref": "#/definitions/audit.Event"}}
            }
        },
        "server.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Swipe Therapy API",
	Description:      "Card generation and session persistence for the swipe therapy client.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

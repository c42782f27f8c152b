// Package docs holds the OpenAPI description served under /swagger.
package docs

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
        "/events": {
            "post": {
                "description": "Classify an event by type and publish it to its destination topic",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Publish an event",
                "parameters": [
                    {
                        "description": "Event",
                        "name": "event",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/publisher.PublishEventRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/publisher.Result"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/routes": {
            "get": {
                "description": "List consumer routes and their status",
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "List consumer routes",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/route.Info"}}}
                }
            }
        },
        "/routes/{id}/suspend": {
            "post": {
                "description": "Stop consuming for a route, keeping uncommitted messages for redelivery",
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "Suspend a consumer route",
                "parameters": [{"type": "string", "description": "Route ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/route.Info"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/routes/{id}/resume": {
            "post": {
                "description": "Start consuming for a suspended or stopped route",
                "produces": ["application/json"],
                "tags": ["routes"],
                "summary": "Resume a consumer route",
                "parameters": [{"type": "string", "description": "Route ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/route.Info"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "publisher.PublishEventRequest": {
            "type": "object",
            "required": ["eventType"],
            "properties": {
                "eventType": {"type": "string"},
                "payload": {"type": "object"},
                "headers": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "publisher.Result": {
            "type": "object",
            "properties": {
                "destination": {"type": "string"},
                "dedupKey": {"type": "string"}
            }
        },
        "route.Info": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "topic": {"type": "string"},
                "status": {"type": "string"},
                "lastError": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Integration Gateway API",
	Description:      "Event publishing, consumer route administration and health for the integration gateway.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

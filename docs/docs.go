// Package docs registers the main service's OpenAPI document with swag so /swagger/ can serve it.
// The document is maintained by hand; keep it in step with the controller annotations.
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
            "get": {
                "description": "Full-text and filter search over published events. Without rangeStart and rangeEnd only upcoming events are returned. sort is EVENT_DATE (default), VIEWS or RATING.",
                "produces": ["application/json"],
                "tags": ["public"],
                "summary": "Search published events",
                "parameters": [
                    {"type": "string", "name": "text", "in": "query"},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "categories", "in": "query"},
                    {"type": "boolean", "name": "paid", "in": "query"},
                    {"type": "string", "description": "yyyy-MM-dd HH:mm:ss", "name": "rangeStart", "in": "query"},
                    {"type": "string", "description": "yyyy-MM-dd HH:mm:ss", "name": "rangeEnd", "in": "query"},
                    {"type": "boolean", "name": "onlyAvailable", "in": "query"},
                    {"type": "string", "description": "EVENT_DATE, VIEWS or RATING", "name": "sort", "in": "query"},
                    {"type": "integer", "name": "from", "in": "query"},
                    {"type": "integer", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/events/{eventID}": {
            "get": {
                "description": "Returns a published event with its unique view count. Events that are not published are reported as not found.",
                "produces": ["application/json"],
                "tags": ["public"],
                "summary": "Get a published event",
                "parameters": [{"type": "string", "name": "eventID", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "404": {"description": "error.code: not_found", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/users/me/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["owner"],
                "summary": "List the caller's events",
                "parameters": [
                    {"type": "integer", "name": "from", "in": "query"},
                    {"type": "integer", "name": "size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}}
            },
            "post": {
                "description": "Creates a pending event owned by the caller. The event date must be at least two hours ahead.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["owner"],
                "summary": "Create an event",
                "parameters": [{"name": "event", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.NewEventRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/users/me/events/{eventID}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["owner"],
                "summary": "Get one of the caller's events",
                "parameters": [{"type": "string", "name": "eventID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}}
            },
            "patch": {
                "description": "Edits fields and optionally applies SEND_TO_REVIEW or CANCEL_REVIEW. Published events cannot be changed.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["owner"],
                "summary": "Update one of the caller's events",
                "parameters": [
                    {"type": "string", "name": "eventID", "in": "path", "required": true},
                    {"name": "event", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.UpdateEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: conflict", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/users/me/events/{eventID}/requests": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["owner"],
                "summary": "List participation requests of one of the caller's events",
                "parameters": [{"type": "string", "name": "eventID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}}
            },
            "patch": {
                "description": "Resolves a batch of pending requests of the caller's event. Confirmation stops at the participant limit and the overflow of the batch is rejected. Requests outside the batch are not touched.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["owner"],
                "summary": "Confirm or reject pending participation requests",
                "parameters": [
                    {"type": "string", "name": "eventID", "in": "path", "required": true},
                    {"name": "update", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.UpdateRequestStatusesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: conflict", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/users/me/requests": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "List the caller's participation requests",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}}
            },
            "post": {
                "description": "Creates a participation request. It is confirmed at once when the event does not need confirmation.",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "Ask to take part in an event",
                "parameters": [{"type": "string", "name": "eventId", "in": "query", "required": true}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: conflict", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/users/me/requests/{requestID}/cancel": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["requests"],
                "summary": "Cancel one of the caller's participation requests",
                "parameters": [{"type": "string", "name": "requestID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}}
            }
        },
        "/admin/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Search events for moderation",
                "parameters": [
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "users", "in": "query"},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "states", "in": "query"},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "categories", "in": "query"},
                    {"type": "string", "name": "rangeStart", "in": "query"},
                    {"type": "string", "name": "rangeEnd", "in": "query"},
                    {"type": "integer", "name": "from", "in": "query"},
                    {"type": "integer", "name": "size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}}
            }
        },
        "/admin/events/{eventID}": {
            "patch": {
                "description": "Edits fields and optionally applies PUBLISH_EVENT or REJECT_EVENT. Only pending events can be published or rejected.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Moderate an event",
                "parameters": [
                    {"type": "string", "name": "eventID", "in": "path", "required": true},
                    {"name": "event", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.UpdateEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: conflict", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Location": {
            "type": "object",
            "properties": {"lat": {"type": "number"}, "lon": {"type": "number"}}
        },
        "controllers.NewEventRequest": {
            "type": "object",
            "properties": {
                "category_id": {"type": "string"},
                "title": {"type": "string"},
                "annotation": {"type": "string"},
                "description": {"type": "string"},
                "location": {"$ref": "#/definitions/domain.Location"},
                "event_date": {"type": "string", "example": "2026-12-01 19:00:00"},
                "paid": {"type": "boolean"},
                "participant_limit": {"type": "integer"},
                "request_moderation": {"type": "boolean"}
            }
        },
        "controllers.UpdateEventRequest": {
            "type": "object",
            "properties": {
                "category_id": {"type": "string"},
                "title": {"type": "string"},
                "annotation": {"type": "string"},
                "description": {"type": "string"},
                "location": {"$ref": "#/definitions/domain.Location"},
                "event_date": {"type": "string"},
                "paid": {"type": "boolean"},
                "participant_limit": {"type": "integer"},
                "request_moderation": {"type": "boolean"},
                "state_action": {"type": "string", "enum": ["SEND_TO_REVIEW", "CANCEL_REVIEW", "PUBLISH_EVENT", "REJECT_EVENT"]}
            }
        },
        "controllers.UpdateRequestStatusesRequest": {
            "type": "object",
            "properties": {
                "request_ids": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["CONFIRMED", "REJECTED"]}
            }
        },
        "helpers.APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "helpers.APIResponse": {
            "type": "object",
            "properties": {"data": {}, "error": {"$ref": "#/definitions/helpers.APIError"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "eventhub API",
	Description:      "Event publishing, participation requests and moderation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

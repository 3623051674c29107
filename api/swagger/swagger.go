package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Mentorship Platform API",
        "description": "Mentor matching, request lifecycle, queries and notifications for university mentorship programmes.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Signup, login and token refresh"},
        {"name": "Directory", "description": "Mentor directory"},
        {"name": "Requests", "description": "Mentorship request lifecycle"},
        {"name": "Mentorships", "description": "Active mentor and mentee connections"},
        {"name": "Profile", "description": "Profiles, avatars and mentor capacity"},
        {"name": "Queries", "description": "Structured mentee queries and share links"},
        {"name": "Notifications", "description": "Pull feed and server-sent events"},
        {"name": "Dashboard", "description": "Personal and staff dashboards"},
        {"name": "Users", "description": "Administrative user management"},
        {"name": "Exports", "description": "Asynchronous roster exports"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a mentee or mentor",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for tokens",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mentors": {
            "get": {
                "tags": ["Directory"],
                "summary": "List mentors",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "mentor_type", "in": "query", "type": "string", "enum": ["senior", "alumni", "faculty"]},
                    {"name": "available_only", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List the caller's requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "accepted", "rejected"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Send a mentorship request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequestPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate pending request or existing mentorship", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Mentor unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/accept": {
            "post": {
                "tags": ["Requests"],
                "summary": "Accept a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending or capacity reached", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/reject": {
            "post": {
                "tags": ["Requests"],
                "summary": "Reject a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RejectRequestPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shared/queries/{token}": {
            "get": {
                "tags": ["Queries"],
                "summary": "View a query through its share link",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown, revoked or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/stream": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Server-sent change events for the caller",
                "produces": ["text/event-stream"],
                "parameters": [
                    {"name": "access_token", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Event stream"}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a roster export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["mentee", "mentor"]}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SubmitRequestPayload": {
            "type": "object",
            "required": ["mentor_id", "introduction", "goals"],
            "properties": {
                "mentor_id": {"type": "string", "format": "uuid"},
                "introduction": {"type": "string"},
                "goals": {"type": "string"}
            }
        },
        "RejectRequestPayload": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["type", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["users", "requests", "mentorships"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

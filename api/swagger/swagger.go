package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FitCoach API",
        "description": "Front-desk check-in admission and coach engagement scoring.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "CheckIns", "description": "Front-desk admission, history and kiosk feedback"},
        {"name": "Engagement", "description": "Coach roster triage and insights"}
    ],
    "paths": {
        "/gyms/{gymId}/check-ins": {
            "post": {
                "tags": ["CheckIns"],
                "summary": "Validate a member and record a check-in",
                "description": "Always responds 200 with a verdict; denials carry a reason.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/GymID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckInRequest"}}
                ],
                "responses": {
                    "200": {"description": "Verdict", "schema": {"$ref": "#/definitions/CheckInEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not staff of this gym", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["CheckIns"],
                "summary": "List a gym's check-ins, newest first",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/GymID"},
                    {"name": "memberId", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gyms/{gymId}/check-ins/stats": {
            "get": {
                "tags": ["CheckIns"],
                "summary": "Daily check-in totals by hour",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/GymID"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/gyms/{gymId}/check-ins/export": {
            "get": {
                "tags": ["CheckIns"],
                "summary": "Export a gym's check-ins",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/GymID"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}}
                }
            }
        },
        "/gyms/{gymId}/check-ins/feedback/latest": {
            "get": {
                "tags": ["CheckIns"],
                "summary": "Feedback event currently flashing at the desk",
                "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/GymID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "204": {"description": "Nothing flashing"}
                }
            }
        },
        "/gyms/{gymId}/check-ins/feedback/stream": {
            "get": {
                "tags": ["CheckIns"],
                "summary": "Server-sent admission events for desk displays",
                "produces": ["text/event-stream"],
                "parameters": [
                    {"$ref": "#/parameters/GymID"},
                    {"name": "access_token", "in": "query", "type": "string", "description": "Access token for EventSource clients"}
                ],
                "responses": {
                    "200": {"description": "Event stream; event name is admitted or denied"}
                }
            }
        },
        "/coaches/me/engagement": {
            "get": {
                "tags": ["Engagement"],
                "summary": "Engagement scores for the coach's active clients, lowest first",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "clientId", "in": "query", "type": "string"},
                    {"name": "refresh", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/coaches/me/engagement/at-risk": {
            "get": {
                "tags": ["Engagement"],
                "summary": "Clients scoring below the threshold",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "threshold", "in": "query", "type": "integer", "minimum": 1, "maximum": 100},
                    {"name": "refresh", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid threshold", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/coaches/me/engagement/export.pdf": {
            "get": {
                "tags": ["Engagement"],
                "summary": "Roster engagement report",
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}}
                }
            }
        },
        "/coaches/me/clients/{clientId}/insight": {
            "get": {
                "tags": ["Engagement"],
                "summary": "Coaching insight for one client",
                "produces": ["application/json"],
                "parameters": [{"name": "clientId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Client not on roster", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "GymID": {"name": "gymId", "in": "path", "required": true, "type": "string"}
    },
    "definitions": {
        "CheckInRequest": {
            "type": "object",
            "required": ["memberId"],
            "properties": {
                "memberId": {"type": "string", "maxLength": 64},
                "method": {"type": "string", "enum": ["qr_code", "manual", "other"]}
            }
        },
        "CheckInVerdict": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "memberId": {"type": "string"},
                "memberName": {"type": "string"},
                "reason": {"type": "string"},
                "code": {"type": "string"},
                "membershipStatus": {"type": "string"},
                "creditsRemaining": {"type": "integer"},
                "checkInId": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "CheckInEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/CheckInVerdict"}
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

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "PledgeCam API",
        "description": "Pledge video submission backend",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Roster", "description": "Students awaiting a pledge video"},
        {"name": "Pledges", "description": "Pledge text lookup"},
        {"name": "Videos", "description": "Video submission"},
        {"name": "Media", "description": "Recorded video access"},
        {"name": "Admin", "description": "Staff-only surface"}
    ],
    "paths": {
        "/api/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/api/users": {
            "get": {
                "tags": ["Roster"],
                "summary": "List students who have not yet submitted",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/users/grade/{grade}": {
            "get": {
                "tags": ["Roster"],
                "summary": "List not-yet-submitted students in one grade",
                "parameters": [
                    {"name": "grade", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unknown grade"}
                }
            }
        },
        "/api/pledges/{code}": {
            "get": {
                "tags": ["Pledges"],
                "summary": "Fetch pledge text by short code",
                "parameters": [
                    {"name": "code", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Pledge"}},
                    "404": {"description": "Unknown pledge code"}
                }
            }
        },
        "/api/videos": {
            "post": {
                "tags": ["Videos"],
                "summary": "Submit a recorded pledge video",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "video", "in": "formData", "type": "file", "required": true},
                    {"name": "studentId", "in": "formData", "type": "string", "required": true},
                    {"name": "name", "in": "formData", "type": "string", "required": true},
                    {"name": "grade", "in": "formData", "type": "string", "required": true},
                    {"name": "celebrity", "in": "formData", "type": "string", "required": true}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/SubmissionResult"}},
                    "400": {"description": "Missing or invalid fields"},
                    "404": {"description": "Unknown student"},
                    "409": {"description": "Student already submitted"},
                    "415": {"description": "Unsupported media type"}
                }
            }
        },
        "/api/media/{token}": {
            "get": {
                "tags": ["Media"],
                "summary": "Download a recording through a signed link",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Video stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["Admin"],
                "summary": "Authenticate a staff account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/admin/reports/submissions": {
            "get": {
                "tags": ["Admin"],
                "summary": "Export the submissions report",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file"},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/api/admin/media/{id}/link": {
            "get": {
                "tags": ["Admin"],
                "summary": "Mint a signed download link for a student's video",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Signed link"},
                    "404": {"description": "No video for student"}
                }
            }
        }
    },
    "definitions": {
        "Student": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "grade": {"type": "string"},
                "pledgeCode": {"type": "string"},
                "favoriteCelebrity": {"type": "string"},
                "videoSubmitted": {"type": "boolean"},
                "url": {"type": "string"}
            }
        },
        "Pledge": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "pledgeCode": {"type": "string"},
                "pledgeText": {"type": "string"}
            }
        },
        "SubmissionResult": {
            "type": "object",
            "properties": {
                "filename": {"type": "string"},
                "videoRef": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
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

package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "Booking API for a tattoo studio",
        "title": "InkBook API",
        "version": "1.0"
    },
    "host": "localhost:3000",
    "basePath": "/",
    "schemes": ["http"],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "description": "Check if server is running",
                "responses": {
                    "200": {
                        "description": "Server is healthy"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness Check",
                "description": "Check that the booking store answers",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Storage not ready"}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Owner Login",
                "description": "Exchange the studio owner password for a bearer token. Only registered when auth is enabled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "credentials",
                        "required": true,
                        "schema": {"$ref": "#/definitions/LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Login successful",
                        "schema": {"$ref": "#/definitions/AuthResponse"}
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/api/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings",
                "description": "Bookings in creation order. X-Total-Count carries the unpaged count.",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "date", "type": "string", "description": "Day, YYYY-MM-DD"},
                    {"in": "query", "name": "status", "type": "string", "enum": ["pending", "confirmed", "cancelled", "completed"]},
                    {"in": "query", "name": "email", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {
                    "200": {
                        "description": "Bookings",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/Booking"}}
                    },
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Create booking",
                "description": "Public booking form submission",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "body",
                        "name": "booking",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateBookingRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Booking stored", "schema": {"$ref": "#/definitions/StatusResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Slot already booked", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "413": {"description": "Payload too large", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/bookings/{id}": {
            "parameters": [
                {"in": "path", "name": "id", "type": "string", "format": "uuid", "required": true}
            ],
            "get": {
                "tags": ["Bookings"],
                "summary": "Get booking",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Booking", "schema": {"$ref": "#/definitions/Booking"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "put": {
                "tags": ["Bookings"],
                "summary": "Update booking",
                "description": "Partial update; omitted fields are kept",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "in": "body",
                        "name": "booking",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UpdateBookingRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Updated booking", "schema": {"$ref": "#/definitions/Booking"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Slot already booked", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Bookings"],
                "summary": "Delete booking",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Deleted", "schema": {"$ref": "#/definitions/StatusResponse"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "Booking": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "date": {"type": "string", "example": "2030-02-10"},
                "time": {"type": "string", "example": "17:00"},
                "style": {"type": "string"},
                "placement": {"type": "string"},
                "size": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "confirmed", "cancelled", "completed"]},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "CreateBookingRequest": {
            "type": "object",
            "required": ["name", "date", "time"],
            "properties": {
                "name": {"type": "string", "example": "Ana López"},
                "email": {"type": "string", "example": "ana@example.com"},
                "phone": {"type": "string", "example": "+34600123456"},
                "date": {"type": "string", "example": "2030-02-10"},
                "time": {"type": "string", "example": "17:00"},
                "style": {"type": "string", "example": "fine line"},
                "placement": {"type": "string", "example": "forearm"},
                "size": {"type": "string", "example": "10cm"},
                "description": {"type": "string"}
            }
        },
        "UpdateBookingRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"},
                "date": {"type": "string"},
                "time": {"type": "string"},
                "style": {"type": "string"},
                "placement": {"type": "string"},
                "size": {"type": "string"},
                "description": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "confirmed", "cancelled", "completed"]}
            }
        },
        "StatusResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "booking": {"$ref": "#/definitions/Booking"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["password"],
            "properties": {
                "password": {"type": "string"}
            }
        },
        "AuthResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "token_type": {"type": "string", "example": "Bearer"},
                "expires_in": {"type": "integer"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "InkBook API",
	Description:      "Booking API for a tattoo studio",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

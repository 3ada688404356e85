// Package docs registers the OpenAPI description served under /swagger.
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
        "/doctors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Doctors"],
                "summary": "List doctors",
                "parameters": [
                    {"type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/rest.successResponseBody"}}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Doctors"],
                "summary": "Register a doctor",
                "parameters": [
                    {"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreateDoctorDTO"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/rest.successResponseBody"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}}
                }
            }
        },
        "/doctors/{id}/schedule": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Weekly schedule",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.WeeklyScheduleEntry"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Replace weekly schedule",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.UpdateWeeklyScheduleDTO"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/rest.messageResponseType"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}}
                }
            }
        },
        "/doctors/{id}/exceptions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Exceptional dates",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.ExceptionalDate"}}}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Add an exceptional date",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.CreateExceptionDTO"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.ExceptionalDate"}},
                    "409": {"description": "Date already has an exception", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}}
                }
            }
        },
        "/doctors/{id}/exceptions/{date}": {
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Schedule"],
                "summary": "Remove an exceptional date",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "date", "in": "path", "required": true}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/doctors/{id}/services": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Service catalog",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ServiceCatalog"}}}
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Replace service catalog",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.ServiceCatalog"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/rest.messageResponseType"}}}
            }
        },
        "/doctors/{id}/booked-slots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Booked slots",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "date", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.BookedSlot"}}}}
            }
        },
        "/doctors/{id}/availability": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Schedule"],
                "summary": "Candidate slots",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "date", "in": "query", "required": true},
                    {"enum": ["regular_checkup", "follow_up"], "type": "string", "name": "service", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.CandidateSlot"}}},
                    "422": {"description": "Service not offered", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}}
                }
            }
        },
        "/appointments": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Appointments"],
                "summary": "Book an appointment",
                "parameters": [
                    {"name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.BookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.BookingResult"}},
                    "409": {"description": "Slot taken by another booking", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}},
                    "422": {"description": "Slot not bookable", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}}
                }
            }
        },
        "/appointments/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Appointments"],
                "summary": "Get an appointment",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Appointment"}}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Appointments"],
                "summary": "Cancel an appointment",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/rest.messageResponseType"}}}
            }
        },
        "/appointments/{id}/invoice": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Appointments"],
                "summary": "Invoice download link",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "307": {"description": "Temporary Redirect"},
                    "404": {"description": "No invoice stored", "schema": {"$ref": "#/definitions/rest.errorResponseBody"}}
                }
            }
        }
    },
    "definitions": {
        "domain.WeeklyScheduleEntry": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "integer"},
                "is_enabled": {"type": "boolean"},
                "from_time": {"type": "string"},
                "to_time": {"type": "string"}
            }
        },
        "domain.UpdateWeeklyScheduleDTO": {
            "type": "object",
            "required": ["entries"],
            "properties": {"entries": {"type": "array", "items": {"$ref": "#/definitions/domain.WeeklyScheduleEntry"}}}
        },
        "domain.ExceptionalDate": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "date": {"type": "string"},
                "is_closed": {"type": "boolean"},
                "from_time": {"type": "string"},
                "to_time": {"type": "string"}
            }
        },
        "domain.CreateExceptionDTO": {
            "type": "object",
            "required": ["date"],
            "properties": {
                "date": {"type": "string"},
                "is_closed": {"type": "boolean"},
                "from_time": {"type": "string"},
                "to_time": {"type": "string"}
            }
        },
        "domain.CreateDoctorDTO": {
            "type": "object",
            "required": ["full_name"],
            "properties": {"full_name": {"type": "string"}, "specialty": {"type": "string"}}
        },
        "domain.ServicePrice": {
            "type": "object",
            "properties": {"price": {"type": "number"}, "duration_minutes": {"type": "integer"}}
        },
        "domain.ServiceCatalog": {
            "type": "object",
            "properties": {
                "regular_checkup": {"$ref": "#/definitions/domain.ServicePrice"},
                "re_examination": {"$ref": "#/definitions/domain.ServicePrice"}
            }
        },
        "domain.BookedSlot": {
            "type": "object",
            "properties": {"time": {"type": "string"}, "duration_minutes": {"type": "integer"}}
        },
        "domain.CandidateSlot": {
            "type": "object",
            "properties": {
                "time": {"type": "string"},
                "is_available": {"type": "boolean"},
                "is_booked": {"type": "boolean"},
                "is_past": {"type": "boolean"}
            }
        },
        "domain.BookingRequest": {
            "type": "object",
            "required": ["doctor_id", "appointment_date", "appointment_time", "consultation_type"],
            "properties": {
                "doctor_id": {"type": "integer"},
                "appointment_date": {"type": "string"},
                "appointment_time": {"type": "string"},
                "consultation_type": {"type": "string", "enum": ["regular_checkup", "follow_up"]}
            }
        },
        "domain.BookingResult": {
            "type": "object",
            "properties": {
                "booking_id": {"type": "string"},
                "appointment_date": {"type": "string"},
                "appointment_time": {"type": "string"},
                "consultation_type": {"type": "string"},
                "total_amount": {"type": "number"},
                "payment_status": {"type": "string"},
                "invoice_url": {"type": "string"}
            }
        },
        "domain.Appointment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "reference": {"type": "string"},
                "doctor_id": {"type": "integer"},
                "patient_id": {"type": "integer"},
                "consultation_type": {"type": "string"},
                "appointment_date": {"type": "string"},
                "start_time": {"type": "string"},
                "duration_minutes": {"type": "integer"},
                "price": {"type": "number"},
                "status": {"type": "string"},
                "payment_status": {"type": "string"},
                "invoice_url": {"type": "string"}
            }
        },
        "rest.errorResponseBody": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "message": {"type": "string"}, "code": {"type": "integer"}}
        },
        "rest.successResponseBody": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "message": {"type": "string"}, "data": {}}
        },
        "rest.messageResponseType": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "message": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Medbook API",
	Description:      "Doctor availability and appointment booking",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

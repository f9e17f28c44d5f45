package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetabler API",
        "description": "Course timetabling with particle swarm optimisation.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Optimizations", "description": "Swarm runs, results and exports"},
        {"name": "Problems", "description": "Stored problem instances"},
        {"name": "Observability", "description": "Counters for runs and requests"}
    ],
    "paths": {
        "/optimizations": {
            "post": {
                "tags": ["Optimizations"],
                "summary": "Run the optimiser synchronously",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/OptimizationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid parameters or problem", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Stored problem not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/optimizations/jobs": {
            "post": {
                "tags": ["Optimizations"],
                "summary": "Queue an optimisation run",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/OptimizationRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid parameters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Asynchronous runs disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/optimizations/{id}": {
            "get": {
                "tags": ["Optimizations"],
                "summary": "Get an optimisation run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/optimizations/{id}/export": {
            "get": {
                "tags": ["Optimizations"],
                "summary": "Download the best schedule of a finished run",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Schedule file", "schema": {"type": "file"}},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Run has not finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/problems": {
            "post": {
                "tags": ["Problems"],
                "summary": "Store a problem instance",
                "consumes": ["application/json", "application/x-yaml"],
                "parameters": [
                    {"name": "name", "in": "query", "type": "string", "description": "Problem name for YAML uploads"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProblemRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid problem", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Optimiser and API counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GeneratorRequest": {
            "type": "object",
            "properties": {
                "courses": {"type": "integer", "minimum": 1},
                "teachers": {"type": "integer", "minimum": 1},
                "classes": {"type": "integer", "minimum": 1},
                "rooms": {"type": "integer", "minimum": 1},
                "horizon": {"type": "integer", "minimum": 1},
                "blocked": {"type": "array", "items": {"type": "integer"}},
                "forbiddenRate": {"type": "number", "minimum": 0, "exclusiveMaximum": true, "maximum": 1, "description": "0 disables forbidden slots; omitted takes 0.1"}
            }
        },
        "OptimizationRequest": {
            "type": "object",
            "properties": {
                "source": {"type": "string", "enum": ["generated", "stored"]},
                "problemId": {"type": "string", "format": "uuid"},
                "problemSeed": {"type": "integer"},
                "generator": {"$ref": "#/definitions/GeneratorRequest"},
                "c1": {"type": "number", "description": "Cognitive coefficient; c1+c2 must exceed 4"},
                "c2": {"type": "number", "description": "Social coefficient"},
                "w": {"type": "number", "description": "Inertia weight"},
                "seed": {"type": "integer"},
                "particles": {"type": "integer", "minimum": 2},
                "iterations": {"type": "integer", "minimum": 0},
                "localSearch": {"type": "boolean"},
                "penalty": {"type": "integer", "minimum": 1}
            }
        },
        "Course": {
            "type": "object",
            "properties": {
                "courseId": {"type": "string"},
                "teacherId": {"type": "string"},
                "classId": {"type": "string"},
                "roomId": {"type": "string"},
                "duration": {"type": "integer", "minimum": 1}
            },
            "required": ["courseId", "teacherId", "classId", "roomId", "duration"]
        },
        "ProblemFile": {
            "type": "object",
            "properties": {
                "horizon": {"type": "integer"},
                "blocked": {"type": "array", "items": {"type": "integer"}},
                "penalty": {"type": "integer"},
                "courses": {"type": "array", "items": {"$ref": "#/definitions/Course"}},
                "teacherPreferences": {
                    "type": "object",
                    "description": "Scores per slot; -10 marks a forbidden slot",
                    "additionalProperties": {"type": "array", "items": {"type": "integer"}}
                },
                "classPreferences": {
                    "type": "object",
                    "additionalProperties": {"type": "array", "items": {"type": "integer"}}
                }
            }
        },
        "ProblemRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "problem": {"$ref": "#/definitions/ProblemFile"}
            },
            "required": ["name", "problem"]
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

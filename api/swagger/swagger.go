package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Bulletin API",
        "description": "Report card generation: per-student bulletins, class ranking, annual promotion decisions",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Bulletins", "description": "Period bulletins, ranking and publication"},
        {"name": "Exports", "description": "Signed document downloads"}
    ],
    "paths": {
        "/bulletins/classes/{classId}/periods/{periodId}": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "List stored class period bulletins",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/periodId"}
                ],
                "responses": {
                    "200": {"description": "Bulletins ordered by rank", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/classes/{classId}/periods/{periodId}/preview": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "Preview provisional figures without storing",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/periodId"}
                ],
                "responses": {
                    "200": {"description": "Preview", "schema": {"$ref": "#/definitions/ClassPreviewResponse"}},
                    "404": {"description": "Class or period not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/classes/{classId}/periods/{periodId}/generate": {
            "post": {
                "tags": ["Bulletins"],
                "summary": "Generate and rank class period bulletins",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/periodId"},
                    {"in": "body", "name": "payload", "required": false, "schema": {"$ref": "#/definitions/GenerateClassRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generated batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Generation job queued", "schema": {"$ref": "#/definitions/GenerationJob"}},
                    "409": {"description": "Already published, in progress or incomplete class", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/classes/{classId}/periods/{periodId}/publish": {
            "post": {
                "tags": ["Bulletins"],
                "summary": "Publish ranked class period bulletins",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/periodId"}
                ],
                "responses": {
                    "200": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Bulletins not ranked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/classes/{classId}/periods/{periodId}/sheet": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "Class period sheet as CSV",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/periodId"}
                ],
                "responses": {
                    "200": {"description": "CSV file", "schema": {"type": "file"}}
                }
            }
        },
        "/bulletins/students/{studentId}/classes/{classId}/periods/{periodId}/generate": {
            "post": {
                "tags": ["Bulletins"],
                "summary": "Generate one student's draft bulletin",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/studentId"},
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/periodId"},
                    {"in": "body", "name": "payload", "required": false, "schema": {"$ref": "#/definitions/GenerateStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Draft bulletin", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/students/{studentId}/classes/{classId}/years/{yearId}/annual": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "Annual average and promotion decision",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/studentId"},
                    {"$ref": "#/parameters/classId"},
                    {"in": "path", "name": "yearId", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Annual report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Periods missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/jobs/{id}": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "Asynchronous generation job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Job", "schema": {"$ref": "#/definitions/GenerationJob"}}
                }
            }
        },
        "/bulletins/{id}/document": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "Signed download link for a rendered bulletin",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Link", "schema": {"$ref": "#/definitions/DocumentLink"}},
                    "403": {"description": "Not visible to caller", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered bulletin",
                "produces": ["application/pdf"],
                "parameters": [
                    {"in": "path", "name": "token", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "PDF document", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "classId": {"in": "path", "name": "classId", "type": "string", "required": true},
        "periodId": {"in": "path", "name": "periodId", "type": "string", "required": true},
        "studentId": {"in": "path", "name": "studentId", "type": "string", "required": true}
    },
    "definitions": {
        "GenerateClassRequest": {
            "type": "object",
            "properties": {
                "force": {"type": "boolean"},
                "hardRegenerate": {"type": "boolean"},
                "async": {"type": "boolean"}
            }
        },
        "GenerateStudentRequest": {
            "type": "object",
            "properties": {
                "hardRegenerate": {"type": "boolean"}
            }
        },
        "StudentPreview": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "studentName": {"type": "string"},
                "ready": {"type": "boolean"},
                "code": {"type": "string"},
                "reason": {"type": "string"},
                "subjectCount": {"type": "integer"},
                "evaluations": {"type": "integer"},
                "provisionalAverage": {"type": "number"},
                "mention": {"type": "string"}
            }
        },
        "ClassPreviewResponse": {
            "type": "object",
            "properties": {
                "classId": {"type": "string"},
                "periodId": {"type": "string"},
                "readyCount": {"type": "integer"},
                "students": {"type": "array", "items": {"$ref": "#/definitions/StudentPreview"}},
                "generatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "GenerationJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "classId": {"type": "string"},
                "periodId": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "FAILED"]},
                "progress": {"type": "integer"},
                "summary": {"type": "object"},
                "error": {"type": "string"}
            }
        },
        "DocumentLink": {
            "type": "object",
            "properties": {
                "bulletinId": {"type": "string"},
                "url": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"}
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

// Package docs registers the OpenAPI description served by the Swagger UI.
// Regenerate with: swag init -g cmd/main.go
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
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["system"], "summary": "Health check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/contacts": {
            "get": {
                "produces": ["application/json"], "tags": ["contacts"], "summary": "List contacts",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header"},
                    {"type": "string", "description": "Group ID", "name": "group_id", "in": "query"},
                    {"type": "string", "description": "Search text", "name": "search", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}
            },
            "post": {
                "consumes": ["application/json"], "produces": ["application/json"], "tags": ["contacts"], "summary": "Save a contact",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header"},
                    {"description": "Contact", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ContactForm"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/contacts/view": {
            "post": {
                "consumes": ["application/json"], "produces": ["application/json", "text/csv"], "tags": ["contacts"], "summary": "Render a contacts view",
                "parameters": [
                    {"type": "string", "description": "Tenant", "name": "X-Tenant-ID", "in": "header"},
                    {"type": "string", "description": "json or csv", "name": "format", "in": "query"},
                    {"description": "View state", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ViewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/contacts/{id}": {
            "put": {
                "consumes": ["application/json"], "produces": ["application/json"], "tags": ["contacts"], "summary": "Update a contact",
                "parameters": [
                    {"type": "string", "description": "Contact ID", "name": "id", "in": "path", "required": true},
                    {"description": "Contact", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ContactForm"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}
            },
            "delete": {
                "produces": ["application/json"], "tags": ["contacts"], "summary": "Delete a contact",
                "parameters": [{"type": "string", "description": "Contact ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/contacts/{id}/qrcode": {
            "get": {
                "produces": ["image/png"], "tags": ["contacts"], "summary": "Contact QR code",
                "parameters": [
                    {"type": "string", "description": "Contact ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Image size in pixels", "name": "size", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/contacts/{id}/vcard": {
            "get": {
                "produces": ["text/vcard"], "tags": ["contacts"], "summary": "Contact vCard",
                "parameters": [{"type": "string", "description": "Contact ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "string"}}}
            }
        },
        "/contacts/{id}/groups": {
            "get": {
                "produces": ["application/json"], "tags": ["groups"], "summary": "Groups of a contact",
                "parameters": [{"type": "string", "description": "Contact ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}
            }
        },
        "/groups": {
            "get": {
                "produces": ["application/json"], "tags": ["groups"], "summary": "List groups",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}
            },
            "post": {
                "consumes": ["application/json"], "produces": ["application/json"], "tags": ["groups"], "summary": "Create a group",
                "parameters": [{"description": "Group", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.createGroupRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/models.APIResponse"}}}
            }
        },
        "/groups/{id}/contacts": {
            "post": {
                "consumes": ["application/json"], "produces": ["application/json"], "tags": ["groups"], "summary": "Add contacts to a group",
                "parameters": [
                    {"type": "string", "description": "Group ID", "name": "id", "in": "path", "required": true},
                    {"description": "Contacts", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.GroupMembershipRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "207": {"description": "Multi-Status", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/groups/{id}/contacts/{contactId}": {
            "delete": {
                "produces": ["application/json"], "tags": ["groups"], "summary": "Remove a contact from a group",
                "parameters": [
                    {"type": "string", "description": "Group ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Contact ID", "name": "contactId", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}
            }
        },
        "/storage/file-url": {
            "get": {
                "produces": ["application/json"], "tags": ["storage"], "summary": "Signed file URL",
                "parameters": [{"type": "string", "description": "Storage path", "name": "path", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        },
        "/storage/upload": {
            "post": {
                "consumes": ["multipart/form-data"], "produces": ["application/json"], "tags": ["storage"], "summary": "Upload a profile image",
                "parameters": [{"type": "file", "description": "Image to upload", "name": "file", "in": "formData", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/models.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.APIResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "data": {},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "timestamp": {"type": "string"}
            }
        },
        "models.ContactForm": {
            "type": "object",
            "required": ["full_name", "email"],
            "properties": {
                "id": {"type": "string"},
                "full_name": {"type": "string", "example": "Jane Doe"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string", "example": "jane@example.com"},
                "phone": {"type": "string"},
                "country_code": {"type": "string"},
                "company_name": {"type": "string"},
                "job_title": {"type": "string"},
                "address_line": {"type": "string"},
                "city": {"type": "string"},
                "state": {"type": "string"},
                "postal_code": {"type": "string"},
                "country": {"type": "string"},
                "website": {"type": "string"},
                "notes": {"type": "string"},
                "source": {"type": "string", "enum": ["conference", "referral", "website", "event", "social_media", "cold_outreach", "other"]},
                "tags": {"type": "array", "items": {"type": "string"}},
                "last_contacted_at": {"type": "string"},
                "profile_image": {"type": "string"}
            }
        },
        "models.ViewRequest": {
            "type": "object",
            "properties": {
                "search": {"type": "string"},
                "group_id": {"type": "string"},
                "period": {"type": "string", "example": "this_week"},
                "sources": {"type": "array", "items": {"type": "string"}},
                "sort_field": {"type": "string", "example": "name"},
                "sort_direction": {"type": "string", "example": "asc"},
                "name_order": {"type": "string", "example": "first_last"},
                "visible_columns": {"type": "array", "items": {"type": "string"}},
                "column_order": {"type": "array", "items": {"type": "string"}},
                "selected": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.GroupMembershipRequest": {
            "type": "object",
            "properties": {"contact_ids": {"type": "array", "items": {"type": "string"}}}
        },
        "handlers.createGroupRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Customers"},
                "color": {"type": "string", "example": "#22c55e"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8081",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "CRM Contacts API",
	Description:      "Contacts, groups and table views of a multi-tenant CRM",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

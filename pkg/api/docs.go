package api

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
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Get the health status of the API and whether the region is valid",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/region": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Load and validate the bootable region and return the header and every slot",
                "produces": ["application/json"],
                "tags": ["region"],
                "summary": "Get region",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RegionView"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/region/active": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Return the descriptor of the active slot",
                "produces": ["application/json"],
                "tags": ["region"],
                "summary": "Get active descriptor",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SlotView"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Mark a slot active, snapshotting the previous region first",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["region"],
                "summary": "Switch active slot",
                "parameters": [
                    {"description": "Slot to activate", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.SwitchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RegionView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/region/slots/{slot}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Return the descriptor stored in one slot",
                "produces": ["application/json"],
                "tags": ["region"],
                "summary": "Get slot descriptor",
                "parameters": [
                    {"type": "integer", "description": "Slot index", "name": "slot", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SlotView"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/history": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "List stored region snapshots, newest first",
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "List snapshots",
                "parameters": [
                    {"type": "integer", "description": "Maximum number of snapshots", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.SnapshotView"}}},
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/history/{id}/restore": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Write a stored snapshot back to flash after validating it",
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Restore snapshot",
                "parameters": [
                    {"type": "string", "description": "Snapshot ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RegionView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "api.SwitchRequest": {
            "type": "object",
            "properties": {
                "slot": {"type": "integer"}
            }
        },
        "api.HeaderView": {
            "type": "object",
            "properties": {
                "descriptor_version": {"type": "string"},
                "app_descriptor_base_address": {"type": "integer"},
                "num_app_slots": {"type": "integer"},
                "active_app_slot": {"type": "integer"},
                "header_crc": {"type": "integer"}
            }
        },
        "api.SlotView": {
            "type": "object",
            "properties": {
                "slot": {"type": "integer"},
                "active": {"type": "boolean"},
                "descriptor": {"$ref": "#/definitions/codec.AppImageDescriptor"}
            }
        },
        "api.RegionView": {
            "type": "object",
            "properties": {
                "header": {"$ref": "#/definitions/api.HeaderView"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/api.SlotView"}}
            }
        },
        "api.SnapshotView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "created_at": {"type": "string"},
                "reason": {"type": "string"},
                "active_slot": {"type": "integer"},
                "size_bytes": {"type": "integer"}
            }
        },
        "codec.ImageFlags": {
            "type": "object",
            "properties": {
                "copy_to_execution": {"type": "boolean"},
                "skip_image_crc_check": {"type": "boolean"},
                "reserved": {"type": "integer"}
            }
        },
        "codec.AppImageDescriptor": {
            "type": "object",
            "properties": {
                "descriptor_version": {"type": "integer"},
                "app_slot_number": {"type": "integer"},
                "app_version": {"type": "integer"},
                "security_version": {"type": "integer"},
                "flags": {"$ref": "#/definitions/codec.ImageFlags"},
                "stored_address": {"type": "integer"},
                "image_size_bytes": {"type": "integer"},
                "stored_crc_address": {"type": "integer"},
                "execution_copy_size_bytes": {"type": "integer"},
                "execution_address": {"type": "integer"},
                "descriptor_crc": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "X-API-Key", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:9300",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "bootdesc REST API",
	Description:      "Inspect and update the bootable region descriptors of a flash image.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

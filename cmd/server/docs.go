package main

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "consumes": ["application/json"],
    "produces": ["application/json"],
    "paths": {
        "/health": {
            "get": {"summary": "Service and dependency health", "responses": {"200": {"description": "healthy or degraded"}, "503": {"description": "database unavailable"}}}
        },
        "/analyze": {
            "post": {
                "summary": "Score a channel bundle",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "description": "{bundle, vertical?, is_public?} or a bare bundle"}}],
                "responses": {"200": {"description": "analysis id, visibility and score report"}, "400": {"description": "invalid bundle"}}
            }
        },
        "/analyses/{id}": {
            "get": {"summary": "Stored analysis", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "analysis"}, "404": {"description": "not found"}}}
        },
        "/benchmarks": {
            "get": {"summary": "Known benchmark verticals", "responses": {"200": {"description": "verticals"}}}
        },
        "/benchmarks/{vertical}": {
            "get": {"summary": "Effective benchmark table", "parameters": [{"in": "path", "name": "vertical", "type": "string", "required": true}], "responses": {"200": {"description": "per-tier benchmarks"}}}
        },
        "/channels/{channel_id}/analyses": {
            "get": {"summary": "Analysis history of a channel", "parameters": [{"in": "path", "name": "channel_id", "type": "string", "required": true}, {"in": "query", "name": "limit", "type": "integer"}], "responses": {"200": {"description": "history"}}}
        },
        "/channels/{channel_id}/privacy": {
            "get": {"summary": "Stored data summary for a channel", "parameters": [{"in": "path", "name": "channel_id", "type": "string", "required": true}], "responses": {"200": {"description": "settings"}, "404": {"description": "no data"}}}
        },
        "/channels/{channel_id}/visibility": {
            "put": {"summary": "Make every analysis of a channel public or private", "parameters": [{"in": "path", "name": "channel_id", "type": "string", "required": true}, {"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"is_public": {"type": "boolean"}}}}], "responses": {"200": {"description": "updated"}}}
        },
        "/channels/{channel_id}/data": {
            "delete": {"summary": "Delete analyses and leaderboard entries of a channel", "parameters": [{"in": "path", "name": "channel_id", "type": "string", "required": true}], "responses": {"200": {"description": "deletion counts"}}}
        },
        "/channels/collect": {
            "post": {"summary": "Collect a bundle from YouTube", "responses": {"200": {"description": "bundle"}, "503": {"description": "YouTube not configured"}}}
        },
        "/channels/analyze": {
            "post": {"summary": "Collect, score and store", "responses": {"200": {"description": "analysis"}, "503": {"description": "YouTube not configured"}}}
        },
        "/leaderboard/{period}": {
            "get": {"summary": "Leaderboard for daily, weekly, monthly or all_time", "parameters": [{"in": "path", "name": "period", "type": "string", "required": true}, {"in": "query", "name": "tier", "type": "string"}, {"in": "query", "name": "limit", "type": "integer"}], "responses": {"200": {"description": "ranked entries"}}}
        },
        "/leaderboard/update": {
            "post": {"summary": "Recompute leaderboards", "responses": {"200": {"description": "entries written per period"}}}
        },
        "/privacy/policy": {
            "get": {"summary": "Data retention policy", "responses": {"200": {"description": "policy"}}}
        }
    }
}`

// swaggerInfo is served by the /swagger routes
var swaggerInfo = &swag.Spec{
	Version:          version,
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "BLC-o-meter API",
	Description:      "Tier-relative YouTube channel scoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(swaggerInfo.InstanceName(), swaggerInfo)
}

package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/daylive/internal/httpjson"
)

// handleOpenAPI renvoie un document OpenAPI minimal décrivant l'API.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}
	jsonBody := func(schemaRef string) map[string]any {
		return map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}

	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}
	idParam := []any{map[string]any{"name": "id", "in": "path", "required": true, "schema": map[string]any{"type": "string"}}}
	state := map[string]any{"type": "string", "enum": []any{"locked", "live", "completed"}}

	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "daylive API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"OpenAPIDocument": map[string]any{
					"type":                 "object",
					"additionalProperties": true,
				},
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": map[string]any{"type": "string"},
						"code":  map[string]any{"type": "string", "enum": []any{"invalid_schedule", "not_found", "invalid_params", "session_closed"}},
					},
					"required": []any{"error"},
				},
				"Settings": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"unlockHour":              map[string]any{"type": "integer", "minimum": 0, "maximum": 23},
						"unlockMinute":            map[string]any{"type": "integer", "minimum": 0, "maximum": 59},
						"timezone":                map[string]any{"type": "string", "example": "Europe/Paris"},
						"fallbackDurationSeconds": map[string]any{"type": "integer", "minimum": 1},
						"maxLiveWindowSeconds":    map[string]any{"type": "integer", "minimum": 1},
						"pollIntervalSeconds":     map[string]any{"type": "integer", "minimum": 1},
						"fallbackTimeoutSeconds":  map[string]any{"type": "integer", "minimum": 1},
						"endedToleranceSeconds":   map[string]any{"type": "integer", "minimum": 0},
						"playerOrigins":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"maxSessions":             map[string]any{"type": "integer", "minimum": 1},
					},
					"additionalProperties": false,
				},
				"Remaining": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"days":    map[string]any{"type": "integer"},
						"hours":   map[string]any{"type": "integer"},
						"minutes": map[string]any{"type": "integer"},
						"seconds": map[string]any{"type": "integer"},
					},
				},
				"Session": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":               map[string]any{"type": "string"},
						"subscriptionId":   map[string]any{"type": "string"},
						"contentUnitId":    map[string]any{"type": "string"},
						"dayIndex":         map[string]any{"type": "integer", "minimum": 1},
						"state":            state,
						"unlockAt":         map[string]any{"type": "string", "format": "date-time"},
						"remaining":        map[string]any{"$ref": "#/components/schemas/Remaining"},
						"elapsedSeconds":   map[string]any{"type": "integer"},
						"liveWindowActive": map[string]any{"type": "boolean"},
						"durationKnown":    map[string]any{"type": "boolean"},
						"completed":        map[string]any{"type": "boolean"},
						"completedAt":      map[string]any{"type": "string", "format": "date-time"},
						"completionSource": map[string]any{"type": "string", "enum": []any{"player", "poll", "fallback", "manual"}},
						"timerPhase":       map[string]any{"type": "string", "enum": []any{"idle", "armed-locked", "armed-live", "disarmed"}},
					},
					"required": []any{"id", "subscriptionId", "state"},
				},
				"CreateSessionRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"subscriptionId": map[string]any{"type": "string"},
						"contentUnitId":  map[string]any{"type": "string"},
					},
					"required": []any{"subscriptionId", "contentUnitId"},
				},
				"ActivateRequest": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"contentUnitId": map[string]any{"type": "string"},
					},
					"required": []any{"contentUnitId"},
				},
				"PlayerMessage": map[string]any{
					"type":        "object",
					"description": "{state,currentTime,totalDuration} ou format infoDelivery.",
					"properties": map[string]any{
						"origin":        map[string]any{"type": "string"},
						"state":         map[string]any{"type": "string", "enum": []any{"playing", "paused", "ended"}},
						"currentTime":   map[string]any{"type": "number"},
						"totalDuration": map[string]any{"type": "number"},
					},
					"additionalProperties": true,
				},
				"Plan": map[string]any{
					"type":                 "object",
					"description":          "Abonnement + état dérivé de chaque jour.",
					"additionalProperties": true,
				},
				"Progress": map[string]any{
					"type": "object",
					"additionalProperties": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"completed":   map[string]any{"type": "boolean"},
							"completedAt": map[string]any{"type": "integer", "description": "unix ms"},
						},
					},
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/openapi.json": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/OpenAPIDocument")}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "SSE"}}},
			},
			"/api/v1/settings": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"500": jsonErr,
					},
				},
				"put": map[string]any{
					"requestBody": jsonBody("#/components/schemas/Settings"),
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
			"/api/v1/subscriptions/{id}/plan": map[string]any{
				"get": map[string]any{
					"parameters": idParam,
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Plan"),
						"404": jsonErr,
						"422": jsonErr,
					},
				},
			},
			"/api/v1/progress": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/Progress")}},
			},
			"/api/v1/sessions": map[string]any{
				"post": map[string]any{
					"requestBody": jsonBody("#/components/schemas/CreateSessionRequest"),
					"responses": map[string]any{
						"201": jsonOK("#/components/schemas/Session"),
						"400": jsonErr,
						"404": jsonErr,
						"422": jsonErr,
						"503": jsonErr,
					},
				},
			},
			"/api/v1/sessions/{id}": map[string]any{
				"get": map[string]any{
					"parameters": idParam,
					"responses":  map[string]any{"200": jsonOK("#/components/schemas/Session"), "404": jsonErr},
				},
				"delete": map[string]any{
					"parameters": idParam,
					"responses":  map[string]any{"204": map[string]any{"description": "Closed"}, "404": jsonErr},
				},
			},
			"/api/v1/sessions/{id}/unit": map[string]any{
				"put": map[string]any{
					"parameters":  idParam,
					"requestBody": jsonBody("#/components/schemas/ActivateRequest"),
					"responses":   map[string]any{"200": jsonOK("#/components/schemas/Session"), "404": jsonErr, "422": jsonErr},
				},
			},
			"/api/v1/sessions/{id}/countdown": map[string]any{
				"get": map[string]any{
					"parameters": idParam,
					"responses":  map[string]any{"200": map[string]any{"description": "OK"}, "404": jsonErr},
				},
			},
			"/api/v1/sessions/{id}/complete": map[string]any{
				"post": map[string]any{
					"parameters": idParam,
					"responses":  map[string]any{"200": map[string]any{"description": "OK"}, "404": jsonErr, "410": jsonErr},
				},
			},
			"/api/v1/sessions/{id}/player-events": map[string]any{
				"post": map[string]any{
					"parameters":  idParam,
					"requestBody": jsonBody("#/components/schemas/PlayerMessage"),
					"responses":   map[string]any{"202": map[string]any{"description": "Accepted (accepted=false si ignoré)"}, "404": jsonErr},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, doc)
}

package openapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Generator builds the OpenAPI 3.0 document for the read-only JSON API.
type Generator struct {
	version string
	baseURL string
}

// NewGenerator creates a new OpenAPI spec generator. baseURL is the public
// URL of the /api/v1 group.
func NewGenerator(version, baseURL string) *Generator {
	return &Generator{version: version, baseURL: baseURL}
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	idParam := map[string]interface{}{
		"name": "id", "in": "path", "required": true,
		"schema": map[string]string{"type": "string", "format": "uuid"},
	}

	paths := map[string]interface{}{
		"/patients": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List patients",
				"operationId": "listPatients",
				"tags":        []string{"Patient"},
				"parameters": []map[string]interface{}{
					queryParam("limit", "integer", "Page size (default 20, max 100)", false),
					queryParam("offset", "integer", "Number of patients to skip", false),
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("A page of patients", "#/components/schemas/PatientPage"),
				},
			},
		},
		"/patients/search": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Find a patient by registration or screening number",
				"operationId": "searchPatient",
				"tags":        []string{"Patient"},
				"parameters": []map[string]interface{}{
					queryParam("q", "string", "Registration number or screening number", true),
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("The matching patient record", "#/components/schemas/PatientRecord"),
					"400": jsonResponse("Missing q", "#/components/schemas/Error"),
					"404": jsonResponse("No matching patient", "#/components/schemas/Error"),
				},
			},
		},
		"/patients/{id}": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Read a patient record",
				"operationId": "readPatientRecord",
				"tags":        []string{"Patient"},
				"parameters":  []map[string]interface{}{idParam},
				"responses": map[string]interface{}{
					"200": jsonResponse("The patient record", "#/components/schemas/PatientRecord"),
					"400": jsonResponse("Malformed id", "#/components/schemas/Error"),
					"404": jsonResponse("Unknown patient", "#/components/schemas/Error"),
				},
			},
		},
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Casebook API",
			"version":     g.version,
			"description": "Read-only access to patients, baseline treatments and outcome assessments",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": buildComponentSchemas(),
		},
	}
}

func queryParam(name, typ, description string, required bool) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"required":    required,
		"description": description,
		"schema":      map[string]string{"type": typ},
	}
}

func jsonResponse(description, schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{
					"$ref": schemaRef,
				},
			},
		},
	}
}

// buildComponentSchemas mirrors the JSON encoding of the patient package's
// model types.
func buildComponentSchemas() map[string]interface{} {
	return map[string]interface{}{
		"Patient": objectSchema([]string{"id", "reg_no", "name", "created_at"}, map[string]interface{}{
			"id":                    uuidProp(),
			"reg_no":                stringProp(),
			"name":                  stringProp(),
			"screening_no":          stringProp(),
			"screening_date":        stringProp(),
			"age":                   stringProp(),
			"sex":                   stringProp(),
			"residence":             stringProp(),
			"contact_no":            stringProp(),
			"duration_mc":           stringProp(),
			"co_morbidities":        stringProp(),
			"risk_factors":          stringProp(),
			"treatment_taken":       stringProp(),
			"weight_kg":             stringProp(),
			"height_cm":             stringProp(),
			"education_status":      stringProp(),
			"socio_economic_status": stringProp(),
			"created_at":            timeProp(),
		}),
		"BaselineTreatment": objectSchema([]string{"id", "patient_id", "created_at"}, map[string]interface{}{
			"id":                  uuidProp(),
			"patient_id":          uuidProp(),
			"date":                stringProp(),
			"present_complaint":   stringProp(),
			"prescription":        stringProp(),
			"miasm_data":          stringProp(),
			"susceptibility_data": stringProp(),
			"created_at":          timeProp(),
		}),
		"OutcomeAssessment": objectSchema([]string{"id", "patient_id", "assessment_number", "date", "created_at"}, map[string]interface{}{
			"id":         uuidProp(),
			"patient_id": uuidProp(),
			"assessment_number": map[string]interface{}{
				"type": "integer", "minimum": 1, "maximum": 6,
			},
			"date":                 stringProp(),
			"brief_notes":          stringProp(),
			"prescription":         stringProp(),
			"oridl_main_complaint": stringProp(),
			"oridl_wellbeing":      stringProp(),
			"miasm_data": map[string]interface{}{
				"type": "string", "description": "Only present on assessment 6",
			},
			"susceptibility_data": map[string]interface{}{
				"type": "string", "description": "Only present on assessment 6",
			},
			"created_at": timeProp(),
		}),
		"PatientRecord": objectSchema([]string{"patient", "outcome_assessments"}, map[string]interface{}{
			"patient":            refProp("Patient"),
			"baseline_treatment": refProp("BaselineTreatment"),
			"outcome_assessments": map[string]interface{}{
				"type":     "array",
				"maxItems": 6,
				"items":    refProp("OutcomeAssessment"),
			},
		}),
		"PatientPage": objectSchema([]string{"data", "total", "limit", "offset", "has_more"}, map[string]interface{}{
			"data": map[string]interface{}{
				"type":  "array",
				"items": refProp("Patient"),
			},
			"total":    map[string]string{"type": "integer"},
			"limit":    map[string]string{"type": "integer"},
			"offset":   map[string]string{"type": "integer"},
			"has_more": map[string]string{"type": "boolean"},
			"links": objectSchema(nil, map[string]interface{}{
				"self":     stringProp(),
				"next":     stringProp(),
				"previous": stringProp(),
			}),
		}),
		"Error": objectSchema([]string{"message"}, map[string]interface{}{
			"message": stringProp(),
		}),
	}
}

func objectSchema(required []string, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func stringProp() map[string]string { return map[string]string{"type": "string"} }
func uuidProp() map[string]string   { return map[string]string{"type": "string", "format": "uuid"} }
func timeProp() map[string]string   { return map[string]string{"type": "string", "format": "date-time"} }

func refProp(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

// RegisterRoutes registers the OpenAPI endpoint.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}

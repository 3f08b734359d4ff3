package survey

import "fleet-assistant/internal/common/validation"

// Steps in the order the form presents them.
var Steps = []string{"company", "fleet", "challenges", "contact"}

const companyStep = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 200}
	}
}`

const fleetStep = `{
	"type": "object",
	"required": ["size"],
	"properties": {
		"size": {"type": "string", "enum": ["5-10 vehicles", "10-20 vehicles", "20-50 vehicles", "50+ vehicles"]},
		"experience": {"type": "string", "enum": ["beginner", "intermediate", "expert"]}
	}
}`

const challengesStep = `{
	"type": "object",
	"required": ["selected"],
	"properties": {
		"selected": {
			"type": "array",
			"minItems": 1,
			"uniqueItems": true,
			"items": {"type": "string", "enum": ["fuel-costs", "maintenance", "tracking", "compliance", "driver-safety"]}
		},
		"interests": {
			"type": "array",
			"uniqueItems": true,
			"items": {"type": "string", "enum": ["demo", "beta", "pricing"]}
		}
	}
}`

const contactStep = `{
	"type": "object",
	"required": ["name", "email"],
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 200},
		"email": {"type": "string", "format": "email"},
		"phone": {"type": "string", "pattern": "^\\+?[0-9\\s\\-()]{10,}$"}
	}
}`

var stepSchemas = map[string]*validation.Schema{
	"company":    validation.MustCompile("survey.company", companyStep),
	"fleet":      validation.MustCompile("survey.fleet", fleetStep),
	"challenges": validation.MustCompile("survey.challenges", challengesStep),
	"contact":    validation.MustCompile("survey.contact", contactStep),
}

var submissionSchema = validation.MustCompile("survey.submission", `{
	"type": "object",
	"required": ["company", "fleet", "challenges", "contact"],
	"properties": {
		"company": `+companyStep+`,
		"fleet": `+fleetStep+`,
		"challenges": `+challengesStep+`,
		"contact": `+contactStep+`
	}
}`)

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

const fence = "```"

// systemInstruction is sent with every extraction request. The model must
// answer with a fenced JSON object matching the embedded schema.
const systemInstruction = `You are a clinical extraction assistant. Extract information from the provided pdf document and return it in the following JSON format:
` + fence + `json
{
  "type": "object",
  "properties": {
    "symptoms": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "diseases_or_medications": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "subjective_assessments": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "drug_used": {"type": "array", "items": {"type": "string"}, "minItems": 1}
  },
  "required": ["symptoms", "diseases_or_medications", "subjective_assessments", "drug_used"]
}
` + fence + `
Ensure the response is valid JSON. Extract all relevant information from the pdf document and categorize it appropriately.`

// documentLabel precedes the inline PDF part.
const documentLabel = "This is a PDF document"

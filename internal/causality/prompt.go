// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package causality

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// promptTmpl embeds the patient entities, retrieved articles and guideline
// text, and demands a fenced JSON array with one verdict per symptom.
var promptTmpl = template.Must(template.New("causality").Parse(`Generate a medical adverse event assessment based on this data:

Patient Information: {{.Entities}}
Research Articles: {{.Literature}}
NPI Guidelines: {{.Guideline}}

For every symptom in the patient information decide whether it is an adverse event of the drug used, drawing on the research articles and the guidelines.

Respond with a JSON array inside a {{.Fence}}json fenced block and nothing else. Each element must have exactly these fields:
- symptomName: the symptom as written in the patient information
- isAdverseEvent: "yes" or "no"
- reason: a short rationale citing the evidence

Example response:
{{.Fence}}json
[{"symptomName": "rash", "isAdverseEvent": "yes", "reason": "Onset two days after starting amoxicillin; similar cases reported."}]
{{.Fence}}
`))

type promptData struct {
	Entities   string
	Literature string
	Guideline  string
	Fence      string
}

// renderPrompt executes the causality prompt template.
func renderPrompt(entities types.ExtractedEntities, literature []types.LiteratureRecord, guideline string) (string, error) {
	if literature == nil {
		literature = []types.LiteratureRecord{}
	}
	ent, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return "", err
	}
	lit, err := json.MarshalIndent(literature, "", "  ")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = promptTmpl.Execute(&buf, promptData{
		Entities:   string(ent),
		Literature: string(lit),
		Guideline:  guideline,
		Fence:      "```",
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

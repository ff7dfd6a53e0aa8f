package pipeline

import (
	"fmt"

	"github.com/reconnecthq/reconnect/internal/speech"
)

// systemPrompt instructs the model to emit strict schema-shaped JSON. The
// hashtag derivation rule lives here, in the instruction contract: spoken
// "hashtag X" markers become lowercase tags without the symbol, and clear
// category phrases ("things to read") are admissible as implied tags.
const systemPrompt = `You extract structured facts from personal call transcripts.
Return STRICT JSON matching the provided schema. No extra keys, no commentary.
If a field is unknown, use null. Dates ISO-8601 when possible.
For hashtags: extract any words spoken with "hashtag" prefix (e.g. "hashtag books" -> "books"),
or words that sound like category tags (e.g. "things to read" -> ["reading"]). Return as lowercase strings without # symbol.`

// schemaDescription is the fixed shape the extraction must return. The
// top-level keys are exactly this set.
const schemaDescription = `{
  "people_mentioned": [{ "name": "string", "relation": "string|null", "org_school": "string|null", "location": "string|null" }],
  "key_topics": ["string"],
  "hashtags": ["string"],
  "facts": [{ "type": "string", "who": "string|null", "org": "string|null", "role": "string|null", "when": "string|null", "to": "string|null", "from": "string|null" }],
  "followups": [{ "what": "string", "due": "string|null" }],
  "checkin_hint_days": "number|null"
}`

// BuildPrompt constructs the chat messages for the extraction call.
func BuildPrompt(transcript string) []speech.Message {
	return []speech.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Schema:\n%s\n\nTranscript:\n%s", schemaDescription, transcript)},
	}
}

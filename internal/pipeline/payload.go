package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Person is a human mentioned in a note's extracted data.
type Person struct {
	Name      string  `json:"name"`
	Relation  *string `json:"relation"`
	OrgSchool *string `json:"org_school"`
	Location  *string `json:"location"`
}

// Fact is one structured relationship fact. Every field is nullable; the
// model fills what the transcript supports.
type Fact struct {
	Type *string `json:"type"`
	Who  *string `json:"who"`
	Org  *string `json:"org"`
	Role *string `json:"role"`
	When *string `json:"when"`
	To   *string `json:"to"`
	From *string `json:"from"`
}

// FollowUpEntry is an actionable task the model heard, with an ISO-8601
// due date when one was spoken.
type FollowUpEntry struct {
	What string  `json:"what"`
	Due  *string `json:"due"`
}

// Payload is the schema-constrained extraction result. Its top-level keys
// are exactly this set; parsing rejects anything else. Duplicate topics or
// hashtags may occur and are kept as-is.
type Payload struct {
	PeopleMentioned []Person        `json:"people_mentioned"`
	KeyTopics       []string        `json:"key_topics"`
	Hashtags        []string        `json:"hashtags"`
	Facts           []Fact          `json:"facts"`
	Followups       []FollowUpEntry `json:"followups"`
	CheckinHintDays *float64        `json:"checkin_hint_days"`
}

// ParsePayload decodes raw JSON into a Payload. Unknown top-level keys are
// an error, not ignored: a response outside the schema must not silently
// degrade to partial data. Hashtags are normalized on the way in
// (lowercase, leading symbol stripped) so stored payloads always match the
// documented shape.
func ParsePayload(raw []byte) (Payload, error) {
	// "null", "true" and bare scalars decode into the zero struct without
	// error, so the object check has to come first.
	trimmed := bytes.TrimLeftFunc(raw, unicode.IsSpace)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Payload{}, fmt.Errorf("decoding extraction payload: body is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var p Payload
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decoding extraction payload: %w", err)
	}
	// Trailing content after the object is as malformed as a bad object.
	if dec.More() {
		return Payload{}, fmt.Errorf("decoding extraction payload: trailing data after JSON object")
	}

	for i, tag := range p.Hashtags {
		p.Hashtags[i] = NormalizeHashtag(tag)
	}
	return p, nil
}

// NormalizeHashtag lowercases a hashtag and strips any leading symbol
// characters (the "#" a sloppy model may keep, or similar).
func NormalizeHashtag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeftFunc(tag, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToLower(tag)
}

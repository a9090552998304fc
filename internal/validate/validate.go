// Package validate runs the structural checks on inbound catalog payloads.
// Each operation has one compiled JSON Schema; Validate is the single
// validation pass the catalog runs before touching storage.
package validate

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Op names a validated operation.
type Op string

const (
	ResourceCreate Op = "resource.create"
	ResourceUpdate Op = "resource.update"
	RatingCreate   Op = "rating.create"
	FeedbackCreate Op = "feedback.create"
	FeedbackUpdate Op = "feedback.update"
	FeedbackDelete Op = "feedback.delete"
)

// Feedback text bounds, counted in characters after trimming.
const (
	MinFeedbackLen = 10
	MaxFeedbackLen = 500
)

// messages are the client-facing explanations per operation.
var messages = map[Op]string{
	ResourceCreate: `Missing required fields - "title" or "type".`,
	ResourceUpdate: "Request body must contain at least one field; title and type must be non-empty strings.",
	RatingCreate:   "ratingValue is required and must be an integer between 1 and 5.",
	FeedbackCreate: fmt.Sprintf("resourceId is required and feedbackText must be a string of %d to %d characters.", MinFeedbackLen, MaxFeedbackLen),
	FeedbackUpdate: fmt.Sprintf("resourceId, feedbackId and userId are required and feedbackText must be a string of %d to %d characters.", MinFeedbackLen, MaxFeedbackLen),
	FeedbackDelete: "userId is required to delete feedback.",
}

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBase = "https://catalog.zynq.local/schemas/"

// Error is returned when a payload fails validation.
type Error struct {
	Op      Op
	Msg     string
	Details []string
}

func (e *Error) Error() string { return e.Msg }

// Validator holds one compiled schema per operation.
type Validator struct {
	schemas map[Op]*jsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	v := &Validator{schemas: make(map[Op]*jsonschema.Schema, len(messages))}
	for op := range messages {
		name := string(op) + ".json"
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := c.AddResource(schemaBase+name, strings.NewReader(string(raw))); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", name, err)
		}
		sch, err := c.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[op] = sch
	}
	return v, nil
}

// Validate checks doc against the schema for op. Feedback text is checked
// on its trimmed form.
func (v *Validator) Validate(op Op, doc map[string]any) error {
	sch, ok := v.schemas[op]
	if !ok {
		return fmt.Errorf("validate: unknown operation %q", op)
	}
	if err := sch.Validate(normalize(doc)); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &Error{Op: op, Msg: messages[op], Details: leafMessages(ve)}
		}
		return err
	}

	if op == FeedbackCreate || op == FeedbackUpdate {
		text, _ := doc["feedbackText"].(string)
		if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < MinFeedbackLen || n > MaxFeedbackLen {
			return &Error{
				Op:      op,
				Msg:     messages[op],
				Details: []string{fmt.Sprintf("/feedbackText: trimmed length %d outside [%d, %d]", n, MinFeedbackLen, MaxFeedbackLen)},
			}
		}
	}
	return nil
}

// normalize copies doc, turning Go integers supplied by in-process callers
// into json.Number so the schema sees the same shapes a decoded body has.
func normalize(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch n := v.(type) {
		case int:
			out[k] = json.Number(strconv.Itoa(n))
		case int64:
			out[k] = json.Number(strconv.FormatInt(n, 10))
		default:
			out[k] = v
		}
	}
	return out
}

// leafMessages flattens the innermost causes of a schema failure.
func leafMessages(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}

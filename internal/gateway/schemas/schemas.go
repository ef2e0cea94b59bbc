package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

var (
	// ErrMalformedJSON is returned when the response text is not a JSON document.
	ErrMalformedJSON = errors.New("response is not valid json")
	// ErrSchemaViolation is returned when the document does not match the declared shape.
	ErrSchemaViolation = errors.New("response does not match schema")
)

// TrendingProductFields lists the wire names of a trending product, all required.
var TrendingProductFields = []string{
	"id", "title", "price", "soldCount", "watchers",
	"sellerRating", "category", "imageUrl", "url", "descriptionSnippet",
}

// ListingOptimizationFields lists the wire names of a listing optimization, all required.
var ListingOptimizationFields = []string{"title", "description", "keywords", "affiliateHook"}

// TrendingProducts is the response schema of a trend query: an array of
// objects whose ten properties are all required strings.
func TrendingProducts() *genai.Schema {
	props := make(map[string]*genai.Schema, len(TrendingProductFields))
	for _, f := range TrendingProductFields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   append([]string(nil), TrendingProductFields...),
		},
	}
}

// ListingOptimization is the response schema of an SEO generation request.
func ListingOptimization() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"keywords": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"affiliateHook": {Type: genai.TypeString},
		},
		Required: append([]string(nil), ListingOptimizationFields...),
	}
}

// ToJSONSchema renders a provider schema as a draft JSON Schema document.
// Only the keywords the provider schemas above use are translated.
func ToJSONSchema(s *genai.Schema) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if s.Items != nil {
		out["items"] = ToJSONSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = ToJSONSchema(p)
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]string(nil), s.Enum...)
	}
	return out
}

// Contract pairs a provider schema with its compiled local validator, so the
// shape sent with a request is the same shape its response is decoded against.
type Contract struct {
	Name      string
	Schema    *genai.Schema
	validator *gojsonschema.Schema
}

// NewContract compiles the local validator for s.
func NewContract(name string, s *genai.Schema) (*Contract, error) {
	v, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(ToJSONSchema(s)))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &Contract{Name: name, Schema: s, validator: v}, nil
}

// MustContract is NewContract that panics on error. The built-in schemas are static.
func MustContract(name string, s *genai.Schema) *Contract {
	c, err := NewContract(name, s)
	if err != nil {
		panic(err)
	}
	return c
}

// Decode parses raw, checks it against the contract and unmarshals it into out.
// A document that fails either step leaves out untouched.
func (c *Contract) Decode(raw string, out any) error {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	res, err := c.validator.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if !res.Valid() {
		msgs := make([]string, len(res.Errors()))
		for i, desc := range res.Errors() {
			msgs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

package graph

import (
	"encoding/json"
	"fmt"
)

// JSON is an arbitrary JSON value.
type JSON struct {
	Value interface{}
}

func (JSON) ImplementsGraphQLType(name string) bool {
	return name == "JSON"
}

func (j *JSON) UnmarshalGraphQL(input interface{}) error {
	j.Value = input
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Value)
}

// Raw re-encodes the value for storage.
func (j JSON) Raw() (json.RawMessage, error) {
	if j.Value == nil {
		return nil, nil
	}
	data, err := json.Marshal(j.Value)
	if err != nil {
		return nil, fmt.Errorf("encode JSON scalar: %w", err)
	}
	return data, nil
}

// Object returns the value as a JSON object, or false if it is something else.
func (j JSON) Object() (map[string]interface{}, bool) {
	m, ok := j.Value.(map[string]interface{})
	return m, ok
}

func rawJSON(data json.RawMessage) (JSON, error) {
	var v interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &v); err != nil {
			return JSON{}, err
		}
	}
	return JSON{Value: v}, nil
}

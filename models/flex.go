package models

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// FlexFloat decodes a JSON number, or the first number found in a JSON
// string ("41.39°", "$120", "4 stars"). Strings without a number decode to 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = 0
		if m := numberPattern.FindString(s); m != "" {
			v, err := strconv.ParseFloat(m, 64)
			if err != nil {
				return err
			}
			*f = FlexFloat(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexString decodes any JSON scalar as text. Objects and arrays keep their
// compact JSON form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*s = FlexString(buf.String())
	default:
		*s = FlexString(data)
	}
	return nil
}

// FlexList decodes a JSON array of scalars, or a single string holding a
// comma separated list ("Culture, Food"). Other shapes decode to nil.
type FlexList []string

func (l *FlexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*l = nil
	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*l = append(*l, part)
			}
		}
	case len(data) > 0 && data[0] == '[':
		var items []FlexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		for _, item := range items {
			*l = append(*l, string(item))
		}
	}
	return nil
}

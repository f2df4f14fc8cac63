package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (json|text)", s)
	}
}

// Write renders v. Text output flattens objects into sorted "key: value"
// lines and lists into blocks separated by blank lines; anything else falls
// back to indented JSON.
func Write(w io.Writer, format Format, v any) error {
	if format == FormatText {
		if ok, err := writeText(w, v); ok || err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeText(w io.Writer, v any) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return false, err
	}
	switch t := generic.(type) {
	case map[string]any:
		return true, writeObject(w, t)
	case []any:
		for i, item := range t {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return true, err
				}
			}
			obj, ok := item.(map[string]any)
			if !ok {
				if _, err := fmt.Fprintln(w, scalar(item)); err != nil {
					return true, err
				}
				continue
			}
			if err := writeObject(w, obj); err != nil {
				return true, err
			}
		}
		return true, nil
	default:
		_, err := fmt.Fprintln(w, scalar(t))
		return true, err
	}
}

func writeObject(w io.Writer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, scalar(obj[k])); err != nil {
			return err
		}
	}
	return nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		return t
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
	case map[string]any, []any:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

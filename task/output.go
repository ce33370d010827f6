package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kadirpekel/crewcore/config"
	"github.com/kadirpekel/crewcore/tools"
)

// firstBalancedObject finds the first balanced {...} span in mixed text by
// scanning braces, the fallback used when the model wraps JSON in prose or
// markdown fences.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// FormatJSON parses raw as a JSON object, falling back to extracting the
// first balanced {...} span when direct parsing fails (mixed prose+JSON),
// per spec.md §4.5 ("Output formatting").
func FormatJSON(raw string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}
	candidate, ok := firstBalancedObject(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in output")
	}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil {
		return nil, fmt.Errorf("extracted JSON object is invalid: %w", err)
	}
	return out, nil
}

// FormatStructured parses raw as JSON (same rules as FormatJSON) and
// additionally validates it against schema, per spec.md §4.5
// ("if structured, additionally validate against the declared schema").
func FormatStructured(raw string, schema map[string]any) (map[string]any, error) {
	out, err := FormatJSON(raw)
	if err != nil {
		return nil, err
	}
	if len(schema) > 0 {
		if verr := tools.ValidateArgs("task-output", schema, out); verr != nil {
			return nil, verr
		}
	}
	return out, nil
}

// ApplyFormat fills in output.JSON/output.Structured according to format,
// per spec.md §4.5. Raw mode leaves the output untouched.
func ApplyFormat(output Output, format config.OutputFormat, schema map[string]any) (Output, error) {
	switch format {
	case config.OutputJSON:
		parsed, err := FormatJSON(output.Raw)
		if err != nil {
			return output, err
		}
		output.JSON = parsed
	case config.OutputStructured:
		parsed, err := FormatStructured(output.Raw, schema)
		if err != nil {
			return output, err
		}
		output.Structured = parsed
	}
	output.Format = format
	return output, nil
}

// WriteOutputFile writes content to path atomically (temp file in the same
// directory, fsync, rename), creating the parent directory first when
// createDir is true, per spec.md §4.5 ("Output sink").
func WriteOutputFile(path, content string, createDir bool) error {
	dir := filepath.Dir(path)
	if createDir {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".task-output-*")
	if err != nil {
		return fmt.Errorf("create temp output file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp output file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp output file: %w", err)
	}
	return nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/warden/internal/ir"
)

// Preset is a set of rule configurations applied in one go.
//
//	rules: {
//		other_forbid_afk: {
//			active: true
//			data: minutesBeforeAfk: 15
//		}
//	}
type Preset struct {
	Rules []PresetRule
	// FileCount is the number of CUE files the preset was built from.
	FileCount int
}

// PresetRule configures one rule. Nil fields are left as they are.
type PresetRule struct {
	ID      string
	Active  *bool
	Enforce *bool
	Log     *bool
	// Data is merged over the rule's current customData.
	Data ir.Object
	Pos  token.Pos
}

// LoadError is a preset loading failure, with the CUE position when known.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPreset builds a preset from a single .cue file or from the CUE
// package in a directory. Rules are returned in id order.
func LoadPreset(path string) (*Preset, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("preset not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing preset: %v", err)}
	}

	ctx := cuecontext.New()
	var (
		value cue.Value
		files int
	)
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
		}
		if inst := instances[0]; inst.Err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
		}
		value = ctx.BuildInstance(instances[0])
		files = len(cueFiles)
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading preset: %v", err)}
		}
		value = ctx.CompileBytes(src, cue.Filename(path))
		files = 1
	}
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	preset, err := decodePreset(value)
	if err != nil {
		return nil, err
	}
	preset.FileCount = files
	return preset, nil
}

func decodePreset(value cue.Value) (*Preset, error) {
	rulesVal := value.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeInvalidPreset, Message: "preset has no rules field", Pos: value.Pos()}
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalidPreset, Message: fmt.Sprintf("rules must be a struct: %v", err), Pos: rulesVal.Pos()}
	}

	preset := &Preset{}
	for iter.Next() {
		rule, err := decodeRule(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		preset.Rules = append(preset.Rules, rule)
	}
	if len(preset.Rules) == 0 {
		return nil, &LoadError{Code: ErrCodeInvalidPreset, Message: "preset configures no rules", Pos: rulesVal.Pos()}
	}
	sort.Slice(preset.Rules, func(i, j int) bool { return preset.Rules[i].ID < preset.Rules[j].ID })
	return preset, nil
}

func decodeRule(id string, v cue.Value) (PresetRule, error) {
	rule := PresetRule{ID: id, Pos: v.Pos()}
	fail := func(field, format string, args ...any) (PresetRule, error) {
		return PresetRule{}, &LoadError{
			Code:    ErrCodeInvalidPreset,
			Message: fmt.Sprintf("rules.%s.%s: %s", id, field, fmt.Sprintf(format, args...)),
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return fail("", "must be a struct")
	}
	for iter.Next() {
		field := iter.Label()
		fv := iter.Value()
		switch field {
		case "active", "enforce", "log":
			b, err := fv.Bool()
			if err != nil {
				return fail(field, "must be a bool")
			}
			switch field {
			case "active":
				rule.Active = &b
			case "enforce":
				rule.Enforce = &b
			case "log":
				rule.Log = &b
			}
		case "data":
			raw, err := fv.MarshalJSON()
			if err != nil {
				return fail(field, "%v", err)
			}
			parsed, err := ir.Parse(raw)
			if err != nil {
				return fail(field, "%v", err)
			}
			obj, ok := parsed.(ir.Object)
			if !ok {
				return fail(field, "must be a struct")
			}
			rule.Data = obj
		default:
			return fail(field, "unknown field")
		}
	}
	return rule, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

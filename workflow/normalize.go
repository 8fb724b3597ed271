package workflow

// Unwrap replaces {"workflow": {...}} with its nested object. Only one level
// is removed, and only when the nested value is itself an object.
func Unwrap(raw any) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	inner, ok := obj[WrapperKey].(map[string]any)
	if !ok {
		return raw
	}
	return inner
}

// IsOperation reports whether v has the PromptForm operation record shape.
func IsOperation(v any) bool {
	rec, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if _, ok := rec[ClassTypeKey].(string); !ok {
		return false
	}
	_, ok = rec[InputsKey].(map[string]any)
	return ok
}

// Classify decides the form of an already unwrapped value. A mapping is
// PromptForm only when it is non-empty and every value is an operation record.
func Classify(raw any) Form {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return FormGraph
	}
	for _, v := range obj {
		if !IsOperation(v) {
			return FormGraph
		}
	}
	return FormPrompt
}

// Normalize unwraps raw, classifies it and, for PromptForm, rebuilds the
// mapping from conforming entries. raw is never modified.
func Normalize(raw any) Document {
	return FromValue(Unwrap(raw))
}

// FromValue classifies raw as is. A top-level wrapper key is kept.
func FromValue(raw any) Document {
	if Classify(raw) != FormPrompt {
		return Document{Form: FormGraph, Graph: raw}
	}

	obj := raw.(map[string]any)
	prompt := make(map[string]Operation, len(obj))
	for id, v := range obj {
		if !IsOperation(v) {
			continue
		}
		rec := v.(map[string]any)
		prompt[id] = Operation{
			ClassType: rec[ClassTypeKey].(string),
			Inputs:    rec[InputsKey].(map[string]any),
			Record:    rec,
		}
	}
	return Document{Form: FormPrompt, Prompt: prompt}
}

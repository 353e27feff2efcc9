package tools

func hints(readOnly, destructive, idempotent bool) map[string]bool {
	return map[string]bool{
		"readOnlyHint":    readOnly,
		"destructiveHint": destructive,
		"idempotentHint":  idempotent,
		"openWorldHint":   false,
	}
}

func ReadOnlyAnnotations() map[string]bool {
	return hints(true, false, true)
}

// ResetAnnotations marks tools that discard state but converge on repeat calls.
func ResetAnnotations() map[string]bool {
	return hints(false, true, true)
}

func SafeWriteAnnotations() map[string]bool {
	return hints(false, false, true)
}

func NonIdempotentWriteAnnotations() map[string]bool {
	return hints(false, false, false)
}

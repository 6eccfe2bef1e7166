package model

// Languages is the closed set of programming languages a snippet may declare.
// Any value outside this list is a validation error. Keep it in sync with the
// frontend's language picker.
var Languages = []string{
	"javascript", "python", "java", "cpp", "c", "csharp",
	"php", "ruby", "go", "rust", "typescript", "html",
	"css", "sql", "bash", "powershell", "swift", "kotlin",
	"scala", "r", "perl", "lua", "dart", "elixir", "haskell",
}

var languageSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Languages))
	for _, lang := range Languages {
		set[lang] = struct{}{}
	}
	return set
}()

// ValidLanguage reports whether lang is a member of the enumerated set.
// The comparison is exact — callers normalize case before checking.
func ValidLanguage(lang string) bool {
	_, ok := languageSet[lang]
	return ok
}

// Package lang holds the fixed table of supported language codes.
package lang

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks a backend to work out the language on its own.
const Auto = "auto"

var supported = map[string]string{
	"en":    "English",
	"es":    "Spanish",
	"fr":    "French",
	"de":    "German",
	"ja":    "Japanese",
	"ko":    "Korean",
	"zh-cn": "Chinese (Simplified)",
}

// Supported returns a copy of the code to display-name table.
func Supported() map[string]string {
	out := make(map[string]string, len(supported))
	for code, name := range supported {
		out[code] = name
	}
	return out
}

func IsAuto(code string) bool {
	return code == "" || strings.EqualFold(code, Auto)
}

// BCP47 canonicalizes a code for backends that want proper tags ("zh-cn" -> "zh-CN").
// Auto maps to "" and unparseable codes are returned unchanged.
func BCP47(code string) string {
	if IsAuto(code) {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return tag.String()
}

// Name returns a human readable name for code.
func Name(code string) string {
	if name, ok := supported[strings.ToLower(code)]; ok {
		return name
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}

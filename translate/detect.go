package translate

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// WhatlangDetector identifies languages by trigram statistics.
type WhatlangDetector struct {
	// RequireReliable rejects guesses whatlanggo itself flags as unreliable.
	RequireReliable bool
}

func (d WhatlangDetector) Detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetermined
	}

	info := whatlanggo.Detect(text)
	if info.Lang < 0 || info.Script == nil {
		return "", ErrUndetermined
	}
	if d.RequireReliable && !info.IsReliable() {
		return "", ErrUndetermined
	}

	code := languageCode(info.Lang)
	if code == "" {
		return "", ErrUndetermined
	}
	return code, nil
}

// languageCode maps to the codes used by the language table, so Mandarin
// comes back as "zh-cn" rather than "zh".
func languageCode(l whatlanggo.Lang) string {
	if l == whatlanggo.Cmn {
		return "zh-cn"
	}
	if code := l.Iso6391(); code != "" {
		return code
	}
	return l.Iso6393()
}

package formatter

import (
	"context"

	"gide/internal/language"
	appErr "gide/pkg/errors"
	"gide/pkg/utils/logger"

	"go.uber.org/zap"
)

// Outcome is the result of FormatWithFallback. Cause is set when the
// primary formatter was skipped or failed.
type Outcome struct {
	Code         string `json:"code"`
	UsedFallback bool   `json:"used_fallback"`
	Cause        error  `json:"-"`
}

// Helper formats code with a primary formatter and falls back to Reindent.
type Helper struct {
	primary   Formatter
	languages *language.Registry
}

// NewHelper creates a helper. primary may be nil, in which case every call
// uses the fallback.
func NewHelper(primary Formatter, languages *language.Registry) *Helper {
	if languages == nil {
		languages = language.Builtin()
	}
	return &Helper{primary: primary, languages: languages}
}

// FormatWithFallback never fails: any primary error yields the reindented code.
func (h *Helper) FormatWithFallback(ctx context.Context, code, lang string) Outcome {
	grammar := h.languages.Grammar(lang)
	if h.primary == nil {
		return Outcome{Code: Reindent(code), UsedFallback: true, Cause: appErr.New(appErr.FormatterUnavailable)}
	}

	formatted, err := h.primary.Format(ctx, code, DefaultOptions(grammar))
	if err != nil {
		logger.Warn(ctx, "formatter failed, using fallback",
			zap.String("language", lang),
			zap.String("parser", grammar),
			zap.Error(err),
		)
		return Outcome{Code: Reindent(code), UsedFallback: true, Cause: err}
	}
	return Outcome{Code: formatted}
}

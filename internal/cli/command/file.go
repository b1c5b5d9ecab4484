package command

import (
	"gide/internal/judge"
	"gide/internal/language"
	appErr "gide/pkg/errors"
)

// BuildRunRequest reads a source file for a one-shot run. lang wins over the
// file extension; stdinPath may be empty.
func BuildRunRequest(languages *language.Registry, path, lang, stdinPath string) (judge.Request, error) {
	code, err := ReadFile(path)
	if err != nil {
		return judge.Request{}, err
	}
	if lang == "" {
		detected, ok := languages.FromFilename(path)
		if !ok {
			return judge.Request{}, appErr.Newf(appErr.LanguageNotSupported, "cannot infer language of %s, pass --lang", path)
		}
		lang = detected.Name
	}
	lang = language.Normalize(lang)
	if !languages.Supports(lang) {
		return judge.Request{}, appErr.UnsupportedLanguage(lang)
	}

	req := judge.Request{SourceCode: code, Language: lang}
	if stdinPath != "" {
		if req.Stdin, err = ReadFile(stdinPath); err != nil {
			return judge.Request{}, err
		}
	}
	return req, nil
}

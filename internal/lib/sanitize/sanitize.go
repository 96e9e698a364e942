// Package sanitize чистит пользовательский текст перед сохранением.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()

	// "<" остаётся экранированным, чтобы из текста нельзя было собрать тег
	restore = strings.NewReplacer(
		"&gt;", ">",
		"&amp;", "&",
		"&#39;", "'",
		"&#34;", `"`,
		"&quot;", `"`,
	)
)

// Text убирает всю разметку: заголовки, комментарии, подписи
func Text(s string) string {
	return strings.TrimSpace(restore.Replace(strict.Sanitize(s)))
}

// Markdown оставляет безопасный HTML и markdown-символы
func Markdown(s string) string {
	return restore.Replace(ugc.Sanitize(s))
}

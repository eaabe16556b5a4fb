// redact маскирует чувствительные данные для логов (e-mail, логины, токены),
// сохраняя полезный для отладки контекст (например, домен e-mail).
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть сокращается до первых двух рун + "***"
//     (при длине ≤ 2 — просто "***");
//   - домен возвращается без изменений.
//
// Примеры:
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	if lr := []rune(local); len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Login маскирует идентификатор входа: e-mail — как Email,
// username — первая руна + "***".
func Login(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	r := []rune(s)
	if len(r) == 0 {
		return ""
	}

	return string(r[0]) + "***"
}

// Token возвращает заглушку для токена; пустой токен остаётся пустым,
// чтобы в логах было видно его отсутствие.
func Token(tok string) string {
	if tok == "" {
		return ""
	}

	return "[REDACTED_TOKEN]"
}

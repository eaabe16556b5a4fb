package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и при обновлении сессии.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API, на сервере не хранится;
//   - RefreshToken — долгоживущий JWT для выпуска новой пары; на сервере хранится
//     только его дайджест, и действителен лишь последний выданный;
//   - AccessExpiresAt/RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes — предел длины пароля для bcrypt.
const maxPasswordBytes = 72

// validatePassword отклоняет пароль, который bcrypt не сможет захэшировать.
func validatePassword(password string) error {
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password longer than %d bytes: %w", maxPasswordBytes, ErrInvalidInput)
	}

	return nil
}

// hashPassword хэширует пароль bcrypt с настроенной стоимостью (соль на каждый вызов).
// Пароль длиннее 72 байт bcrypt не принимает, это ошибка ввода.
func (s *Service) hashPassword(password string) (string, error) {
	const op = "service.password.hashPassword"

	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%s: password longer than 72 bytes: %w", op, ErrInvalidInput)
		}

		return "", internalErr(op, err)
	}

	return string(b), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

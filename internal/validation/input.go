package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxFeedbackLength = 20000
	MinScore          = 0
	MaxScore          = 100
)

var txHashPattern = regexp.MustCompile(`^0[xX][0-9a-fA-F]{64}$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateTxHash проверяет хэш транзакции: 0x и 64 hex-символа.
func ValidateTxHash(hash string) error {
	if err := ValidateNonEmpty("transactionHash", hash); err != nil {
		return err
	}
	if !txHashPattern.MatchString(hash) {
		return fmt.Errorf("transactionHash должен быть 0x и 64 hex-символа")
	}
	return nil
}

// ValidateScore проверяет оценку проверяющего.
func ValidateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("оценка должна быть в диапазоне %d..%d", MinScore, MaxScore)
	}
	return nil
}

// ValidateFeedback проверяет текст отзыва проверяющего. Пустой отзыв допустим.
func ValidateFeedback(feedback string) error {
	if !utf8.ValidString(feedback) {
		return fmt.Errorf("отзыв должен быть в UTF-8")
	}
	return ValidateLength("отзыв", feedback, 0, MaxFeedbackLength)
}

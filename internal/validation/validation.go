// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// ErrInvalidPrice возвращается, если строка цены не является положительным десятичным числом.
var ErrInvalidPrice = errors.New("invalid price")

// IsValidEmail проверяет, что строка похожа на адрес электронной почты.
func IsValidEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return false
	}

	domain := email[at+1:]
	if strings.IndexByte(domain, '@') != -1 {
		return false
	}

	dot := strings.IndexByte(domain, '.')
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}

	for _, ch := range email {
		if unicode.IsSpace(ch) {
			return false
		}
	}

	return true
}

// ParsePrice разбирает десятичную цену вида "49.99" и возвращает сумму в центах.
// Допускается не более двух знаков после точки; цена должна быть положительной.
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}

	whole := s
	frac := ""
	if dot := strings.IndexByte(s, '.'); dot != -1 {
		whole = s[:dot]
		frac = s[dot+1:]
	}

	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, s)
	}

	cents := int64(0)
	for _, ch := range whole {
		if !unicode.IsDigit(ch) {
			return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, s)
		}
		// Проверка до умножения: переполнение может дать и положительное число.
		if cents > (math.MaxInt64-999)/10 {
			return 0, fmt.Errorf("%w: overflow", ErrInvalidPrice)
		}
		cents = cents*10 + int64(ch-'0')*100
	}

	mult := int64(10)
	for _, ch := range frac {
		if !unicode.IsDigit(ch) {
			return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, s)
		}
		cents += int64(ch-'0') * mult
		mult /= 10
	}

	if cents <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidPrice)
	}

	return cents, nil
}

// FormatPrice возвращает сумму в центах в виде десятичной строки "49.99".
func FormatPrice(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

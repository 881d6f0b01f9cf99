package validation

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MaxOrderTitleLength       = 255
	MaxOrderDescriptionLength = 5000
	MaxRegionLength           = 100
	MaxAddressLength          = 255
	MaxAttachmentsCount       = 10
	MaxAttachmentPathLength   = 255
	MaxReviewCommentLength    = 2000
	MaxCancelReasonLength     = 500
)

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

// ValidateOrderTitle проверяет название заказа.
func ValidateOrderTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("укажите название заказа")
	}
	return ValidateLength("название заказа", title, 0, MaxOrderTitleLength)
}

// ValidateOrderDescription проверяет описание заказа. Описание необязательно.
func ValidateOrderDescription(description string) error {
	return ValidateLength("описание заказа", strings.TrimSpace(description), 0, MaxOrderDescriptionLength)
}

// ValidateLocation проверяет регион и адрес выполнения работ.
func ValidateLocation(region, address string) error {
	region, address = strings.TrimSpace(region), strings.TrimSpace(address)
	if region == "" || address == "" {
		return fmt.Errorf("укажите регион и адрес")
	}
	if err := ValidateLength("регион", region, 0, MaxRegionLength); err != nil {
		return err
	}
	return ValidateLength("адрес", address, 0, MaxAddressLength)
}

// ValidateAttachments проверяет относительные пути вложений заказа.
func ValidateAttachments(files []string) error {
	if len(files) > MaxAttachmentsCount {
		return fmt.Errorf("не более %d вложений", MaxAttachmentsCount)
	}
	for _, f := range files {
		if err := ValidateNonEmpty("путь вложения", f); err != nil {
			return err
		}
		if err := ValidateLength("путь вложения", f, 0, MaxAttachmentPathLength); err != nil {
			return err
		}
		clean := path.Clean(f)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("недопустимый путь вложения %q", f)
		}
	}
	return nil
}

// ValidateReviewComment проверяет комментарий к отзыву.
func ValidateReviewComment(comment *string) error {
	if comment == nil {
		return nil
	}
	return ValidateLength("комментарий", strings.TrimSpace(*comment), 0, MaxReviewCommentLength)
}

// ValidateCancelReason проверяет причину отказа от работы.
func ValidateCancelReason(reason string) error {
	return ValidateLength("причина", strings.TrimSpace(reason), 0, MaxCancelReasonLength)
}

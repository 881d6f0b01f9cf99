package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// AttachmentStorage файловое хранилище вложений заказов.
// Файлы заказа лежат в каталоге orders/<order_id>; в заказе хранятся пути относительно корня.
type AttachmentStorage struct {
	rootPath string
}

// NewAttachmentStorage создаёт файловое хранилище.
func NewAttachmentStorage(rootPath string) (*AttachmentStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}
	return &AttachmentStorage{rootPath: rootPath}, nil
}

// OrderDir возвращает каталог вложений заказа.
func (s *AttachmentStorage) OrderDir(orderID uuid.UUID) string {
	return filepath.Join(s.rootPath, "orders", orderID.String())
}

// RemoveOrderAttachments удаляет перечисленные файлы и каталог заказа.
// Отсутствующие файлы пропускаются; остальные ошибки собираются в одну.
func (s *AttachmentStorage) RemoveOrderAttachments(ctx context.Context, orderID uuid.UUID, files []string) error {
	var errs []error
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := s.resolve(rel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("storage: не удалось удалить %s: %w", rel, err))
		}
	}

	if err := os.RemoveAll(s.OrderDir(orderID)); err != nil {
		errs = append(errs, fmt.Errorf("storage: не удалось удалить каталог заказа: %w", err))
	}
	return errors.Join(errs...)
}

// resolve превращает относительный путь в абсолютный, не выпуская его за пределы корня.
func (s *AttachmentStorage) resolve(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("storage: недопустимый путь %q", rel)
	}
	return filepath.Join(s.rootPath, cleaned), nil
}

package service

import (
	"errors"

	domain "github.com/ignatzorin/montazh-backend/internal/domain/repository"
	"github.com/ignatzorin/montazh-backend/internal/pkg/apperror"
)

// mapRepoError переводит ошибки хранилища в ошибки приложения.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrOrderNotFound):
		return apperror.ErrOrderNotFound
	case errors.Is(err, domain.ErrResponseNotFound):
		return apperror.ErrResponseNotFound
	case errors.Is(err, domain.ErrResponseExists):
		return apperror.ErrDuplicateResponse
	case errors.Is(err, domain.ErrStaleOrder), errors.Is(err, domain.ErrSerialization):
		return apperror.ErrConcurrentUpdate
	case errors.Is(err, domain.ErrReviewExists):
		return apperror.Conflict("вы уже оставили отзыв на этот заказ")
	case errors.Is(err, domain.ErrNotificationNotFound):
		return apperror.NotFound("уведомление не найдено")
	}
	return err
}

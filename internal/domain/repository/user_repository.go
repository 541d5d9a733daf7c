package repository

import (
	"context"

	"sitechat/internal/domain/entity"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListBySiteAndRole(ctx context.Context, siteID, role string) ([]*entity.User, error)
}

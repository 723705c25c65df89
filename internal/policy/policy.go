package policy

import (
	"fmt"

	"AccessBridgePlatform/pkg/config"
	"AccessBridgePlatform/pkg/errors"
)

// Категории ресурсов определяют, какие двери открывает бронирование
const (
	// CategorySingle доступ только к двери самого ресурса
	CategorySingle = "single"
	// CategorySharedOne дверь ресурса плюс одна группа общих дверей
	CategorySharedOne = "shared-one"
	// CategorySharedTwo дверь ресурса плюс две группы общих дверей
	CategorySharedTwo = "shared-two"
)

// unknownDoorLabel подставляется, когда у MAC адреса нет названия
const unknownDoorLabel = "Unknown Door"

type resource struct {
	mac      string
	category string
}

// Resolver сопоставляет ресурсы бронирования с замками по
// статической политике доступа из конфигурации
type Resolver struct {
	resources map[int64]resource
	doors     map[string]string
	sharedOne []string
	sharedTwo []string
}

// NewResolver строит политику доступа из конфигурации
func NewResolver(cfg config.AccessConfig) *Resolver {
	resources := make(map[int64]resource, len(cfg.Resources))
	for _, res := range cfg.Resources {
		resources[res.ID] = resource{mac: res.Mac, category: res.Category}
	}

	return &Resolver{
		resources: resources,
		doors:     cfg.Doors,
		sharedOne: cfg.SharedOne,
		sharedTwo: cfg.SharedTwo,
	}
}

// LocksFor возвращает MAC адреса замков, которые открывает
// бронирование ресурса. Первым всегда идет замок самого ресурса,
// затем общие двери его категории в порядке конфигурации.
func (r *Resolver) LocksFor(resourceID int64) ([]string, error) {
	res, ok := r.resources[resourceID]
	if !ok {
		return nil, errors.New(errors.ErrNotFound, "resource is not mapped to any lock").
			WithDetails(fmt.Sprintf("resource_id=%d", resourceID))
	}

	macs := []string{res.mac}
	switch res.category {
	case CategorySharedOne:
		macs = append(macs, r.sharedOne...)
	case CategorySharedTwo:
		macs = append(macs, r.sharedTwo...)
	}

	return macs, nil
}

// Category возвращает категорию ресурса
func (r *Resolver) Category(resourceID int64) (string, error) {
	res, ok := r.resources[resourceID]
	if !ok {
		return "", errors.New(errors.ErrNotFound, "resource is not mapped to any lock").
			WithDetails(fmt.Sprintf("resource_id=%d", resourceID))
	}
	return res.category, nil
}

// DoorLabel возвращает человекочитаемое название двери по MAC адресу
func (r *Resolver) DoorLabel(lockMac string) string {
	if label, ok := r.doors[lockMac]; ok {
		return label
	}
	return unknownDoorLabel
}

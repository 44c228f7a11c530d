package models

import (
	"context"
	"time"
)

type Group struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Color        string    `json:"color,omitempty"`
	ContactCount int       `json:"contact_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type GroupRepository interface {
	List(ctx context.Context, tenantID string) ([]*Group, error)
	ListForContact(ctx context.Context, tenantID, contactID string) ([]*Group, error)
	Save(ctx context.Context, group *Group) error
	AddContact(ctx context.Context, tenantID, groupID, contactID string) error
	RemoveContact(ctx context.Context, tenantID, groupID, contactID string) error
}
